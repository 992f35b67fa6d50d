package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/stat"
)

// ZoneStats summarizes the raw grid values falling into one zone (a
// cluster, a quadrant tile or a labeled region). Percent is relative to
// the valid cells considered by the producing operation. All fields past
// NPixels are zero when NPixels is zero.
type ZoneStats struct {
	Zone    int     `json:"zone"`
	NPixels int     `json:"nPixels"`
	Percent float64 `json:"percent"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

func newZoneStats(zone int, vals []float64, totalValid int) ZoneStats {
	z := ZoneStats{Zone: zone, NPixels: len(vals)}
	if len(vals) == 0 {
		return z
	}
	if totalValid > 0 {
		z.Percent = float64(len(vals)) / float64(totalValid) * 100
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	z.Mean = stat.Mean(vals, nil)
	z.Median = percentile(sorted, 50)
	z.Std = popStd(vals, z.Mean)
	z.Min = sorted[0]
	z.Max = sorted[len(sorted)-1]
	return z
}

// FeatureScaler standardizes feature columns to zero mean and unit
// variance. Raw pixel coordinates and index-scale values live on
// incomparable scales, so clustering always standardizes first.
type FeatureScaler struct {
	Means []float64
	Stds  []float64
}

// FitScaler computes per-column scaling parameters from the feature rows.
func FitScaler(features [][]float64) *FeatureScaler {
	if len(features) == 0 {
		return &FeatureScaler{}
	}
	dims := len(features[0])
	fs := &FeatureScaler{
		Means: make([]float64, dims),
		Stds:  make([]float64, dims),
	}
	col := make([]float64, len(features))
	for d := 0; d < dims; d++ {
		for i, row := range features {
			col[i] = row[d]
		}
		fs.Means[d] = stat.Mean(col, nil)
		fs.Stds[d] = popStd(col, fs.Means[d])
	}
	return fs
}

// Transform standardizes the rows in place and returns them. A constant
// column (zero std) maps to all zeros instead of dividing by zero.
func (fs *FeatureScaler) Transform(features [][]float64) [][]float64 {
	for _, row := range features {
		for d := range row {
			if fs.Stds[d] == 0 {
				row[d] = 0
				continue
			}
			row[d] = (row[d] - fs.Means[d]) / fs.Stds[d]
		}
	}
	return features
}

// buildFeatures assembles the per-cell clustering features: the raw value,
// optionally followed by the column and row index each rescaled to [0,1]
// by the grid dimension, then standardized.
func buildFeatures(g *Grid, cells []Cell, values []float64, includeCoords bool) [][]float64 {
	features := make([][]float64, len(cells))
	for i := range cells {
		if includeCoords {
			features[i] = []float64{
				values[i],
				float64(cells[i].Col) / float64(g.Cols),
				float64(cells[i].Row) / float64(g.Rows),
			}
		} else {
			features[i] = []float64{values[i]}
		}
	}
	return FitScaler(features).Transform(features)
}

// ClusterResult holds a cluster assignment grid plus per-cluster stats.
// Assignment stores the cluster id as a float at each valid cell and NaN
// elsewhere. For k-means, ids 0..K-1 are ordered by ascending cluster mean
// value. For DBSCAN, -1 marks noise and ids are not reordered.
type ClusterResult struct {
	Assignment *Grid
	NClusters  int         `json:"nClusters"`
	Zones      []ZoneStats `json:"zones"`

	// Density clustering only.
	NNoise   int     `json:"nNoise"`
	PctNoise float64 `json:"pctNoise"`
}

// ClusterKMeans partitions the valid cells into k groups with k-means over
// standardized features, then re-labels the clusters so ids ascend with
// the cluster's mean raw value. That ordering is a contract: cluster 0 is
// always the lowest-valued zone.
//
// Fails with ErrInsufficientData when the grid has fewer valid cells than
// k, and ErrBadParam when k < 1.
func ClusterKMeans(g *Grid, k int, includeCoords bool) (*ClusterResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("kmeans: k must be >= 1, got %d: %w", k, ErrBadParam)
	}
	cells, values := g.ValidCells()
	if len(values) < k {
		return nil, fmt.Errorf("kmeans: %d valid cells for k=%d: %w", len(values), k, ErrInsufficientData)
	}

	features := buildFeatures(g, cells, values, includeCoords)
	dataset := make(clusters.Observations, len(features))
	for i, row := range features {
		dataset[i] = clusters.Coordinates(row)
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans: partition: %w", err)
	}

	raw := make([]int, len(dataset))
	for i, obs := range dataset {
		raw[i] = cc.Nearest(obs)
	}

	// Re-label by ascending mean raw value so ids are stable across runs.
	sums := make([]float64, len(cc))
	counts := make([]int, len(cc))
	for i, id := range raw {
		sums[id] += values[i]
		counts[id]++
	}
	order := make([]int, len(cc))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ma := math.Inf(1)
		if counts[order[a]] > 0 {
			ma = sums[order[a]] / float64(counts[order[a]])
		}
		mb := math.Inf(1)
		if counts[order[b]] > 0 {
			mb = sums[order[b]] / float64(counts[order[b]])
		}
		return ma < mb
	})
	remap := make([]int, len(cc))
	for newID, oldID := range order {
		remap[oldID] = newID
	}

	res := &ClusterResult{
		Assignment: NewGrid(g.Rows, g.Cols),
		NClusters:  len(cc),
	}
	byCluster := make([][]float64, len(cc))
	for i, id := range raw {
		mapped := remap[id]
		res.Assignment.Set(cells[i].Row, cells[i].Col, float64(mapped))
		byCluster[mapped] = append(byCluster[mapped], values[i])
	}
	for id := 0; id < len(cc); id++ {
		res.Zones = append(res.Zones, newZoneStats(id, byCluster[id], len(values)))
	}
	return res, nil
}

// ClusterDBSCAN groups the valid cells by density over standardized
// features. eps is the neighborhood radius in standardized feature space
// and minSamples the core-point density requirement. Noise cells get
// label -1 and are excluded from NClusters and Zones.
//
// Fails with ErrInsufficientData when the grid has fewer valid cells than
// minSamples, and ErrBadParam for eps <= 0 or minSamples < 1.
func ClusterDBSCAN(g *Grid, eps float64, minSamples int, includeCoords bool) (*ClusterResult, error) {
	if eps <= 0 {
		return nil, fmt.Errorf("dbscan: eps must be positive, got %g: %w", eps, ErrBadParam)
	}
	if minSamples < 1 {
		return nil, fmt.Errorf("dbscan: minSamples must be >= 1, got %d: %w", minSamples, ErrBadParam)
	}
	cells, values := g.ValidCells()
	if len(values) < minSamples {
		return nil, fmt.Errorf("dbscan: %d valid cells for minSamples=%d: %w", len(values), minSamples, ErrInsufficientData)
	}

	features := buildFeatures(g, cells, values, includeCoords)
	labels := dbscan(features, eps, minSamples)

	res := &ClusterResult{Assignment: NewGrid(g.Rows, g.Cols)}
	byCluster := map[int][]float64{}
	for i, id := range labels {
		res.Assignment.Set(cells[i].Row, cells[i].Col, float64(id))
		if id == -1 {
			res.NNoise++
			continue
		}
		byCluster[id] = append(byCluster[id], values[i])
	}
	res.NClusters = len(byCluster)
	res.PctNoise = float64(res.NNoise) / float64(len(values)) * 100

	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		res.Zones = append(res.Zones, newZoneStats(id, byCluster[id], len(values)))
	}
	return res, nil
}

// dbscan is a direct density clustering over the feature rows with an
// exhaustive O(n^2) neighbor search, which is fine at raster-tile sizes.
// Returns one label per row; -1 is noise.
func dbscan(features [][]float64, eps float64, minSamples int) []int {
	const (
		unvisited = -2
		noise     = -1
	)
	labels := make([]int, len(features))
	for i := range labels {
		labels[i] = unvisited
	}

	neighbors := func(i int) []int {
		var out []int
		for j := range features {
			if euclidean(features[i], features[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	next := 0
	for i := range features {
		if labels[i] != unvisited {
			continue
		}
		seed := neighbors(i)
		if len(seed) < minSamples {
			labels[i] = noise
			continue
		}
		cluster := next
		next++
		labels[i] = cluster

		// Expand the cluster; noise points reached from a core point are
		// border points and join the cluster.
		for q := 0; q < len(seed); q++ {
			j := seed[q]
			if labels[j] == noise {
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			jn := neighbors(j)
			if len(jn) >= minSamples {
				seed = append(seed, jn...)
			}
		}
	}
	return labels
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
