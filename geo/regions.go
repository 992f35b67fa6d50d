package geo

import (
	"fmt"
	"math"
)

// Connectivity selects the adjacency used for connected-component labeling.
type Connectivity int

const (
	// Conn4 connects orthogonal neighbors only.
	Conn4 Connectivity = 4
	// Conn8 also connects diagonal neighbors.
	Conn8 Connectivity = 8
)

var (
	offsets4 = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	offsets8 = [][2]int{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
)

func (c Connectivity) offsets() ([][2]int, error) {
	switch c {
	case Conn4:
		return offsets4, nil
	case Conn8:
		return offsets8, nil
	default:
		return nil, fmt.Errorf("connectivity %d: %w", int(c), ErrBadParam)
	}
}

// Region describes one connected component of a boolean mask.
type Region struct {
	Label       int     `json:"label"`
	Size        int     `json:"size"`
	CentroidRow float64 `json:"centroidRow"`
	CentroidCol float64 `json:"centroidCol"`
}

// RegionResult is the output of LabelRegions.
type RegionResult struct {
	Labels   *LabelMap
	NRegions int      `json:"nRegions"`
	Regions  []Region `json:"regions"`

	MeanSize float64 `json:"meanSize"`
	MinSize  int     `json:"minSize"`
	MaxSize  int     `json:"maxSize"`
}

// LabelRegions finds the connected components of the true cells in mask
// under the chosen connectivity. Labels start at 1 in scan-discovery
// order; the order carries no meaning beyond identity. An all-false mask
// yields NRegions == 0 with empty collections, not an error.
func LabelRegions(mask *Mask, conn Connectivity) (*RegionResult, error) {
	offsets, err := conn.offsets()
	if err != nil {
		return nil, fmt.Errorf("label regions: %w", err)
	}

	res := &RegionResult{Labels: NewLabelMap(mask.Rows, mask.Cols)}
	queue := make([]Cell, 0, 64)

	for r := 0; r < mask.Rows; r++ {
		for c := 0; c < mask.Cols; c++ {
			if !mask.At(r, c) || res.Labels.At(r, c) != 0 {
				continue
			}
			res.NRegions++
			label := res.NRegions

			// BFS flood fill from the seed cell.
			queue = queue[:0]
			queue = append(queue, Cell{r, c})
			res.Labels.Data[r*mask.Cols+c] = label

			size := 0
			sumR, sumC := 0.0, 0.0
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				size++
				sumR += float64(cur.Row)
				sumC += float64(cur.Col)

				for _, d := range offsets {
					nr, nc := cur.Row+d[0], cur.Col+d[1]
					if nr < 0 || nr >= mask.Rows || nc < 0 || nc >= mask.Cols {
						continue
					}
					idx := nr*mask.Cols + nc
					if !mask.Data[idx] || res.Labels.Data[idx] != 0 {
						continue
					}
					res.Labels.Data[idx] = label
					queue = append(queue, Cell{nr, nc})
				}
			}

			res.Regions = append(res.Regions, Region{
				Label:       label,
				Size:        size,
				CentroidRow: sumR / float64(size),
				CentroidCol: sumC / float64(size),
			})
		}
	}

	if res.NRegions > 0 {
		total := 0
		res.MinSize = res.Regions[0].Size
		for _, reg := range res.Regions {
			total += reg.Size
			if reg.Size < res.MinSize {
				res.MinSize = reg.Size
			}
			if reg.Size > res.MaxSize {
				res.MaxSize = reg.Size
			}
		}
		res.MeanSize = float64(total) / float64(res.NRegions)
	}
	return res, nil
}

// ZoneStatsFromLabels computes per-label descriptive statistics of the
// grid values under each positive label of the map. Cells that are invalid
// in the grid are excluded even when labeled; a label whose cells are all
// invalid reports NPixels == 0.
func ZoneStatsFromLabels(g *Grid, labels *LabelMap) ([]ZoneStats, error) {
	if g.Rows != labels.Rows || g.Cols != labels.Cols {
		return nil, fmt.Errorf("zone stats: %w", ErrShapeMismatch)
	}

	maxLabel := 0
	for _, l := range labels.Data {
		if l > maxLabel {
			maxLabel = l
		}
	}
	if maxLabel == 0 {
		return nil, nil
	}

	byLabel := make([][]float64, maxLabel+1)
	total := 0
	for i, l := range labels.Data {
		if l <= 0 {
			continue
		}
		v := g.Data[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		byLabel[l] = append(byLabel[l], v)
		total++
	}

	zones := make([]ZoneStats, 0, maxLabel)
	for l := 1; l <= maxLabel; l++ {
		zones = append(zones, newZoneStats(l, byLabel[l], total))
	}
	return zones, nil
}
