package geo

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// HotspotMethod selects the threshold policy for hotspot detection.
type HotspotMethod int

const (
	// MethodZScore flags cells whose standardized value exceeds the
	// threshold (in standard deviations).
	MethodZScore HotspotMethod = iota
	// MethodPercentile flags cells above the (100-threshold)-th and below
	// the threshold-th percentile.
	MethodPercentile
	// MethodIQR flags cells beyond Q3 + threshold*IQR / Q1 - threshold*IQR.
	MethodIQR
)

func (m HotspotMethod) String() string {
	switch m {
	case MethodZScore:
		return "zscore"
	case MethodPercentile:
		return "percentile"
	case MethodIQR:
		return "iqr"
	default:
		return fmt.Sprintf("HotspotMethod(%d)", int(m))
	}
}

// ParseHotspotMethod converts a config tag to a HotspotMethod.
func ParseHotspotMethod(s string) (HotspotMethod, error) {
	switch s {
	case "zscore":
		return MethodZScore, nil
	case "percentile":
		return MethodPercentile, nil
	case "iqr":
		return MethodIQR, nil
	default:
		return 0, fmt.Errorf("hotspot method %q: %w", s, ErrUnknownMethod)
	}
}

// HotspotResult holds the classification masks and their summary. The hot
// and cold masks are always disjoint and false wherever the source cell is
// invalid. MeanHot/MeanCold carry a defined flag, like GridStats.CVDefined:
// when the corresponding count is zero the flag is false and the mean is 0.
type HotspotResult struct {
	Hotspots  *Mask
	Coldspots *Mask

	NHotspots       int     `json:"nHotspots"`
	NColdspots      int     `json:"nColdspots"`
	NValid          int     `json:"nValid"`
	PctHot          float64 `json:"pctHot"`
	PctCold         float64 `json:"pctCold"`
	MeanHot         float64 `json:"meanHot"`
	MeanHotDefined  bool    `json:"meanHotDefined"`
	MeanCold        float64 `json:"meanCold"`
	MeanColdDefined bool    `json:"meanColdDefined"`
}

// DetectHotspots classifies each valid cell as hotspot, coldspot or
// neutral under the chosen threshold policy. Threshold semantics depend on
// the method: standard deviations for MethodZScore, a percentile for
// MethodPercentile, an IQR multiple for MethodIQR.
//
// A grid with zero valid cells returns ErrNoData. An out-of-range method
// value returns ErrUnknownMethod.
func DetectHotspots(g *Grid, method HotspotMethod, threshold float64) (*HotspotResult, error) {
	vals := g.ValidValues()
	if len(vals) == 0 {
		return nil, fmt.Errorf("detect hotspots: %w", ErrNoData)
	}

	var hotAbove, coldBelow float64
	switch method {
	case MethodZScore:
		mean := stat.Mean(vals, nil)
		std := popStd(vals, mean)
		if std == 0 {
			// A flat surface has no statistically extreme cells.
			hotAbove = math.Inf(1)
			coldBelow = math.Inf(-1)
		} else {
			hotAbove = mean + threshold*std
			coldBelow = mean - threshold*std
		}
	case MethodPercentile:
		sorted := make([]float64, len(vals))
		copy(sorted, vals)
		sort.Float64s(sorted)
		hotAbove = percentile(sorted, 100-threshold)
		coldBelow = percentile(sorted, threshold)
	case MethodIQR:
		sorted := make([]float64, len(vals))
		copy(sorted, vals)
		sort.Float64s(sorted)
		q1 := percentile(sorted, 25)
		q3 := percentile(sorted, 75)
		iqr := q3 - q1
		hotAbove = q3 + threshold*iqr
		coldBelow = q1 - threshold*iqr
	default:
		return nil, fmt.Errorf("detect hotspots: method %d: %w", int(method), ErrUnknownMethod)
	}

	res := &HotspotResult{
		Hotspots:  NewMask(g.Rows, g.Cols),
		Coldspots: NewMask(g.Rows, g.Cols),
		NValid:    len(vals),
	}

	var sumHot, sumCold float64
	for i, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		switch {
		case v > hotAbove:
			res.Hotspots.Data[i] = true
			res.NHotspots++
			sumHot += v
		case v < coldBelow:
			res.Coldspots.Data[i] = true
			res.NColdspots++
			sumCold += v
		}
	}

	res.PctHot = float64(res.NHotspots) / float64(res.NValid) * 100
	res.PctCold = float64(res.NColdspots) / float64(res.NValid) * 100
	if res.NHotspots > 0 {
		res.MeanHot = sumHot / float64(res.NHotspots)
		res.MeanHotDefined = true
	}
	if res.NColdspots > 0 {
		res.MeanCold = sumCold / float64(res.NColdspots)
		res.MeanColdDefined = true
	}
	return res, nil
}
