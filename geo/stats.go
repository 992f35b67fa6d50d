package geo

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GridStats holds descriptive statistics over the valid cells of a grid.
// CV is only meaningful when CVDefined is true; a zero mean leaves the
// coefficient of variation undefined rather than reporting zero.
type GridStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`

	CV        float64 `json:"cv"`
	CVDefined bool    `json:"cvDefined"`

	P05 float64 `json:"p05"`
	P25 float64 `json:"p25"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

// Describe computes descriptive statistics over the valid cells of g.
// A grid with zero valid cells yields a zero record with N == 0; it is
// never an error so callers can batch over sparse products safely.
func Describe(g *Grid) GridStats {
	return describeValues(g.ValidValues())
}

func describeValues(vals []float64) GridStats {
	if len(vals) == 0 {
		return GridStats{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mean := stat.Mean(vals, nil)
	std := popStd(vals, mean)

	s := GridStats{
		N:      len(vals),
		Mean:   mean,
		Median: percentile(sorted, 50),
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Range:  sorted[len(sorted)-1] - sorted[0],
		P05:    percentile(sorted, 5),
		P25:    percentile(sorted, 25),
		P75:    percentile(sorted, 75),
		P95:    percentile(sorted, 95),
	}
	if mean != 0 {
		s.CV = std / mean
		s.CVDefined = true
	}
	return s
}

// AdvancedStats extends GridStats with shape and spread measures.
type AdvancedStats struct {
	GridStats

	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // excess kurtosis, 0 for a normal distribution
	Variance float64 `json:"variance"`
	IQR      float64 `json:"iqr"`
	MAD      float64 `json:"mad"` // median absolute deviation
}

// DescribeAdvanced computes the full descriptive record including skewness,
// excess kurtosis, variance, IQR and MAD. Shape measures need at least
// three valid cells; below that they stay zero.
func DescribeAdvanced(g *Grid) AdvancedStats {
	vals := g.ValidValues()
	adv := AdvancedStats{GridStats: describeValues(vals)}
	if adv.N == 0 {
		return adv
	}

	adv.Variance = adv.Std * adv.Std
	adv.IQR = adv.P75 - adv.P25

	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - adv.Median)
	}
	sort.Float64s(dev)
	adv.MAD = percentile(dev, 50)

	if adv.N >= 3 && adv.Std > 0 {
		adv.Skewness = stat.Skew(vals, nil)
		adv.Kurtosis = stat.ExKurtosis(vals, nil)
	}
	return adv
}

// HeterogeneityClass buckets a coefficient of variation (in percent) into
// the interpretation classes used for vegetation surfaces.
type HeterogeneityClass string

const (
	HeterogeneityUnknown  HeterogeneityClass = "unknown"
	HeterogeneityLow      HeterogeneityClass = "homogeneous"
	HeterogeneityModerate HeterogeneityClass = "moderately heterogeneous"
	HeterogeneityHigh     HeterogeneityClass = "heterogeneous"
	HeterogeneityVeryHigh HeterogeneityClass = "very heterogeneous"
)

// Heterogeneity classifies a grid by the percent coefficient of variation
// of its valid cells. A zero mean leaves the class unknown.
func Heterogeneity(g *Grid) HeterogeneityClass {
	s := Describe(g)
	if s.N == 0 || !s.CVDefined {
		return HeterogeneityUnknown
	}
	cvPct := math.Abs(s.CV) * 100
	switch {
	case cvPct < 10:
		return HeterogeneityLow
	case cvPct < 20:
		return HeterogeneityModerate
	case cvPct < 30:
		return HeterogeneityHigh
	default:
		return HeterogeneityVeryHigh
	}
}

// OutliersZScore flags cells whose absolute z-score exceeds the threshold.
// Invalid cells are never flagged. A zero-variance grid flags nothing.
func OutliersZScore(g *Grid, threshold float64) *Mask {
	out := NewMask(g.Rows, g.Cols)
	vals := g.ValidValues()
	if len(vals) == 0 {
		return out
	}
	mean := stat.Mean(vals, nil)
	std := popStd(vals, mean)
	if std == 0 {
		return out
	}
	for i, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if math.Abs((v-mean)/std) > threshold {
			out.Data[i] = true
		}
	}
	return out
}

// OutliersIQR flags cells outside [Q1 - factor*IQR, Q3 + factor*IQR].
// Invalid cells are never flagged.
func OutliersIQR(g *Grid, factor float64) *Mask {
	out := NewMask(g.Rows, g.Cols)
	vals := g.ValidValues()
	if len(vals) == 0 {
		return out
	}
	sort.Float64s(vals)
	q1 := percentile(vals, 25)
	q3 := percentile(vals, 75)
	iqr := q3 - q1
	lo := q1 - factor*iqr
	hi := q3 + factor*iqr
	for i, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < lo || v > hi {
			out.Data[i] = true
		}
	}
	return out
}

// DistributionComparison reports how the valid cells of two grids differ.
type DistributionComparison struct {
	MeanA       float64 `json:"meanA"`
	MeanB       float64 `json:"meanB"`
	MeanDelta   float64 `json:"meanDelta"`
	PercentDiff float64 `json:"percentDiff"` // undefined (0) when MeanA == 0
	StdA        float64 `json:"stdA"`
	StdB        float64 `json:"stdB"`

	TStatistic float64 `json:"tStatistic"` // Welch's t
	DF         float64 `json:"df"`         // Welch-Satterthwaite degrees of freedom
	PValue     float64 `json:"pValue"`
	Different  bool    `json:"different"` // p < 0.05
}

// CompareDistributions runs Welch's two-sample t-test over the valid cells
// of a and b. Each side needs at least two valid cells.
func CompareDistributions(a, b *Grid) (DistributionComparison, error) {
	va := a.ValidValues()
	vb := b.ValidValues()
	if len(va) < 2 || len(vb) < 2 {
		return DistributionComparison{}, fmt.Errorf("compare distributions: need at least 2 valid cells per grid: %w", ErrInsufficientData)
	}

	meanA, varA := stat.MeanVariance(va, nil)
	meanB, varB := stat.MeanVariance(vb, nil)
	na, nb := float64(len(va)), float64(len(vb))

	cmp := DistributionComparison{
		MeanA:     meanA,
		MeanB:     meanB,
		MeanDelta: meanB - meanA,
		StdA:      math.Sqrt(varA),
		StdB:      math.Sqrt(varB),
	}
	if meanA != 0 {
		cmp.PercentDiff = (meanB - meanA) / math.Abs(meanA) * 100
	}

	se2 := varA/na + varB/nb
	if se2 == 0 {
		// Both samples constant and equal means are indistinguishable.
		return cmp, fmt.Errorf("compare distributions: zero pooled variance: %w", ErrDegenerate)
	}
	cmp.TStatistic = (meanB - meanA) / math.Sqrt(se2)
	cmp.DF = se2 * se2 / ((varA/na)*(varA/na)/(na-1) + (varB/nb)*(varB/nb)/(nb-1))

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: cmp.DF}
	cmp.PValue = 2 * t.CDF(-math.Abs(cmp.TStatistic))
	cmp.Different = cmp.PValue < 0.05
	return cmp, nil
}

// popStd is the population standard deviation (divide by n, not n-1),
// matching how all the thresholds in this package are defined.
func popStd(vals []float64, mean float64) float64 {
	return math.Sqrt(stat.MomentAbout(2, vals, mean, nil))
}

// percentile returns the p-th percentile (0-100) of sorted values using
// linear interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
