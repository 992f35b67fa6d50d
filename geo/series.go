package geo

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TrendDirection classifies a temporal trend.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendNone       TrendDirection = "none"
)

// TrendResult holds an ordinary least-squares trend fit of a per-date
// summary series (typically the grid mean per acquisition date).
type TrendResult struct {
	Slope       float64        `json:"slope"` // units per day
	Intercept   float64        `json:"intercept"`
	R2          float64        `json:"r2"`
	PValue      float64        `json:"pValue"`
	StdErr      float64        `json:"stdErr"`
	Significant bool           `json:"significant"`
	Direction   TrendDirection `json:"direction"`

	SlopePerYear float64 `json:"slopePerYear"`
	TotalChange  float64 `json:"totalChange"` // fitted change over the observed span
	NPoints      int     `json:"nPoints"`
	SpanDays     float64 `json:"spanDays"`
}

// LinearTrend regresses values against days elapsed since the first date.
// NaN values are dropped along with their dates. Needs at least three
// finite points; a zero-variance time axis is degenerate.
func LinearTrend(dates []time.Time, values []float64) (*TrendResult, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("trend: %d dates for %d values: %w", len(dates), len(values), ErrShapeMismatch)
	}

	var xs, ys []float64
	var first time.Time
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if len(xs) == 0 {
			first = dates[i]
		}
		xs = append(xs, dates[i].Sub(first).Hours()/24)
		ys = append(ys, v)
	}
	if len(xs) < 3 {
		return nil, fmt.Errorf("trend: %d finite points, need 3: %w", len(xs), ErrInsufficientData)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil, fmt.Errorf("trend: zero time span: %w", ErrDegenerate)
	}

	res := &TrendResult{
		Slope:        beta,
		Intercept:    alpha,
		R2:           stat.RSquared(xs, ys, nil, alpha, beta),
		SlopePerYear: beta * 365.25,
		NPoints:      len(xs),
		SpanDays:     xs[len(xs)-1] - xs[0],
	}
	res.TotalChange = beta * res.SpanDays

	// Standard error of the slope and its two-tailed t test.
	n := float64(len(xs))
	xMean := stat.Mean(xs, nil)
	var ssRes, ssX float64
	for i := range xs {
		r := ys[i] - (alpha + beta*xs[i])
		ssRes += r * r
		d := xs[i] - xMean
		ssX += d * d
	}
	if ssX == 0 {
		return nil, fmt.Errorf("trend: zero time span: %w", ErrDegenerate)
	}
	if ssRes == 0 {
		// Perfect fit; the slope is exact.
		res.PValue = 0
	} else {
		res.StdErr = math.Sqrt(ssRes / (n - 2) / ssX)
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
		res.PValue = 2 * t.CDF(-math.Abs(beta/res.StdErr))
	}

	res.Significant = res.PValue < 0.05
	switch {
	case res.Significant && beta > 0:
		res.Direction = TrendIncreasing
	case res.Significant && beta < 0:
		res.Direction = TrendDecreasing
	default:
		res.Direction = TrendNone
	}
	return res, nil
}

// MannKendallResult holds the non-parametric monotonic trend test.
type MannKendallResult struct {
	S           int            `json:"s"`
	Tau         float64        `json:"tau"`
	ZScore      float64        `json:"zScore"`
	PValue      float64        `json:"pValue"`
	Significant bool           `json:"significant"`
	Direction   TrendDirection `json:"direction"`
}

// MannKendall runs the Mann-Kendall monotonic trend test over a series in
// temporal order. NaN values are dropped. Needs at least three finite
// points. The variance uses the tie-corrected normal approximation.
func MannKendall(values []float64) (*MannKendallResult, error) {
	var xs []float64
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			xs = append(xs, v)
		}
	}
	n := len(xs)
	if n < 3 {
		return nil, fmt.Errorf("mann-kendall: %d finite points, need 3: %w", n, ErrInsufficientData)
	}

	s := 0
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			switch {
			case xs[j] > xs[i]:
				s++
			case xs[j] < xs[i]:
				s--
			}
		}
	}

	// Tie correction over groups of equal values.
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	tieTerm := 0.0
	for i := 0; i < n; {
		j := i
		for j < n && sorted[j] == sorted[i] {
			j++
		}
		if t := float64(j - i); t > 1 {
			tieTerm += t * (t - 1) * (2*t + 5)
		}
		i = j
	}

	nf := float64(n)
	variance := (nf*(nf-1)*(2*nf+5) - tieTerm) / 18
	if variance <= 0 {
		return nil, fmt.Errorf("mann-kendall: constant series: %w", ErrDegenerate)
	}

	res := &MannKendallResult{
		S:   s,
		Tau: float64(s) / (nf * (nf - 1) / 2),
	}
	switch {
	case s > 0:
		res.ZScore = (float64(s) - 1) / math.Sqrt(variance)
	case s < 0:
		res.ZScore = (float64(s) + 1) / math.Sqrt(variance)
	}
	res.PValue = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(res.ZScore)))
	res.Significant = res.PValue < 0.05
	switch {
	case res.Significant && s > 0:
		res.Direction = TrendIncreasing
	case res.Significant && s < 0:
		res.Direction = TrendDecreasing
	default:
		res.Direction = TrendNone
	}
	return res, nil
}

// VelocityPoint is one consecutive-pair change rate in a summary series.
type VelocityPoint struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Days          float64   `json:"days"`
	Change        float64   `json:"change"`
	PerDay        float64   `json:"perDay"`
	PercentChange float64   `json:"percentChange"` // 0 when the starting value is 0
}

// RollingVelocity computes the per-day change between consecutive finite
// points of a dated series. Pairs with non-positive elapsed time or a NaN
// endpoint are skipped. An empty result is valid output, not an error.
func RollingVelocity(dates []time.Time, values []float64) ([]VelocityPoint, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("velocity: %d dates for %d values: %w", len(dates), len(values), ErrShapeMismatch)
	}

	var out []VelocityPoint
	prev := -1
	for i := range values {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		if prev >= 0 {
			days := dates[i].Sub(dates[prev]).Hours() / 24
			if days > 0 {
				p := VelocityPoint{
					From:   dates[prev],
					To:     dates[i],
					Days:   days,
					Change: values[i] - values[prev],
				}
				p.PerDay = p.Change / days
				if values[prev] != 0 {
					p.PercentChange = p.Change / math.Abs(values[prev]) * 100
				}
				out = append(out, p)
			}
		}
		prev = i
	}
	return out, nil
}
