package geo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Neighborhood selects the adjacency used for spatial autocorrelation.
type Neighborhood int

const (
	// Queen uses all 8 surrounding cells, diagonals included.
	Queen Neighborhood = iota
	// Rook uses the 4 orthogonal neighbors only.
	Rook
)

func (n Neighborhood) String() string {
	if n == Rook {
		return "rook"
	}
	return "queen"
}

// ParseNeighborhood converts a config tag to a Neighborhood.
func ParseNeighborhood(s string) (Neighborhood, error) {
	switch s {
	case "queen":
		return Queen, nil
	case "rook":
		return Rook, nil
	default:
		return 0, fmt.Errorf("neighborhood %q: %w", s, ErrUnknownMethod)
	}
}

// MoranResult holds the global Moran's I statistic and its analytic
// significance test. Interpretation is one of "clustering", "dispersion"
// or "random".
type MoranResult struct {
	MoranI         float64 `json:"moranI"`
	ExpectedI      float64 `json:"expectedI"`
	ZScore         float64 `json:"zScore"`
	PValue         float64 `json:"pValue"`
	NValid         int     `json:"nValid"`
	WeightSum      int     `json:"weightSum"`
	Significant    bool    `json:"significant"`
	Interpretation string  `json:"interpretation"`
}

// MoranI computes global spatial autocorrelation over the valid cells of g
// under the chosen neighborhood. Every valid neighbor pair contributes a
// binary weight; boundary cells simply have fewer neighbors.
//
// The variance of I under the null is the simplified 1/(N-1) approximation
// rather than the full randomization variance, which also depends on the
// kurtosis of the surface. Kept as-is deliberately: swapping in the full
// formula would shift every reported p-value.
//
// Returns ErrDegenerate when there are no valid neighbor pairs or the
// surface is constant (zero denominator).
func MoranI(g *Grid, hood Neighborhood) (*MoranResult, error) {
	valid := g.Valid()
	n := valid.CountTrue()
	if n == 0 {
		return nil, fmt.Errorf("moran: %w", ErrNoData)
	}

	mean := stat.Mean(g.ValidValues(), nil)

	offsets := offsets8
	if hood == Rook {
		offsets = offsets4
	}

	var numerator, denominator float64
	weightSum := 0
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if !valid.At(r, c) {
				continue
			}
			di := g.At(r, c) - mean
			denominator += di * di

			for _, d := range offsets {
				nr, nc := r+d[0], c+d[1]
				if nr < 0 || nr >= g.Rows || nc < 0 || nc >= g.Cols {
					continue
				}
				if !valid.At(nr, nc) {
					continue
				}
				numerator += di * (g.At(nr, nc) - mean)
				weightSum++
			}
		}
	}

	if weightSum == 0 || denominator == 0 {
		return nil, fmt.Errorf("moran: no neighbor pairs or constant surface: %w", ErrDegenerate)
	}

	res := &MoranResult{
		NValid:    n,
		WeightSum: weightSum,
	}
	res.MoranI = float64(n) / float64(weightSum) * (numerator / denominator)
	res.ExpectedI = -1 / float64(n-1)

	variance := 1 / float64(n-1)
	res.ZScore = (res.MoranI - res.ExpectedI) / math.Sqrt(variance)
	res.PValue = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(res.ZScore)))
	res.Significant = res.PValue < 0.05

	switch {
	case res.Significant && res.MoranI > res.ExpectedI:
		res.Interpretation = "clustering"
	case res.Significant && res.MoranI < res.ExpectedI:
		res.Interpretation = "dispersion"
	default:
		res.Interpretation = "random"
	}
	return res, nil
}
