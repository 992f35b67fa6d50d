package geo

import (
	"fmt"
	"math"
)

// DiffResult describes the cell-wise change from an earlier grid to a
// later one. The three category masks are disjoint and together cover
// exactly the cells valid in both inputs. Threshold is the classification
// boundary actually used (half the standard deviation of the difference).
type DiffResult struct {
	Diff *Grid

	IncreaseStrong *Mask
	DecreaseStrong *Mask
	NoChange       *Mask

	Threshold float64 `json:"threshold"`

	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`

	NIncrease int     `json:"nIncrease"`
	NDecrease int     `json:"nDecrease"`
	NNoChange int     `json:"nNoChange"`
	NValid    int     `json:"nValid"`
	PctIncr   float64 `json:"pctIncrease"`
	PctDecr   float64 `json:"pctDecrease"`
	PctSame   float64 `json:"pctNoChange"`
}

// DiffGrids computes later - earlier per cell and classifies each change
// against a threshold of 0.5 times the standard deviation of the
// difference surface. A cell participates only when valid in both inputs.
//
// Returns ErrShapeMismatch for differently shaped grids and ErrNoData when
// no cell is valid in both.
func DiffGrids(earlier, later *Grid) (*DiffResult, error) {
	if !earlier.SameShape(later) {
		return nil, fmt.Errorf("diff: %dx%d vs %dx%d: %w",
			earlier.Rows, earlier.Cols, later.Rows, later.Cols, ErrShapeMismatch)
	}

	diff := NewGrid(earlier.Rows, earlier.Cols)
	for i := range diff.Data {
		a, b := earlier.Data[i], later.Data[i]
		if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
			continue
		}
		diff.Data[i] = b - a
	}

	stats := Describe(diff)
	if stats.N == 0 {
		return nil, fmt.Errorf("diff: %w", ErrNoData)
	}

	res := &DiffResult{
		Diff:           diff,
		IncreaseStrong: NewMask(diff.Rows, diff.Cols),
		DecreaseStrong: NewMask(diff.Rows, diff.Cols),
		NoChange:       NewMask(diff.Rows, diff.Cols),
		Threshold:      0.5 * stats.Std,
		Mean:           stats.Mean,
		Median:         stats.Median,
		Std:            stats.Std,
		Min:            stats.Min,
		Max:            stats.Max,
		NValid:         stats.N,
	}

	for i, d := range diff.Data {
		if math.IsNaN(d) {
			continue
		}
		switch {
		case d > res.Threshold:
			res.IncreaseStrong.Data[i] = true
			res.NIncrease++
		case d < -res.Threshold:
			res.DecreaseStrong.Data[i] = true
			res.NDecrease++
		default:
			res.NoChange.Data[i] = true
			res.NNoChange++
		}
	}

	res.PctIncr = float64(res.NIncrease) / float64(res.NValid) * 100
	res.PctDecr = float64(res.NDecrease) / float64(res.NValid) * 100
	res.PctSame = float64(res.NNoChange) / float64(res.NValid) * 100
	return res, nil
}

// ChangeVelocity returns the per-day rate of change between two grids of
// the same shape. Zero elapsed days yields an all-zero velocity grid at
// the cells valid in both inputs rather than an error.
func ChangeVelocity(earlier, later *Grid, days float64) (*Grid, error) {
	if !earlier.SameShape(later) {
		return nil, fmt.Errorf("velocity: %w", ErrShapeMismatch)
	}

	out := NewGrid(earlier.Rows, earlier.Cols)
	for i := range out.Data {
		a, b := earlier.Data[i], later.Data[i]
		if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
			continue
		}
		if days == 0 {
			out.Data[i] = 0
			continue
		}
		out.Data[i] = (b - a) / days
	}
	return out, nil
}
