package geo

import "errors"

// Sentinel errors returned by the analysis functions. Empty or degenerate
// data conditions (ErrNoData, ErrInsufficientData, ErrDegenerate) are
// expected on real satellite products and should be handled per-grid;
// ErrUnknownMethod and ErrBadParam indicate a caller bug.
var (
	// ErrNoData means the grid has zero valid cells.
	ErrNoData = errors.New("no valid cells")

	// ErrInsufficientData means the grid has fewer valid cells than the
	// algorithm's minimum (k for k-means, min samples for density clustering).
	ErrInsufficientData = errors.New("not enough valid cells")

	// ErrDegenerate means the statistic is undefined for the input, e.g.
	// Moran's I on a constant surface or with no valid neighbor pairs.
	ErrDegenerate = errors.New("degenerate input")

	// ErrShapeMismatch means two grids that must share a shape do not.
	ErrShapeMismatch = errors.New("grid shape mismatch")

	// ErrUnknownMethod means an unrecognized method tag was supplied.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrBadParam means a parameter is outside its valid range.
	ErrBadParam = errors.New("invalid parameter")
)
