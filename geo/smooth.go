package geo

import (
	"fmt"
	"math"
)

// SmoothGaussian denoises a grid with a Gaussian kernel of the given sigma.
// Invalid cells are filled with the grid median before convolving so the
// kernel never mixes NaN into its support, then NaN is re-imposed at the
// originally invalid cells: smoothing must not fabricate data where the
// mask says there is none.
//
// A grid with zero valid cells is returned unchanged (as a copy).
func SmoothGaussian(g *Grid, sigma float64) (*Grid, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("smooth: sigma must be positive, got %g: %w", sigma, ErrBadParam)
	}
	valid := g.Valid()
	if valid.CountTrue() == 0 {
		return g.Clone(), nil
	}

	median := Describe(g).Median

	filled := g.Clone()
	for i := range filled.Data {
		if !valid.Data[i] {
			filled.Data[i] = median
		}
	}

	kernel := gaussianKernel(sigma)
	smoothed := convolveSeparable(filled, kernel)

	for i := range smoothed.Data {
		if !valid.Data[i] {
			smoothed.Data[i] = math.NaN()
		}
	}
	return smoothed, nil
}

// gaussianKernel builds a normalized 1D Gaussian kernel with radius
// ceil(3*sigma), the conventional truncation.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// convolveSeparable applies the 1D kernel along rows, then columns.
// Borders mirror the grid about the cell edge (half-sample reflection),
// which keeps the total of the surface unchanged under a symmetric kernel.
func convolveSeparable(g *Grid, kernel []float64) *Grid {
	radius := len(kernel) / 2

	horizontal := NewGrid(g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			acc := 0.0
			for k, w := range kernel {
				cc := reflectIndex(c+k-radius, g.Cols)
				acc += w * g.At(r, cc)
			}
			horizontal.Set(r, c, acc)
		}
	}

	out := NewGrid(g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			acc := 0.0
			for k, w := range kernel {
				rr := reflectIndex(r+k-radius, g.Rows)
				acc += w * horizontal.At(rr, c)
			}
			out.Set(r, c, acc)
		}
	}
	return out
}

// reflectIndex maps an out-of-range index back into [0, n) by mirroring
// about the array edges: -1 -> 0, -2 -> 1, n -> n-1, n+1 -> n-2. Large
// kernels on small grids may need more than one fold.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
