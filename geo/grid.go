package geo

import (
	"fmt"
	"math"
)

// Grid is a rectangular raster of float64 values stored row-major.
// A NaN value marks a cell with no data (outside the area of interest,
// a sensor gap, or a value removed by cleaning). Every analysis in this
// package skips NaN cells; none of them ever writes a result into one.
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

// NewGrid allocates a rows x cols grid with every cell set to NaN.
func NewGrid(rows, cols int) *Grid {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid{Rows: rows, Cols: cols, Data: data}
}

// NewGridFrom builds a grid from a row-major slice of rows.
// All rows must have the same length.
func NewGridFrom(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("grid from rows: %w", ErrNoData)
	}
	cols := len(rows[0])
	g := &Grid{Rows: len(rows), Cols: cols, Data: make([]float64, 0, len(rows)*cols)}
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("grid from rows: row %d has %d columns, want %d: %w", i, len(row), cols, ErrShapeMismatch)
		}
		g.Data = append(g.Data, row...)
	}
	return g, nil
}

// At returns the value at (row, col). Out-of-range indices panic, matching
// slice semantics.
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set writes the value at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// IsValid reports whether the cell at (row, col) holds a finite value.
func (g *Grid) IsValid(row, col int) bool {
	v := g.Data[row*g.Cols+col]
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SameShape reports whether the other grid has identical dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return &Grid{Rows: g.Rows, Cols: g.Cols, Data: data}
}

// Valid recomputes the validity mask from the current cell values.
// The mask is always derived, never stored, so it cannot drift from the data.
func (g *Grid) Valid() *Mask {
	m := NewMask(g.Rows, g.Cols)
	for i, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			m.Data[i] = true
		}
	}
	return m
}

// ValidCount returns the number of finite cells.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}

// ValidValues collects the finite cell values in row-major order.
func (g *Grid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Cell identifies a grid position.
type Cell struct {
	Row int
	Col int
}

// ValidCells collects the positions and values of finite cells in
// row-major order. The two slices are index-aligned.
func (g *Grid) ValidCells() ([]Cell, []float64) {
	cells := make([]Cell, 0, len(g.Data))
	values := make([]float64, 0, len(g.Data))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			v := g.Data[r*g.Cols+c]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				cells = append(cells, Cell{Row: r, Col: c})
				values = append(values, v)
			}
		}
	}
	return cells, values
}

// Clean returns a copy of the grid with every non-finite value and every
// value found in invalid replaced by NaN. Sensor products often encode
// nodata as magic numbers (0, -9999, 255); cleaning normalizes them all to
// the single NaN sentinel the rest of the package understands.
func (g *Grid) Clean(invalid ...float64) *Grid {
	out := g.Clone()
	for i, v := range out.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out.Data[i] = math.NaN()
			continue
		}
		for _, bad := range invalid {
			if v == bad {
				out.Data[i] = math.NaN()
				break
			}
		}
	}
	return out
}

// Mask is a boolean raster sharing Grid's row-major layout.
type Mask struct {
	Rows int
	Cols int
	Data []bool
}

// NewMask allocates an all-false mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Data: make([]bool, rows*cols)}
}

// At returns the mask value at (row, col).
func (m *Mask) At(row, col int) bool {
	return m.Data[row*m.Cols+col]
}

// Set writes the mask value at (row, col).
func (m *Mask) Set(row, col int, v bool) {
	m.Data[row*m.Cols+col] = v
}

// CountTrue returns the number of set cells.
func (m *Mask) CountTrue() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// LabelMap is an integer raster where 0 means "not in mask" and positive
// labels identify connected regions.
type LabelMap struct {
	Rows int
	Cols int
	Data []int
}

// NewLabelMap allocates an all-zero label map.
func NewLabelMap(rows, cols int) *LabelMap {
	return &LabelMap{Rows: rows, Cols: cols, Data: make([]int, rows*cols)}
}

// At returns the label at (row, col).
func (lm *LabelMap) At(row, col int) int {
	return lm.Data[row*lm.Cols+col]
}
