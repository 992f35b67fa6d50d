package geo

import (
	"math"
	"testing"
)

func mustGrid(t *testing.T, rows [][]float64) *Grid {
	t.Helper()
	g, err := NewGridFrom(rows)
	if err != nil {
		t.Fatalf("NewGridFrom: %v", err)
	}
	return g
}

var nan = math.NaN()

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewGrid_AllNaN(t *testing.T) {
	g := NewGrid(3, 4)
	if g.Rows != 3 || g.Cols != 4 {
		t.Fatalf("shape = %dx%d, want 3x4", g.Rows, g.Cols)
	}
	if g.ValidCount() != 0 {
		t.Errorf("ValidCount = %d, want 0", g.ValidCount())
	}
}

func TestNewGridFrom_RaggedRows(t *testing.T) {
	_, err := NewGridFrom([][]float64{{1, 2}, {3}})
	if err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestNewGridFrom_Empty(t *testing.T) {
	_, err := NewGridFrom(nil)
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

// ---------------------------------------------------------------------------
// Validity
// ---------------------------------------------------------------------------

func TestValid_RecomputedFromData(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{1, nan},
		{math.Inf(1), 4},
	})

	m := g.Valid()
	if !m.At(0, 0) || m.At(0, 1) || m.At(1, 0) || !m.At(1, 1) {
		t.Errorf("mask = %v, want valid only at (0,0) and (1,1)", m.Data)
	}

	// The mask must track mutations because it is derived, not cached.
	g.Set(0, 1, 2.5)
	if !g.Valid().At(0, 1) {
		t.Error("mask did not reflect updated cell")
	}
}

func TestValidCells_RowMajorOrder(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{nan, 2},
		{3, nan},
	})

	cells, values := g.ValidCells()
	if len(cells) != 2 {
		t.Fatalf("len(cells) = %d, want 2", len(cells))
	}
	if cells[0] != (Cell{0, 1}) || values[0] != 2 {
		t.Errorf("first valid cell = %+v value %g, want (0,1) value 2", cells[0], values[0])
	}
	if cells[1] != (Cell{1, 0}) || values[1] != 3 {
		t.Errorf("second valid cell = %+v value %g, want (1,0) value 3", cells[1], values[1])
	}
}

// ---------------------------------------------------------------------------
// Clean
// ---------------------------------------------------------------------------

func TestClean_MapsInvalidValuesToNaN(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{0, -9999, 0.42},
		{math.Inf(-1), nan, 0.7},
	})

	cleaned := g.Clean(0, -9999)
	if cleaned.ValidCount() != 2 {
		t.Fatalf("ValidCount = %d, want 2", cleaned.ValidCount())
	}
	if cleaned.At(0, 2) != 0.42 || cleaned.At(1, 2) != 0.7 {
		t.Error("clean changed legitimate values")
	}

	// Original must be untouched.
	if g.At(0, 0) != 0 {
		t.Error("Clean mutated its receiver")
	}
}

func TestClone_Independent(t *testing.T) {
	g := mustGrid(t, [][]float64{{1, 2}})
	c := g.Clone()
	c.Set(0, 0, 99)
	if g.At(0, 0) != 1 {
		t.Error("clone shares backing storage with original")
	}
}
