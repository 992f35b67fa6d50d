package geo

import (
	"fmt"
	"math"
)

// Quadrant is one tile of a rectangular grid partition with its stats.
// Bounds are half-open: rows [RowStart, RowEnd), cols [ColStart, ColEnd).
type Quadrant struct {
	TileRow  int `json:"tileRow"`
	TileCol  int `json:"tileCol"`
	RowStart int `json:"rowStart"`
	RowEnd   int `json:"rowEnd"`
	ColStart int `json:"colStart"`
	ColEnd   int `json:"colEnd"`

	Stats ZoneStats `json:"stats"`
}

// QuadrantResult is the output of PartitionQuadrants.
type QuadrantResult struct {
	NRows     int        `json:"nRows"`
	NCols     int        `json:"nCols"`
	Quadrants []Quadrant `json:"quadrants"`
}

// PartitionQuadrants tiles the grid into nRows x nCols near-equal
// rectangles and reports per-tile statistics over valid cells. The last
// row and column of tiles absorb any remainder so every cell belongs to
// exactly one tile. A tile with no valid cells reports NPixels == 0; this
// is a local condition, never a failure.
func PartitionQuadrants(g *Grid, nRows, nCols int) (*QuadrantResult, error) {
	if nRows < 1 || nCols < 1 {
		return nil, fmt.Errorf("quadrants: tile counts must be >= 1, got %dx%d: %w", nRows, nCols, ErrBadParam)
	}
	if nRows > g.Rows || nCols > g.Cols {
		return nil, fmt.Errorf("quadrants: %dx%d tiles for a %dx%d grid: %w", nRows, nCols, g.Rows, g.Cols, ErrBadParam)
	}

	tileH := g.Rows / nRows
	tileW := g.Cols / nCols
	totalValid := g.ValidCount()

	res := &QuadrantResult{NRows: nRows, NCols: nCols}
	for i := 0; i < nRows; i++ {
		rowStart := i * tileH
		rowEnd := rowStart + tileH
		if i == nRows-1 {
			rowEnd = g.Rows
		}
		for j := 0; j < nCols; j++ {
			colStart := j * tileW
			colEnd := colStart + tileW
			if j == nCols-1 {
				colEnd = g.Cols
			}

			var vals []float64
			for r := rowStart; r < rowEnd; r++ {
				for c := colStart; c < colEnd; c++ {
					v := g.At(r, c)
					if !math.IsNaN(v) && !math.IsInf(v, 0) {
						vals = append(vals, v)
					}
				}
			}

			res.Quadrants = append(res.Quadrants, Quadrant{
				TileRow:  i,
				TileCol:  j,
				RowStart: rowStart,
				RowEnd:   rowEnd,
				ColStart: colStart,
				ColEnd:   colEnd,
				Stats:    newZoneStats(i*nCols+j, vals, totalValid),
			})
		}
	}
	return res, nil
}
