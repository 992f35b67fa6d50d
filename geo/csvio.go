package geo

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// LoadPixelCSV reads a pixel table with header "row,col,value" (extra
// columns are ignored) into a grid sized to the maximum indices seen.
// Cells absent from the table stay NaN, and a value field of "nan" or an
// empty string also yields NaN. WritePixelCSV always records the corner
// cell, so its output reloads at the full grid shape; tables from other
// sources shrink to their largest populated indices.
func LoadPixelCSV(r io.Reader) (*Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("pixel csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("pixel csv: no data rows: %w", ErrNoData)
	}

	type pixel struct {
		row, col int
		value    float64
	}
	pixels := make([]pixel, 0, len(records)-1)
	maxRow, maxCol := 0, 0

	for i, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("pixel csv: line %d: want at least 3 fields, got %d", i+2, len(rec))
		}
		row, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("pixel csv: line %d: row: %w", i+2, err)
		}
		col, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("pixel csv: line %d: col: %w", i+2, err)
		}
		if row < 0 || col < 0 {
			return nil, fmt.Errorf("pixel csv: line %d: negative index %d,%d", i+2, row, col)
		}

		value := math.NaN()
		if rec[2] != "" {
			value, err = strconv.ParseFloat(rec[2], 64)
			if err != nil {
				return nil, fmt.Errorf("pixel csv: line %d: value: %w", i+2, err)
			}
		}

		pixels = append(pixels, pixel{row: row, col: col, value: value})
		if row > maxRow {
			maxRow = row
		}
		if col > maxCol {
			maxCol = col
		}
	}

	g := NewGrid(maxRow+1, maxCol+1)
	for _, p := range pixels {
		g.Set(p.row, p.col, p.value)
	}
	return g, nil
}

// WritePixelCSV writes the valid cells of a grid as "row,col,value".
// NaN cells are omitted, except that the corner cell (Rows-1, Cols-1) is
// always written, as "NaN" when invalid, so LoadPixelCSV recovers the
// grid shape even when trailing rows or columns hold no data.
func WritePixelCSV(w io.Writer, g *Grid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "col", "value"}); err != nil {
		return fmt.Errorf("pixel csv: %w", err)
	}
	cornerWritten := false
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			v := g.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			rec := []string{
				strconv.Itoa(r),
				strconv.Itoa(c),
				strconv.FormatFloat(v, 'g', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("pixel csv: %w", err)
			}
			if r == g.Rows-1 && c == g.Cols-1 {
				cornerWritten = true
			}
		}
	}
	if !cornerWritten && g.Rows > 0 && g.Cols > 0 {
		rec := []string{strconv.Itoa(g.Rows - 1), strconv.Itoa(g.Cols - 1), "NaN"}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("pixel csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteZoneStatsCSV exports zone statistics (clusters, quadrants or
// labeled regions) as one row per zone.
func WriteZoneStatsCSV(w io.Writer, zones []ZoneStats) error {
	cw := csv.NewWriter(w)
	header := []string{"zone", "n_pixels", "percent", "mean", "median", "std", "min", "max"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("zone csv: %w", err)
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, z := range zones {
		rec := []string{
			strconv.Itoa(z.Zone),
			strconv.Itoa(z.NPixels),
			f(z.Percent), f(z.Mean), f(z.Median), f(z.Std), f(z.Min), f(z.Max),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("zone csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
