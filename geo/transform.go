package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoTransform maps grid indices to geographic coordinates with the usual
// six-coefficient affine convention:
//
//	x = A + B*col + C*row
//	y = D + E*col + F*row
//
// The statistics in this package work purely in row/col space; the
// transform exists so callers can place results on a map afterwards.
type GeoTransform struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c"`
	D float64 `json:"d" yaml:"d"`
	E float64 `json:"e" yaml:"e"`
	F float64 `json:"f" yaml:"f"`
}

// IdentityTransform maps cell (row, col) to the unit-square center
// (col+0.5, row+0.5), useful for tests and unprojected grids.
func IdentityTransform() GeoTransform {
	return GeoTransform{A: 0, B: 1, C: 0, D: 0, E: 0, F: 1}
}

// Apply maps fractional grid coordinates to an orb.Point.
func (t GeoTransform) Apply(row, col float64) orb.Point {
	return orb.Point{
		t.A + t.B*col + t.C*row,
		t.D + t.E*col + t.F*row,
	}
}

// CellCenter maps a cell to the geographic point at its center.
func (t GeoTransform) CellCenter(cell Cell) orb.Point {
	return t.Apply(float64(cell.Row)+0.5, float64(cell.Col)+0.5)
}

// RegionsToGeoJSON converts labeled regions to a FeatureCollection of
// centroid points with label and size properties.
func RegionsToGeoJSON(regions *RegionResult, t GeoTransform) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, reg := range regions.Regions {
		f := geojson.NewFeature(t.Apply(reg.CentroidRow+0.5, reg.CentroidCol+0.5))
		f.Properties["label"] = reg.Label
		f.Properties["size"] = reg.Size
		fc.Append(f)
	}
	return fc
}

// HotspotsToGeoJSON converts hotspot and coldspot cells to a
// FeatureCollection of cell-center points, tagged with a "kind" property
// of "hotspot" or "coldspot" and the cell's value.
func HotspotsToGeoJSON(g *Grid, res *HotspotResult, t GeoTransform) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	appendCells := func(mask *Mask, kind string) {
		for r := 0; r < mask.Rows; r++ {
			for c := 0; c < mask.Cols; c++ {
				if !mask.At(r, c) {
					continue
				}
				f := geojson.NewFeature(t.CellCenter(Cell{Row: r, Col: c}))
				f.Properties["kind"] = kind
				if v := g.At(r, c); !math.IsNaN(v) {
					f.Properties["value"] = v
				}
				fc.Append(f)
			}
		}
	}
	appendCells(res.Hotspots, "hotspot")
	appendCells(res.Coldspots, "coldspot")
	return fc
}

// QuadrantsToGeoJSON converts quadrant tiles to polygon features carrying
// their zone statistics.
func QuadrantsToGeoJSON(res *QuadrantResult, t GeoTransform) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, q := range res.Quadrants {
		ring := orb.Ring{
			t.Apply(float64(q.RowStart), float64(q.ColStart)),
			t.Apply(float64(q.RowStart), float64(q.ColEnd)),
			t.Apply(float64(q.RowEnd), float64(q.ColEnd)),
			t.Apply(float64(q.RowEnd), float64(q.ColStart)),
			t.Apply(float64(q.RowStart), float64(q.ColStart)),
		}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["tileRow"] = q.TileRow
		f.Properties["tileCol"] = q.TileCol
		f.Properties["nPixels"] = q.Stats.NPixels
		if q.Stats.NPixels > 0 {
			f.Properties["mean"] = q.Stats.Mean
		}
		fc.Append(f)
	}
	return fc
}
