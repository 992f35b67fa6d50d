package geo

import (
	"testing"

	"github.com/paulmach/orb"
)

// ---------------------------------------------------------------------------
// GeoTransform
// ---------------------------------------------------------------------------

func TestIdentityTransform_CellCenter(t *testing.T) {
	tr := IdentityTransform()

	got := tr.CellCenter(Cell{Row: 2, Col: 7})
	want := orb.Point{7.5, 2.5}
	if got != want {
		t.Errorf("CellCenter(2,7) = %v, want %v", got, want)
	}
	if p := tr.Apply(0, 0); p != (orb.Point{0, 0}) {
		t.Errorf("Apply(0,0) = %v", p)
	}
}

func TestGeoTransform_Affine(t *testing.T) {
	// UTM-style north-up transform: origin (500000, 4600000), 10m pixels,
	// y decreasing with row.
	tr := GeoTransform{A: 500000, B: 10, C: 0, D: 4600000, E: 0, F: -10}

	got := tr.Apply(3, 4)
	want := orb.Point{500040, 4599970}
	if got != want {
		t.Errorf("Apply(3,4) = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// GeoJSON export
// ---------------------------------------------------------------------------

func TestRegionsToGeoJSON(t *testing.T) {
	m := maskFrom(t, [][]int{
		{1, 1, 0},
		{0, 0, 0},
		{0, 0, 1},
	})
	res, err := LabelRegions(m, Conn4)
	if err != nil {
		t.Fatalf("LabelRegions: %v", err)
	}

	fc := RegionsToGeoJSON(res, IdentityTransform())
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}

	f := fc.Features[0]
	if f.Properties["label"] != 1 || f.Properties["size"] != 2 {
		t.Errorf("first feature props = %v", f.Properties)
	}
	// Region 1 spans (0,0) and (0,1): centroid row 0, col 0.5.
	if pt, ok := f.Geometry.(orb.Point); !ok || pt != (orb.Point{1.0, 0.5}) {
		t.Errorf("first centroid = %v, want (1, 0.5)", f.Geometry)
	}
}

func TestHotspotsToGeoJSON(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{1, 1, 1, 1},
		{1, 9, 1, 1},
		{1, 1, 1, -7},
		{1, 1, 1, 1},
	})
	res, err := DetectHotspots(g, MethodZScore, 1.5)
	if err != nil {
		t.Fatalf("DetectHotspots: %v", err)
	}
	if res.NHotspots != 1 || res.NColdspots != 1 {
		t.Fatalf("setup: %d hot, %d cold", res.NHotspots, res.NColdspots)
	}

	fc := HotspotsToGeoJSON(g, res, IdentityTransform())
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}

	kinds := map[string]int{}
	for _, f := range fc.Features {
		kinds[f.Properties["kind"].(string)]++
	}
	if kinds["hotspot"] != 1 || kinds["coldspot"] != 1 {
		t.Errorf("kinds = %v", kinds)
	}

	hot := fc.Features[0]
	if hot.Properties["value"] != 9.0 {
		t.Errorf("hotspot value = %v, want 9", hot.Properties["value"])
	}
	if pt := hot.Geometry.(orb.Point); pt != (orb.Point{1.5, 1.5}) {
		t.Errorf("hotspot center = %v, want (1.5, 1.5)", pt)
	}
}

func TestQuadrantsToGeoJSON(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	})
	res, err := PartitionQuadrants(g, 2, 2)
	if err != nil {
		t.Fatalf("PartitionQuadrants: %v", err)
	}

	fc := QuadrantsToGeoJSON(res, IdentityTransform())
	if len(fc.Features) != 4 {
		t.Fatalf("got %d features, want 4", len(fc.Features))
	}

	f := fc.Features[0]
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry is %T, want Polygon", f.Geometry)
	}
	if len(poly) != 1 || len(poly[0]) != 5 {
		t.Fatalf("ring has %d points, want closed 5-point ring", len(poly[0]))
	}
	if poly[0][0] != poly[0][4] {
		t.Error("ring not closed")
	}
	if f.Properties["nPixels"] != 4 {
		t.Errorf("nPixels = %v, want 4", f.Properties["nPixels"])
	}
	if f.Properties["mean"] != 3.5 {
		t.Errorf("mean = %v, want 3.5", f.Properties["mean"])
	}
}
