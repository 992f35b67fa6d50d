package geo

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Color ramps
// ---------------------------------------------------------------------------

func TestRampEndpoints(t *testing.T) {
	if c := VegetationRamp(0); c != (color.NRGBA{140, 81, 10, 255}) {
		t.Errorf("VegetationRamp(0) = %v", c)
	}
	if c := VegetationRamp(1); c != (color.NRGBA{26, 121, 55, 255}) {
		t.Errorf("VegetationRamp(1) = %v", c)
	}
	if c := DivergingRamp(0.5); c != (color.NRGBA{247, 247, 247, 255}) {
		t.Errorf("DivergingRamp(0.5) = %v", c)
	}
	// Out-of-range input clamps rather than wrapping.
	if VegetationRamp(-3) != VegetationRamp(0) || VegetationRamp(7) != VegetationRamp(1) {
		t.Error("ramp input not clamped")
	}
}

func TestRampByName(t *testing.T) {
	if _, err := RampByName("vegetation"); err != nil {
		t.Errorf("vegetation: %v", err)
	}
	if _, err := RampByName(""); err != nil {
		t.Errorf("empty name should default: %v", err)
	}
	if _, err := RampByName("magma"); err == nil {
		t.Error("unknown palette should error")
	}
}

// ---------------------------------------------------------------------------
// Raster maps
// ---------------------------------------------------------------------------

func TestRenderHeatmap(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{0.0, 1.0},
		{nan, 0.5},
	})

	img := RenderHeatmap(g, VegetationRamp, 3)
	b := img.Bounds()
	if b.Dx() != 6 || b.Dy() != 6 {
		t.Fatalf("image is %dx%d, want 6x6", b.Dx(), b.Dy())
	}

	// Min cell takes the ramp start, max cell the ramp end.
	if got := img.NRGBAAt(0, 0); got != VegetationRamp(0) {
		t.Errorf("min cell = %v", got)
	}
	if got := img.NRGBAAt(3, 0); got != VegetationRamp(1) {
		t.Errorf("max cell = %v", got)
	}
	// NaN cell stays transparent.
	if got := img.NRGBAAt(0, 3); got.A != 0 {
		t.Errorf("invalid cell alpha = %d, want 0", got.A)
	}
}

func TestRenderHeatmap_AllNaN(t *testing.T) {
	g := NewGrid(2, 2)
	img := RenderHeatmap(g, VegetationRamp, 2)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				t.Fatalf("pixel (%d,%d) not transparent", x, y)
			}
		}
	}
}

func TestRenderHeatmap_ConstantGrid(t *testing.T) {
	g := mustGrid(t, [][]float64{{0.4, 0.4}, {0.4, 0.4}})
	img := RenderHeatmap(g, VegetationRamp, 1)
	// Zero span maps everything to ramp midpoint.
	if got := img.NRGBAAt(0, 0); got != VegetationRamp(0.5) {
		t.Errorf("constant cell = %v, want midpoint color", got)
	}
}

func TestRenderClassification(t *testing.T) {
	assignment := mustGrid(t, [][]float64{
		{0, 1},
		{-1, nan},
	})

	img := RenderClassification(assignment, 2)
	if img.NRGBAAt(0, 0) != ClassColors[0] {
		t.Errorf("class 0 = %v", img.NRGBAAt(0, 0))
	}
	if img.NRGBAAt(2, 0) != ClassColors[1] {
		t.Errorf("class 1 = %v", img.NRGBAAt(2, 0))
	}
	if img.NRGBAAt(0, 2) != noiseColor {
		t.Errorf("noise cell = %v, want gray", img.NRGBAAt(0, 2))
	}
	if img.NRGBAAt(2, 2).A != 0 {
		t.Error("NaN cell should stay transparent")
	}
}

func TestRenderHotspotMap(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{1, 1, 1, 1},
		{1, 9, 1, 1},
		{1, 1, 1, -7},
		{nan, 1, 1, 1},
	})
	res, err := DetectHotspots(g, MethodZScore, 1.5)
	if err != nil {
		t.Fatalf("DetectHotspots: %v", err)
	}

	img := RenderHotspotMap(g, res, 1)
	if got := img.NRGBAAt(1, 1); got != (color.NRGBA{202, 0, 32, 255}) {
		t.Errorf("hotspot pixel = %v", got)
	}
	if got := img.NRGBAAt(3, 2); got != (color.NRGBA{5, 113, 176, 255}) {
		t.Errorf("coldspot pixel = %v", got)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{225, 225, 225, 255}) {
		t.Errorf("base pixel = %v", got)
	}
	if img.NRGBAAt(0, 3).A != 0 {
		t.Error("invalid cell should stay transparent")
	}
}

// legendInk reports whether any pixel of the caption strip below a
// rasterHeight-pixel raster differs from the white background.
func legendInk(img *image.NRGBA, rasterHeight int) bool {
	b := img.Bounds()
	white := color.NRGBA{255, 255, 255, 255}
	for y := rasterHeight; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y) != white {
				return true
			}
		}
	}
	return false
}

func TestRenderHeatmapWithLegend(t *testing.T) {
	g := mustGrid(t, [][]float64{{0.0, 0.25, 0.5, 1.0}})

	img := RenderHeatmapWithLegend(g, VegetationRamp, 8)
	b := img.Bounds()
	if b.Dx() != 32 || b.Dy() != 8+legendHeight {
		t.Fatalf("image is %dx%d, want 32x%d", b.Dx(), b.Dy(), 8+legendHeight)
	}

	// The strip must not disturb the raster.
	if got := img.NRGBAAt(0, 0); got != VegetationRamp(0) {
		t.Errorf("min cell = %v", got)
	}
	if got := img.NRGBAAt(24, 0); got != VegetationRamp(1) {
		t.Errorf("max cell = %v", got)
	}
	if !legendInk(img, 8) {
		t.Error("caption strip is blank")
	}
}

func TestRenderHotspotMapWithLegend(t *testing.T) {
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

	img := RenderHotspotMapWithLegend(g, res, 4)
	b := img.Bounds()
	if b.Dx() != 16 || b.Dy() != 16+legendHeight {
		t.Fatalf("image is %dx%d, want 16x%d", b.Dx(), b.Dy(), 16+legendHeight)
	}
	if got := img.NRGBAAt(4, 4); got != (color.NRGBA{202, 0, 32, 255}) {
		t.Errorf("hotspot pixel = %v", got)
	}
	if !legendInk(img, 16) {
		t.Error("caption strip is blank")
	}
}

func TestEncodePNG(t *testing.T) {
	g := mustGrid(t, [][]float64{{0.2, 0.8}})
	img := RenderHeatmap(g, VegetationRamp, 2)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG stream")
	}
}

// ---------------------------------------------------------------------------
// Vector outlines
// ---------------------------------------------------------------------------

func TestZoneOutlineRenderer_SVG(t *testing.T) {
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

	var buf bytes.Buffer
	zr := NewZoneOutlineRenderer()
	if err := zr.RenderSVG(&buf, g, res); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Error("output missing svg element")
	}
	if !strings.Contains(out, "path") {
		t.Error("output missing path elements")
	}
}

func TestZoneOutlineRenderer_PNG(t *testing.T) {
	g := mustGrid(t, [][]float64{
		{1, 2},
		{3, 4},
	})
	res, err := PartitionQuadrants(g, 1, 2)
	if err != nil {
		t.Fatalf("PartitionQuadrants: %v", err)
	}

	var buf bytes.Buffer
	zr := NewZoneOutlineRenderer()
	if err := zr.RenderPNG(&buf, g, res); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG stream")
	}
}
