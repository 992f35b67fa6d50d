package geo

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ColorRamp maps a normalized value in [0,1] to a color.
type ColorRamp func(t float64) color.NRGBA

// VegetationRamp runs brown through yellow to green, the conventional
// look for vegetation-index maps.
func VegetationRamp(t float64) color.NRGBA {
	t = clamp01(t)
	if t < 0.5 {
		// brown -> yellow
		u := t * 2
		return lerpColor(color.NRGBA{140, 81, 10, 255}, color.NRGBA{255, 255, 191, 255}, u)
	}
	u := (t - 0.5) * 2
	return lerpColor(color.NRGBA{255, 255, 191, 255}, color.NRGBA{26, 121, 55, 255}, u)
}

// DivergingRamp runs red through white to blue, centered at 0.5, for
// difference surfaces.
func DivergingRamp(t float64) color.NRGBA {
	t = clamp01(t)
	if t < 0.5 {
		u := t * 2
		return lerpColor(color.NRGBA{178, 24, 43, 255}, color.NRGBA{247, 247, 247, 255}, u)
	}
	u := (t - 0.5) * 2
	return lerpColor(color.NRGBA{247, 247, 247, 255}, color.NRGBA{33, 102, 172, 255}, u)
}

// RampByName resolves a config palette tag.
func RampByName(name string) (ColorRamp, error) {
	switch name {
	case "", "vegetation":
		return VegetationRamp, nil
	case "diverging":
		return DivergingRamp, nil
	default:
		return nil, fmt.Errorf("palette %q: %w", name, ErrUnknownMethod)
	}
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(a.R) + t*(float64(b.R)-float64(a.R))),
		G: uint8(float64(a.G) + t*(float64(b.G)-float64(a.G))),
		B: uint8(float64(a.B) + t*(float64(b.B)-float64(a.B))),
		A: uint8(float64(a.A) + t*(float64(b.A)-float64(a.A))),
	}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// RenderHeatmap rasterizes a grid with the ramp stretched over the grid's
// own min..max. Invalid cells are fully transparent. scale is the output
// pixel size of one cell (minimum 1). A grid with no valid cells renders
// as an entirely transparent image.
func RenderHeatmap(g *Grid, ramp ColorRamp, scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, g.Cols*scale, g.Rows*scale))

	stats := Describe(g)
	span := stats.Max - stats.Min

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			v := g.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			t := 0.5
			if span > 0 {
				t = (v - stats.Min) / span
			}
			fillCell(img, r, c, scale, ramp(t))
		}
	}
	return img
}

// ClassColors is the default categorical palette for cluster ids, indexed
// modulo its length. Noise (-1) renders gray.
var ClassColors = []color.NRGBA{
	{31, 119, 180, 255},
	{255, 127, 14, 255},
	{44, 160, 44, 255},
	{214, 39, 40, 255},
	{148, 103, 189, 255},
	{140, 86, 75, 255},
	{227, 119, 194, 255},
	{127, 127, 127, 255},
}

var noiseColor = color.NRGBA{190, 190, 190, 255}

// RenderClassification rasterizes a cluster assignment grid. Cells hold
// integer labels stored as floats; -1 (DBSCAN noise) renders gray and NaN
// cells stay transparent.
func RenderClassification(assignment *Grid, scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, assignment.Cols*scale, assignment.Rows*scale))
	for r := 0; r < assignment.Rows; r++ {
		for c := 0; c < assignment.Cols; c++ {
			v := assignment.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			id := int(v)
			col := noiseColor
			if id >= 0 {
				col = ClassColors[id%len(ClassColors)]
			}
			fillCell(img, r, c, scale, col)
		}
	}
	return img
}

// RenderHotspotMap rasterizes a hotspot result over a neutral base: valid
// cells are light gray, hotspots red, coldspots blue, invalid transparent.
func RenderHotspotMap(g *Grid, res *HotspotResult, scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, g.Cols*scale, g.Rows*scale))
	base := color.NRGBA{225, 225, 225, 255}
	hot := color.NRGBA{202, 0, 32, 255}
	cold := color.NRGBA{5, 113, 176, 255}
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if !g.IsValid(r, c) {
				continue
			}
			col := base
			switch {
			case res.Hotspots.At(r, c):
				col = hot
			case res.Coldspots.At(r, c):
				col = cold
			}
			fillCell(img, r, c, scale, col)
		}
	}
	return img
}

func fillCell(img *image.NRGBA, row, col, scale int, c color.NRGBA) {
	for y := row * scale; y < (row+1)*scale; y++ {
		for x := col * scale; x < (col+1)*scale; x++ {
			img.Set(x, y, c)
		}
	}
}

// DrawLabel renders small annotation text onto an image at (x, y) using
// the built-in 7x13 face. Good enough for legends; full typography is out
// of scope for raster summaries.
func DrawLabel(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// legendHeight is the pixel height of the caption strip appended below a
// rendered map, sized to fit one line of the 7x13 face.
const legendHeight = 16

// withLegend returns img extended by a white strip below the raster with
// the caption drawn in it. The raster pixels are copied unchanged.
func withLegend(img *image.NRGBA, caption string) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+legendHeight))
	draw.Draw(out, b, img, b.Min, draw.Src)
	strip := image.Rect(0, b.Dy(), b.Dx(), b.Dy()+legendHeight)
	draw.Draw(out, strip, image.NewUniform(color.White), image.Point{}, draw.Src)
	DrawLabel(out, 2, b.Dy()+12, caption, color.NRGBA{40, 40, 40, 255})
	return out
}

// RenderHeatmapWithLegend is RenderHeatmap plus a caption strip giving the
// value range the ramp was stretched over.
func RenderHeatmapWithLegend(g *Grid, ramp ColorRamp, scale int) *image.NRGBA {
	stats := Describe(g)
	caption := "no data"
	if stats.N > 0 {
		caption = fmt.Sprintf("min %.3g  max %.3g", stats.Min, stats.Max)
	}
	return withLegend(RenderHeatmap(g, ramp, scale), caption)
}

// RenderHotspotMapWithLegend is RenderHotspotMap plus a caption strip
// giving the hot and cold cell counts.
func RenderHotspotMapWithLegend(g *Grid, res *HotspotResult, scale int) *image.NRGBA {
	caption := fmt.Sprintf("hot %d  cold %d", res.NHotspots, res.NColdspots)
	return withLegend(RenderHotspotMap(g, res, scale), caption)
}

// EncodePNG writes an image as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// canvasRenderer is the surface shared by the svg and rasterizer backends.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// ZoneOutlineRenderer draws quadrant tile outlines as vector graphics,
// scaled so one grid cell maps to CellSize canvas units.
type ZoneOutlineRenderer struct {
	CellSize    float64
	StrokeWidth float64
	Stroke      color.NRGBA
	Resolution  canvas.Resolution
}

// NewZoneOutlineRenderer returns a renderer with defaults suitable for
// report figures.
func NewZoneOutlineRenderer() *ZoneOutlineRenderer {
	return &ZoneOutlineRenderer{
		CellSize:    4.0,
		StrokeWidth: 0.8,
		Stroke:      color.NRGBA{60, 60, 60, 255},
		Resolution:  canvas.DPI(300),
	}
}

// RenderSVG writes the tile outlines of a quadrant partition as SVG.
func (zr *ZoneOutlineRenderer) RenderSVG(w io.Writer, g *Grid, res *QuadrantResult) error {
	width := float64(g.Cols) * zr.CellSize
	height := float64(g.Rows) * zr.CellSize

	svgRenderer := svg.New(w, width, height, nil)
	zr.renderToCanvas(svgRenderer, g, res, width, height)
	return svgRenderer.Close()
}

// RenderPNG writes the tile outlines of a quadrant partition as PNG.
func (zr *ZoneOutlineRenderer) RenderPNG(w io.Writer, g *Grid, res *QuadrantResult) error {
	width := float64(g.Cols) * zr.CellSize
	height := float64(g.Rows) * zr.CellSize

	rast := rasterizer.New(width, height, zr.Resolution, canvas.DefaultColorSpace)
	zr.renderToCanvas(rast, g, res, width, height)
	return png.Encode(w, rast)
}

func (zr *ZoneOutlineRenderer) renderToCanvas(renderer canvasRenderer, g *Grid, res *QuadrantResult, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	outline := canvas.DefaultStyle
	outline.Fill = canvas.Paint{Color: canvas.Transparent}
	outline.Stroke = canvas.Paint{Color: color.RGBA{zr.Stroke.R, zr.Stroke.G, zr.Stroke.B, zr.Stroke.A}}
	outline.StrokeWidth = zr.StrokeWidth

	// Canvas y runs upward; grid rows run downward.
	toCanvas := func(row, col int) (float64, float64) {
		return float64(col) * zr.CellSize, height - float64(row)*zr.CellSize
	}

	for _, q := range res.Quadrants {
		p := &canvas.Path{}
		x0, y0 := toCanvas(q.RowStart, q.ColStart)
		x1, y1 := toCanvas(q.RowEnd, q.ColEnd)
		p.MoveTo(x0, y0)
		p.LineTo(x1, y0)
		p.LineTo(x1, y1)
		p.LineTo(x0, y1)
		p.Close()
		renderer.RenderPath(p, outline, canvas.Identity)
	}
}
