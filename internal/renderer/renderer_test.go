package renderer

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/encode"
	"github.com/weatherwx/tileserve/internal/style"
)

func flatGrid(value float32, rows, cols int, bounds coord.BoundingBox) GridInput {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = value
	}
	return GridInput{Data: data, Rows: rows, Cols: cols, Bounds: bounds}
}

func TestResampleFlatGridInsideBounds(t *testing.T) {
	grid := flatGrid(5, 8, 8, coord.BoundingBox{MinLon: -20, MinLat: -20, MaxLon: 20, MaxLat: 20})
	req := Request{Z: 2, X: 2, Y: 1, TileSize: 16, BufferPx: 0, OutputProj: coord.Geographic}

	data, size := Resample(req, grid)
	if size != 16 {
		t.Fatalf("size = %d, want 16", size)
	}
	foundNonNaN := false
	for _, v := range data {
		if !math.IsNaN(float64(v)) {
			foundNonNaN = true
			if v != 5 {
				t.Errorf("sampled value = %v, want 5 on a flat grid", v)
			}
		}
	}
	if !foundNonNaN {
		t.Error("expected at least some in-bounds, non-NaN pixels")
	}
}

func TestResampleOutsideGridIsNaN(t *testing.T) {
	grid := flatGrid(1, 4, 4, coord.BoundingBox{MinLon: 170, MinLat: 80, MaxLon: 179, MaxLat: 85})
	req := Request{Z: 0, X: 0, Y: 0, TileSize: 8, BufferPx: 0, OutputProj: coord.Geographic}

	data, _ := Resample(req, grid)
	allNaN := true
	for _, v := range data {
		if !math.IsNaN(float64(v)) {
			allNaN = false
		}
	}
	if !allNaN {
		t.Error("expected a tile entirely outside the grid's bounds to sample all NaN")
	}
}

func TestCropExtractsInnerSquare(t *testing.T) {
	// 4x4 expanded buffer with a buffer of 1px, cropping to the inner 2x2.
	expanded := []float32{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	}
	got := crop(expanded, 4, 1, 2)
	want := []float32{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("crop()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRenderGradientProducesPalettedPNG(t *testing.T) {
	grid := flatGrid(20, 8, 8, coord.BoundingBox{MinLon: -20, MinLat: -20, MaxLon: 20, MaxLat: 20})
	def := style.Definition{
		Kind: style.KindGradient,
		Lo:   -40, Hi: 40,
		Stops: []style.ColorStop{{Value: -40}, {Value: 40}},
	}
	palette, err := style.BuildPalette(def)
	if err != nil {
		t.Fatalf("BuildPalette: %v", err)
	}

	req := Request{Z: 2, X: 2, Y: 1, TileSize: 16, BufferPx: 4, OutputProj: coord.Geographic}
	enc, err := encode.NewEncoder(encode.FormatPNG, 0)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	out, err := Render(req, grid, nil, def, palette, enc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected non-empty encoded bytes")
	}
}

func TestStyleToImageDefaultCanvasSize(t *testing.T) {
	def := style.Definition{Kind: style.KindVectorBarb, SpacingPx: 10}
	img := styleToImage(make([]float32, 4), nil, 2, def, nil)
	b := img.Bounds()
	if got := image.Pt(b.Dx(), b.Dy()); got.X != 2 || got.Y != 2 {
		t.Errorf("canvas size = %v, want 2x2", got)
	}
}

func TestStyleToImageContourDrawsSegments(t *testing.T) {
	// A 3x3 grid sloping from 0 to 8 crosses the interval=4 contour once.
	data := []float32{0, 2, 4, 2, 4, 6, 4, 6, 8}
	def := style.Definition{Kind: style.KindContour, Interval: 4, LineColor: color.NRGBA{R: 255, A: 255}, LineWidth: 1}
	img := styleToImage(data, nil, 3, def, nil).(*image.NRGBA)

	drawn := false
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				drawn = true
			}
		}
	}
	if !drawn {
		t.Error("expected at least one non-transparent pixel from the contour stroke")
	}
}

func TestStyleToImageBarbDrawsShafts(t *testing.T) {
	u := []float32{5, 5, 5, 5}
	v := []float32{0, 0, 0, 0}
	def := style.Definition{Kind: style.KindVectorBarb, SpacingPx: 1, Scale: 1, BarbColor: color.NRGBA{G: 255, A: 255}}
	img := styleToImage(u, v, 2, def, nil).(*image.NRGBA)

	drawn := false
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				drawn = true
			}
		}
	}
	if !drawn {
		t.Error("expected at least one non-transparent pixel from the barb shafts")
	}
}
