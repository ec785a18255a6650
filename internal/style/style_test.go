package style

import (
	"image/color"
	"math"
	"testing"
)

func sampleGradient() Definition {
	return Definition{
		Name: "temperature",
		Kind: KindGradient,
		Lo:   -40,
		Hi:   40,
		Stops: []ColorStop{
			{Value: -40, Color: color.NRGBA{B: 255, A: 255}},
			{Value: 0, Color: color.NRGBA{G: 255, A: 255}},
			{Value: 40, Color: color.NRGBA{R: 255, A: 255}},
		},
		OutOfRange: OutOfRangeTransparent,
	}
}

func TestValidateRejectsTooFewStops(t *testing.T) {
	d := sampleGradient()
	d.Stops = d.Stops[:1]
	if err := d.Validate(); err == nil {
		t.Error("expected validation error for a single-stop gradient")
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	d := sampleGradient()
	c, ok := d.interpolate(0)
	if !ok {
		t.Fatal("expected a color at the midpoint stop")
	}
	if c.G != 255 {
		t.Errorf("interpolate(0) = %+v, want pure green", c)
	}
}

func TestInterpolateOutOfRangeTransparent(t *testing.T) {
	d := sampleGradient()
	_, ok := d.interpolate(100)
	if ok {
		t.Error("expected out-of-range value to be rejected under the transparent policy")
	}
}

func TestInterpolateOutOfRangeClamp(t *testing.T) {
	d := sampleGradient()
	d.OutOfRange = OutOfRangeClamp
	c, ok := d.interpolate(100)
	if !ok {
		t.Fatal("expected clamp policy to still return a color")
	}
	if c.R != 255 {
		t.Errorf("clamped interpolate(100) = %+v, want the hi-stop color", c)
	}
}

func TestBuildPaletteReservesTransparentIndex0(t *testing.T) {
	p, err := BuildPalette(sampleGradient())
	if err != nil {
		t.Fatalf("BuildPalette: %v", err)
	}
	if p.Colors[0] != (color.NRGBA{}) {
		t.Errorf("palette index 0 = %+v, want fully transparent", p.Colors[0])
	}
	if p.Index(math.NaN()) != 0 {
		t.Error("NaN must map to palette index 0")
	}
}

func TestBuildPaletteCapsAt256Colors(t *testing.T) {
	d := sampleGradient()
	p, err := BuildPalette(d)
	if err != nil {
		t.Fatalf("BuildPalette: %v", err)
	}
	if len(p.Colors) > maxPaletteColors {
		t.Errorf("palette has %d colors, want <= %d", len(p.Colors), maxPaletteColors)
	}
}

func TestApplyGradientIndexedNaNIsZero(t *testing.T) {
	p, _ := BuildPalette(sampleGradient())
	data := []float32{float32(math.NaN()), 0, 40}
	out := ApplyGradientIndexed(data, 3, 1, p)
	if out[0] != 0 {
		t.Errorf("NaN pixel index = %d, want 0", out[0])
	}
	if out[2] == 0 {
		t.Error("in-range high value should not map to the transparent index")
	}
}

func TestApplyContoursSkipsFlatRegion(t *testing.T) {
	d := Definition{Kind: KindContour, Interval: 10}
	data := make([]float32, 16)
	for i := range data {
		data[i] = 5 // flat, below a single contour level boundary
	}
	segs := ApplyContours(data, 4, 4, d)
	if len(segs) != 0 {
		t.Errorf("expected no contour segments over a flat region, got %d", len(segs))
	}
}

func TestApplyContoursFindsCrossing(t *testing.T) {
	d := Definition{Kind: KindContour, Interval: 10}
	// 4x4 grid ramping left-to-right from 0 to 30, crossing level 10 and 20.
	data := make([]float32, 16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			data[y*4+x] = float32(x * 10)
		}
	}
	segs := ApplyContours(data, 4, 4, d)
	if len(segs) == 0 {
		t.Error("expected contour segments across a ramped region")
	}
}

func TestApplyBarbsSkipsNaN(t *testing.T) {
	d := Definition{Kind: KindVectorBarb, SpacingPx: 2, Scale: 1}
	u := []float32{1, 1, 1, 1}
	v := []float32{float32(math.NaN()), 1, 1, 1}
	barbs := ApplyBarbs(u, v, 2, 2, d)
	for _, b := range barbs {
		if math.IsNaN(b.SpeedU) || math.IsNaN(b.SpeedV) {
			t.Error("ApplyBarbs must not emit NaN-valued barbs")
		}
	}
}
