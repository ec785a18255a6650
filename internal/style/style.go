// Package style is the style engine: immutable style definitions loaded
// fail-fast at process start, with gradient styles precompiled into an
// indexed palette so that per-tile rendering only does a table lookup.
package style

import (
	"fmt"
	"image/color"
	"math"
	"sort"
)

// Kind distinguishes the three style variants a layer can be rendered with.
type Kind int

const (
	KindGradient Kind = iota
	KindContour
	KindVectorBarb
)

// OutOfRangePolicy controls what a gradient style does with values outside
// [Lo, Hi].
type OutOfRangePolicy int

const (
	OutOfRangeTransparent OutOfRangePolicy = iota
	OutOfRangeClamp
)

// ColorStop is one (value, color) anchor in a gradient's piecewise-linear
// ramp.
type ColorStop struct {
	Value float64
	Color color.NRGBA
}

// Definition is one loaded, immutable style. Only the fields relevant to
// Kind are meaningful.
type Definition struct {
	Name string
	Kind Kind

	// Gradient
	Lo, Hi       float64
	Stops        []ColorStop
	OutOfRange   OutOfRangePolicy

	// Contour
	Interval   float64
	LineColor  color.NRGBA
	LineWidth  float64
	Label      bool

	// Vector-barb
	SpacingPx float64
	Scale     float64
	BarbColor color.NRGBA
}

// paletteQuantization is Q, the number of bins [Lo, Hi] is sampled into
// when deriving a gradient's indexed palette.
const paletteQuantization = 1024

// maxPaletteColors is the hard ceiling on distinct colors in an indexed
// palette; index 0 is always reserved for NaN/transparent.
const maxPaletteColors = 256

// Palette is the precomputed, immutable lookup table derived from a
// gradient Definition at load time.
type Palette struct {
	Colors       []color.NRGBA // Colors[0] is the reserved transparent entry
	valueToIndex [paletteQuantization]uint8
	lo, hi       float64
	clamp        bool // out-of-range values take the nearest end color
}

// Validate checks a Definition is well-formed for its Kind; called during
// fail-fast startup loading.
func (d Definition) Validate() error {
	switch d.Kind {
	case KindGradient:
		if len(d.Stops) < 2 {
			return fmt.Errorf("style %q: gradient needs at least 2 color stops, got %d", d.Name, len(d.Stops))
		}
		if d.Hi <= d.Lo {
			return fmt.Errorf("style %q: gradient hi (%v) must exceed lo (%v)", d.Name, d.Hi, d.Lo)
		}
		for i := 1; i < len(d.Stops); i++ {
			if d.Stops[i].Value < d.Stops[i-1].Value {
				return fmt.Errorf("style %q: color stops must be in non-decreasing value order", d.Name)
			}
		}
	case KindContour:
		if d.Interval <= 0 {
			return fmt.Errorf("style %q: contour interval must be positive, got %v", d.Name, d.Interval)
		}
	case KindVectorBarb:
		if d.SpacingPx <= 0 {
			return fmt.Errorf("style %q: barb spacing must be positive, got %v", d.Name, d.SpacingPx)
		}
	default:
		return fmt.Errorf("style %q: unknown kind %d", d.Name, d.Kind)
	}
	return nil
}

// interpolate returns the gradient's color at value v by linear
// interpolation between surrounding stops, honoring OutOfRange outside
// [Lo, Hi].
func (d Definition) interpolate(v float64) (color.NRGBA, bool) {
	if math.IsNaN(v) {
		return color.NRGBA{}, false
	}
	if v < d.Lo || v > d.Hi {
		if d.OutOfRange == OutOfRangeTransparent {
			return color.NRGBA{}, false
		}
		if v < d.Lo {
			v = d.Lo
		} else {
			v = d.Hi
		}
	}

	stops := d.Stops
	if v <= stops[0].Value {
		return stops[0].Color, true
	}
	if v >= stops[len(stops)-1].Value {
		return stops[len(stops)-1].Color, true
	}

	i := sort.Search(len(stops), func(i int) bool { return stops[i].Value >= v })
	lo, hi := stops[i-1], stops[i]
	span := hi.Value - lo.Value
	if span <= 0 {
		return lo.Color, true
	}
	t := (v - lo.Value) / span
	return lerpColor(lo.Color, hi.Color, t), true
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	l := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.NRGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: l(a.A, b.A)}
}

// BuildPalette samples a gradient Definition at Q equally spaced values
// across [Lo, Hi], deduplicates the resulting colors (capped at
// maxPaletteColors), and returns the immutable lookup table. Index 0 is
// always the reserved fully-transparent entry for NaN.
func BuildPalette(d Definition) (*Palette, error) {
	if d.Kind != KindGradient {
		return nil, fmt.Errorf("BuildPalette: style %q is not a gradient", d.Name)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	p := &Palette{lo: d.Lo, hi: d.Hi, clamp: d.OutOfRange == OutOfRangeClamp}
	p.Colors = append(p.Colors, color.NRGBA{}) // index 0: transparent

	seen := make(map[color.NRGBA]uint8, paletteQuantization)
	binColor := make([]color.NRGBA, paletteQuantization)
	binHasColor := make([]bool, paletteQuantization)

	for q := 0; q < paletteQuantization; q++ {
		v := d.Lo + (d.Hi-d.Lo)*float64(q)/float64(paletteQuantization-1)
		c, ok := d.interpolate(v)
		if !ok {
			continue
		}
		binColor[q] = c
		binHasColor[q] = true
	}

	for q := 0; q < paletteQuantization; q++ {
		if !binHasColor[q] {
			p.valueToIndex[q] = 0
			continue
		}
		c := binColor[q]
		idx, ok := seen[c]
		if !ok {
			if len(p.Colors) >= maxPaletteColors {
				// Ran out of distinct palette slots: snap to the nearest
				// already-registered color rather than silently losing the
				// stop.
				idx = nearestColorIndex(p.Colors, c)
			} else {
				idx = uint8(len(p.Colors))
				p.Colors = append(p.Colors, c)
				seen[c] = idx
			}
		}
		p.valueToIndex[q] = idx
	}

	return p, nil
}

func nearestColorIndex(palette []color.NRGBA, c color.NRGBA) uint8 {
	best, bestDist := uint8(0), math.MaxFloat64
	for i := 1; i < len(palette); i++ {
		p := palette[i]
		dr := float64(p.R) - float64(c.R)
		dg := float64(p.G) - float64(c.G)
		db := float64(p.B) - float64(c.B)
		da := float64(p.A) - float64(c.A)
		dist := dr*dr + dg*dg + db*db + da*da
		if dist < bestDist {
			best, bestDist = uint8(i), dist
		}
	}
	return best
}

// Index returns the palette index for value v: 0 (transparent) for NaN or
// out-of-range-with-transparent-policy values, otherwise the quantized
// lookup.
func (p *Palette) Index(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	if v < p.lo || v > p.hi {
		if !p.clamp {
			return 0
		}
		v = math.Max(p.lo, math.Min(v, p.hi))
	}
	q := int((v - p.lo) / (p.hi - p.lo) * float64(paletteQuantization-1))
	if q < 0 {
		q = 0
	}
	if q >= paletteQuantization {
		q = paletteQuantization - 1
	}
	return p.valueToIndex[q]
}
