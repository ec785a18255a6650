package style

import (
	"image/color"
	"math"
)

// ApplyGradientIndexed maps a row-major float32 grid to a palette-indexed
// byte buffer. NaN maps to index 0, the reserved transparent entry.
func ApplyGradientIndexed(regionData []float32, width, height int, palette *Palette) []uint8 {
	out := make([]uint8, width*height)
	for i, v := range regionData {
		if i >= len(out) {
			break
		}
		out[i] = palette.Index(float64(v))
	}
	return out
}

// ApplyGradientRGBA is the direct interpolation path for gradients that
// were not (or could not be) precompiled into an indexed palette.
func ApplyGradientRGBA(regionData []float32, width, height int, d Definition) []color.NRGBA {
	out := make([]color.NRGBA, width*height)
	for i, v := range regionData {
		if i >= len(out) {
			break
		}
		c, ok := d.interpolate(float64(v))
		if !ok {
			continue // zero value color.NRGBA{} is fully transparent
		}
		out[i] = c
	}
	return out
}

// Segment is one marching-squares line segment produced by ApplyContours,
// in grid-pixel coordinates.
type Segment struct {
	X0, Y0, X1, Y1 float64
}

// ApplyContours runs marching squares over the resampled grid at the
// style's interval, returning line segments for the renderer to stroke at
// LineWidth in LineColor.
func ApplyContours(regionData []float32, width, height int, d Definition) []Segment {
	if d.Interval <= 0 || width < 2 || height < 2 {
		return nil
	}

	var segments []Segment
	at := func(x, y int) float64 { return float64(regionData[y*width+x]) }

	for y := 0; y < height-1; y++ {
		for x := 0; x < width-1; x++ {
			v00, v10 := at(x, y), at(x+1, y)
			v01, v11 := at(x, y+1), at(x+1, y+1)
			if math.IsNaN(v00) || math.IsNaN(v10) || math.IsNaN(v01) || math.IsNaN(v11) {
				continue
			}

			lo := math.Floor(math.Min(math.Min(v00, v10), math.Min(v01, v11))/d.Interval) * d.Interval
			hi := math.Ceil(math.Max(math.Max(v00, v10), math.Max(v01, v11))/d.Interval) * d.Interval

			for level := lo; level <= hi; level += d.Interval {
				segments = append(segments, marchCell(x, y, v00, v10, v01, v11, level)...)
			}
		}
	}
	return segments
}

// marchCell evaluates one marching-squares case for a single grid cell at
// the given contour level.
func marchCell(x, y int, v00, v10, v01, v11, level float64) []Segment {
	case_ := 0
	if v00 > level {
		case_ |= 1
	}
	if v10 > level {
		case_ |= 2
	}
	if v11 > level {
		case_ |= 4
	}
	if v01 > level {
		case_ |= 8
	}
	if case_ == 0 || case_ == 15 {
		return nil
	}

	fx, fy := float64(x), float64(y)
	lerpEdge := func(a, b, va, vb float64) float64 {
		if vb == va {
			return a
		}
		return a + (b-a)*(level-va)/(vb-va)
	}
	top := Segment{}
	top.X0 = fx + lerpEdge(0, 1, v00, v10)
	top.Y0 = fy

	bottom := fx + lerpEdge(0, 1, v01, v11)
	left := fy + lerpEdge(0, 1, v00, v01)
	right := fy + lerpEdge(0, 1, v10, v11)

	var segs []Segment
	switch case_ {
	case 1, 14:
		segs = append(segs, Segment{X0: fx, Y0: left, X1: top.X0, Y1: fy})
	case 2, 13:
		segs = append(segs, Segment{X0: top.X0, Y0: fy, X1: fx + 1, Y1: right})
	case 3, 12:
		segs = append(segs, Segment{X0: fx, Y0: left, X1: fx + 1, Y1: right})
	case 4, 11:
		segs = append(segs, Segment{X0: fx + 1, Y0: right, X1: bottom, Y1: fy + 1})
	case 5:
		segs = append(segs, Segment{X0: fx, Y0: left, X1: top.X0, Y1: fy})
		segs = append(segs, Segment{X0: fx + 1, Y0: right, X1: bottom, Y1: fy + 1})
	case 6, 9:
		segs = append(segs, Segment{X0: top.X0, Y0: fy, X1: bottom, Y1: fy + 1})
	case 7, 8:
		segs = append(segs, Segment{X0: fx, Y0: left, X1: bottom, Y1: fy + 1})
	case 10:
		segs = append(segs, Segment{X0: fx, Y0: left, X1: fx + 1, Y1: right})
		segs = append(segs, Segment{X0: top.X0, Y0: fy, X1: bottom, Y1: fy + 1})
	}
	return segs
}

// Barb is one wind barb glyph anchor, sampled from a UV-pair layer at
// SpacingPx intervals.
type Barb struct {
	X, Y         float64
	SpeedU, SpeedV float64
}

// ApplyBarbs samples a UV-pair grid on a regular SpacingPx grid and
// returns barb anchors for the renderer to draw, scaled by d.Scale. NaN
// components are skipped.
func ApplyBarbs(uData, vData []float32, width, height int, d Definition) []Barb {
	if d.SpacingPx <= 0 {
		return nil
	}
	var barbs []Barb
	step := d.SpacingPx
	for y := step / 2; y < float64(height); y += step {
		for x := step / 2; x < float64(width); x += step {
			ix, iy := int(x), int(y)
			if ix < 0 || ix >= width || iy < 0 || iy >= height {
				continue
			}
			idx := iy*width + ix
			u, v := float64(uData[idx]), float64(vData[idx])
			if math.IsNaN(u) || math.IsNaN(v) {
				continue
			}
			barbs = append(barbs, Barb{X: x, Y: y, SpeedU: u * d.Scale, SpeedV: v * d.Scale})
		}
	}
	return barbs
}
