package coord

import "math"

// BilinearSample reads a fractional sample at (gx, gy) from a row-major
// H x W grid of float32 data. When wrapX is true and the integer column of
// gx is W-1, the right-hand neighbor wraps to column 0, so the grid is
// treated as horizontally cyclic (e.g. a global 0-360 grid whose last
// column is adjacent to its first).
//
// NaN-propagating: if any of the four corner taps is NaN, the result is
// NaN. Out-of-range (gx, gy) also yields NaN.
func BilinearSample(data []float32, h, w int, gx, gy float64, wrapX bool) float64 {
	if w <= 0 || h <= 0 || len(data) < h*w {
		return math.NaN()
	}
	if math.IsNaN(gx) || math.IsNaN(gy) {
		return math.NaN()
	}
	if gy < 0 || gy > float64(h-1) {
		return math.NaN()
	}
	if wrapX {
		// the wrap gap extends the addressable column range to [0, W)
		if gx < 0 || gx >= float64(w) {
			return math.NaN()
		}
	} else if gx < 0 || gx > float64(w-1) {
		return math.NaN()
	}

	x0 := int(math.Floor(gx))
	y0 := int(math.Floor(gy))
	x1 := x0 + 1
	y1b := y0 + 1
	if y1b > h-1 {
		y1b = h - 1
	}

	if x1 > w-1 {
		if wrapX && x0 == w-1 {
			x1 = 0
		} else {
			x1 = w - 1
		}
	}

	fx := gx - float64(x0)
	fy := gy - float64(y0)

	v00 := float64(data[y0*w+x0])
	v10 := float64(data[y0*w+x1])
	v01 := float64(data[y1b*w+x0])
	v11 := float64(data[y1b*w+x1])

	if math.IsNaN(v00) || math.IsNaN(v10) || math.IsNaN(v01) || math.IsNaN(v11) {
		return math.NaN()
	}

	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy
}
