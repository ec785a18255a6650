// Package renderer composes resampling and styling into encoded tile
// bytes. It is pure given its inputs: no cache, object store, or catalog
// call happens inside it, matching the teacher's encoder/resample split
// of "decode elsewhere, transform here."
package renderer

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/encode"
	"github.com/weatherwx/tileserve/internal/style"
)

// GridInput is the subset of a grid-processor region result the renderer
// needs to resample: the data and its actual geographic framing.
type GridInput struct {
	Data        []float32
	Rows, Cols  int
	Bounds      coord.BoundingBox
	GridUses360 bool
}

// Request describes one tile to produce.
type Request struct {
	Z, X, Y    int
	TileSize   int
	BufferPx   int                     // expanded-buffer margin on each side, typical 120
	OutputProj coord.ProjectionVariant // WebMercator (slippy XYZ) or Geographic (plate carree)
}

// Resample implements the expanded-buffer resampling procedure: for every
// pixel of a (TileSize + 2*BufferPx) square, invert the output
// projection to lon/lat, map into grid coordinates (handling the 0-360
// wrap gap), and bilinear-sample. Parallelized over output rows.
func Resample(req Request, grid GridInput) (data []float32, size int) {
	size = req.TileSize + 2*req.BufferPx
	out := floatBufferPool.get(size * size)

	lonSpan := grid.Bounds.MaxLon - grid.Bounds.MinLon
	latSpan := grid.Bounds.MaxLat - grid.Bounds.MinLat
	if lonSpan <= 0 || latSpan <= 0 || grid.Rows <= 0 || grid.Cols <= 0 {
		for i := range out {
			out[i] = float32(math.NaN())
		}
		return out, size
	}

	gridIsGlobal := grid.Bounds.IsGlobal360()

	var wg sync.WaitGroup
	for oy := 0; oy < size; oy++ {
		wg.Add(1)
		go func(oy int) {
			defer wg.Done()
			resampleRow(req, grid, out, size, oy, lonSpan, latSpan, gridIsGlobal)
		}(oy)
	}
	wg.Wait()
	return out, size
}

func resampleRow(req Request, grid GridInput, out []float32, size, oy int, lonSpan, latSpan float64, gridIsGlobal bool) {
	for ox := 0; ox < size; ox++ {
		px := float64(ox - req.BufferPx)
		py := float64(oy - req.BufferPx)

		var lon, lat float64
		if req.OutputProj == coord.Geographic {
			lon, lat = directGeographicPixel(req, px, py)
		} else {
			lon, lat = coord.PixelToLonLat(req.Z, req.X, req.Y, req.TileSize, px, py)
		}

		normLon := coord.NormalizeLongitude(lon, grid.GridUses360)

		inWrapGap := gridIsGlobal && normLon > grid.Bounds.MaxLon && normLon < 360.0

		if !inWrapGap {
			if normLon < grid.Bounds.MinLon || normLon > grid.Bounds.MaxLon ||
				lat < grid.Bounds.MinLat || lat > grid.Bounds.MaxLat {
				out[oy*size+ox] = float32(math.NaN())
				continue
			}
		}

		var gx float64
		if inWrapGap {
			gapSize := 360.0 - grid.Bounds.MaxLon + grid.Bounds.MinLon
			posInGap := normLon - grid.Bounds.MaxLon
			gx = float64(grid.Cols-1) + posInGap/gapSize
		} else {
			gx = (normLon - grid.Bounds.MinLon) / lonSpan * float64(grid.Cols-1)
		}
		gy := (grid.Bounds.MaxLat - lat) / latSpan * float64(grid.Rows-1)

		v := coord.BilinearSample(grid.Data, grid.Rows, grid.Cols, gx, gy, gridIsGlobal)
		out[oy*size+ox] = float32(v)
	}
}

// directGeographicPixel maps a tile-relative pixel directly to lon/lat on
// a linear plate-carree grid of tiles, used when OutputProj is Geographic
// rather than Web Mercator.
func directGeographicPixel(req Request, px, py float64) (lon, lat float64) {
	n := math.Pow(2, float64(req.Z))
	globalX := float64(req.X)*float64(req.TileSize) + px
	globalY := float64(req.Y)*float64(req.TileSize) + py
	lon = globalX/(n*float64(req.TileSize))*360.0 - 180.0
	lat = 90.0 - globalY/(n*float64(req.TileSize))*180.0
	return
}

// crop extracts the inner TileSize x TileSize square from an expanded
// resampled buffer.
func crop(data []float32, size, bufferPx, tileSize int) []float32 {
	out := make([]float32, tileSize*tileSize)
	for y := 0; y < tileSize; y++ {
		srcStart := (y+bufferPx)*size + bufferPx
		copy(out[y*tileSize:(y+1)*tileSize], data[srcStart:srcStart+tileSize])
	}
	return out
}

// Render runs resampling, applies def's style (indexed-palette path when
// palette is non-nil, gradient RGBA, contour stroking, or barb drawing
// otherwise), crops to the tile's native dimensions, and encodes via enc.
// vgrid supplies the second (V) component a vector-barb style needs; it is
// ignored for every other Kind and may be nil.
func Render(req Request, grid GridInput, vgrid *GridInput, def style.Definition, palette *style.Palette, enc encode.Encoder) ([]byte, error) {
	expanded, size := Resample(req, grid)
	cropped := crop(expanded, size, req.BufferPx, req.TileSize)
	floatBufferPool.put(expanded)

	var vCropped []float32
	if vgrid != nil {
		vExpanded, vSize := Resample(req, *vgrid)
		vCropped = crop(vExpanded, vSize, req.BufferPx, req.TileSize)
		floatBufferPool.put(vExpanded)
	}

	img := styleToImage(cropped, vCropped, req.TileSize, def, palette)
	return enc.Encode(img)
}

func styleToImage(cropped, vCropped []float32, tileSize int, def style.Definition, palette *style.Palette) image.Image {
	switch def.Kind {
	case style.KindGradient:
		if palette != nil {
			indices := style.ApplyGradientIndexed(cropped, tileSize, tileSize, palette)
			return encode.NewPalettedImage(tileSize, tileSize, paletteAsColorPalette(palette), indices)
		}
		rgba := style.ApplyGradientRGBA(cropped, tileSize, tileSize, def)
		return rgbaImage(tileSize, tileSize, rgba)
	case style.KindContour:
		img := image.NewNRGBA(image.Rect(0, 0, tileSize, tileSize))
		segments := style.ApplyContours(cropped, tileSize, tileSize, def)
		strokeSegments(img, segments, def.LineColor, def.LineWidth)
		return img
	case style.KindVectorBarb:
		img := image.NewNRGBA(image.Rect(0, 0, tileSize, tileSize))
		if vCropped != nil {
			barbs := style.ApplyBarbs(cropped, vCropped, tileSize, tileSize, def)
			drawBarbs(img, barbs, def.BarbColor)
		}
		return img
	default:
		return rgbaImage(tileSize, tileSize, make([]color.NRGBA, tileSize*tileSize))
	}
}

// strokeSegments draws marching-squares contour segments onto img, widened
// by stacking passes shifted vertically by -width/2..width/2 pixels (so an
// even width draws width+1 passes and a vertical segment is not widened;
// no anti-aliasing or mitered joins, matching the renderer's otherwise
// per-pixel-loop style).
func strokeSegments(img *image.NRGBA, segments []style.Segment, c color.NRGBA, width float64) {
	w := int(math.Round(width))
	if w < 1 {
		w = 1
	}
	half := w / 2
	for _, seg := range segments {
		for o := -half; o <= half; o++ {
			drawLine(img, seg.X0, seg.Y0+float64(o), seg.X1, seg.Y1+float64(o), c)
		}
	}
}

// drawBarbs draws one shaft per barb anchor, from its grid position toward
// SpeedU/SpeedV (already scaled by the style's Scale), image-Y increasing
// downward so the V component is drawn inverted.
func drawBarbs(img *image.NRGBA, barbs []style.Barb, c color.NRGBA) {
	for _, b := range barbs {
		drawLine(img, b.X, b.Y, b.X+b.SpeedU, b.Y-b.SpeedV, c)
	}
}

// drawLine rasterizes a straight line by linear step, clipping each point to
// img's bounds.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 float64, c color.NRGBA) {
	dx, dy := x1-x0, y1-y0
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		setPixel(img, x0, y0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		setPixel(img, x0+dx*t, y0+dy*t, c)
	}
}

func setPixel(img *image.NRGBA, x, y float64, c color.NRGBA) {
	b := img.Bounds()
	ix, iy := int(math.Round(x)), int(math.Round(y))
	if ix < b.Min.X || ix >= b.Max.X || iy < b.Min.Y || iy >= b.Max.Y {
		return
	}
	img.SetNRGBA(ix, iy, c)
}

func paletteAsColorPalette(p *style.Palette) color.Palette {
	cp := make(color.Palette, len(p.Colors))
	for i, c := range p.Colors {
		cp[i] = c
	}
	return cp
}

func rgbaImage(w, h int, px []color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, c := range px {
		if i >= w*h {
			break
		}
		img.SetNRGBA(i%w, i/w, c)
	}
	return img
}
