package encode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// PNGEncoder encodes tiles as PNG. When the input image is an
// *image.Paletted (produced by the style engine's indexed gradient path),
// the encoder writes it with its existing palette unchanged, so that two
// tiles built from the same palette compress to bit-identical palette
// tables and remain seam-consistent at shared edges.
type PNGEncoder struct{}

func (e *PNGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *PNGEncoder) Format() Format        { return FormatPNG }
func (e *PNGEncoder) FileExtension() string { return ".png" }

// NewPalettedImage builds an *image.Paletted of the given size from a
// shared color.Palette and a row-major slice of palette indices, as
// produced by the style engine's apply_gradient_indexed.
func NewPalettedImage(width, height int, palette color.Palette, indices []uint8) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	copy(img.Pix, indices)
	return img
}
