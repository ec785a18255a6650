// Package encode turns a rendered tile (either an 8-bit indexed image with a
// shared palette, or a truecolor RGBA image) into compressed tile bytes.
package encode

import (
	"fmt"
	"image"
)

// Format names the supported output encodings. Only the fixed set below is
// produced by the renderer; there is no pluggable codec registry.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Encoder encodes a rendered image into tile bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
	Format() Format
	FileExtension() string
}

// NewEncoder creates an encoder for the given format and quality. quality is
// only meaningful for JPEG (1-100); it is ignored otherwise.
func NewEncoder(format Format, quality int) (Encoder, error) {
	switch format {
	case FormatJPEG:
		return &JPEGEncoder{Quality: quality}, nil
	case FormatPNG:
		return &PNGEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported tile format: %q (supported: png, jpeg)", format)
	}
}
