package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

var ErrUnsupportedImageFormat = errors.New("unsupported image format")

// Resampling selects how a raster is scaled onto the page.
type Resampling int

const (
	// Smooth suits photographic logos.
	Smooth Resampling = iota
	// Crisp keeps hard module edges, for QR codes.
	Crisp
)

// Decode decodes any raster format imaging understands.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrUnsupportedImageFormat)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImageFormat, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrUnsupportedImageFormat)
	}
	return img, nil
}

// PixelSize converts a length in points to pixels at dpi, never below 1.
func PixelSize(points, dpi float64) int {
	px := int(math.Ceil(points * dpi / 72))
	if px < 1 {
		px = 1
	}
	return px
}

// Prepare resamples img to exactly w×h pixels and returns it as an NRGBA
// PNG so the alpha channel survives.
func Prepare(img image.Image, w, h int, mode Resampling) ([]byte, error) {
	filter := imaging.Lanczos
	if mode == Crisp {
		filter = imaging.NearestNeighbor
	}
	var out *image.NRGBA
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		out = imaging.Clone(img)
	} else {
		out = imaging.Resize(img, w, h, filter)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode prepared image: %w", err)
	}
	return buf.Bytes(), nil
}
