package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultModuleSize is the pixel edge of one QR module when callers pass 0.
const DefaultModuleSize = 10

// QuietZoneModules is the blank border kept around the symbol.
const QuietZoneModules = 4

const (
	// MaxSidePx bounds the edge of a rendered QR image.
	MaxSidePx = 16384
	// MaxModuleSize is the largest module edge that keeps every QR version
	// (185 modules with the quiet zone) within MaxSidePx.
	MaxModuleSize = 88
)

var (
	ErrEncoding = errors.New("qr encoding failed")
	// ErrCapacityExceeded also matches ErrEncoding.
	ErrCapacityExceeded = fmt.Errorf("%w: payload exceeds qr capacity", ErrEncoding)
)

// EncodeQR renders payload as a QR code with transparent background and
// opaque black modules. The version is the smallest one that holds payload
// at medium error correction.
func EncodeQR(payload string, moduleSize int) (*image.NRGBA, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrEncoding)
	}
	if moduleSize <= 0 {
		moduleSize = DefaultModuleSize
	}

	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		if strings.Contains(err.Error(), "too long") {
			return nil, fmt.Errorf("%w (%d bytes)", ErrCapacityExceeded, len(payload))
		}
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	q.DisableBorder = false

	// Bitmap includes the quiet zone.
	bitmap := q.Bitmap()
	if moduleSize > MaxSidePx/len(bitmap) {
		return nil, fmt.Errorf("%w: %d modules of %dpx exceed %dpx", ErrEncoding, len(bitmap), moduleSize, MaxSidePx)
	}
	side := len(bitmap) * moduleSize
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	dark := color.NRGBA{A: 0xff}
	for y, row := range bitmap {
		for x, on := range row {
			if !on {
				continue
			}
			for dy := 0; dy < moduleSize; dy++ {
				for dx := 0; dx < moduleSize; dx++ {
					img.SetNRGBA(x*moduleSize+dx, y*moduleSize+dy, dark)
				}
			}
		}
	}
	return img, nil
}

// EncodeQRPNG returns the PNG bytes of EncodeQR.
func EncodeQRPNG(payload string, moduleSize int) ([]byte, error) {
	img, err := EncodeQR(payload, moduleSize)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return buf.Bytes(), nil
}
