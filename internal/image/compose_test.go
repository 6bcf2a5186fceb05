package imagepkg

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(data); !errors.Is(err, ErrUnsupportedImageFormat) {
				t.Fatalf("got %v, want ErrUnsupportedImageFormat", err)
			}
		})
	}
}

func TestPrepareKeepsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0xff})
		}
	}

	img, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	out, err := Prepare(img, 80, 40, Crisp)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("prepared output is not PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 80 || decoded.Bounds().Dy() != 40 {
		t.Fatalf("unexpected prepared size %v", decoded.Bounds())
	}
	if _, _, _, a := decoded.At(70, 20).RGBA(); a != 0 {
		t.Fatalf("transparent half should stay transparent, alpha=%d", a)
	}
	if _, _, _, a := decoded.At(10, 20).RGBA(); a != 0xffff {
		t.Fatalf("opaque half should stay opaque, alpha=%d", a)
	}
}

func TestPixelSize(t *testing.T) {
	cases := []struct {
		points, dpi float64
		want        int
	}{
		{72, 72, 72},
		{80, 300, 334},
		{0.001, 72, 1},
	}
	for _, tc := range cases {
		if got := PixelSize(tc.points, tc.dpi); got != tc.want {
			t.Errorf("PixelSize(%v, %v) = %d, want %d", tc.points, tc.dpi, got, tc.want)
		}
	}
}
