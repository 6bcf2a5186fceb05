package overlay

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidRectangle = errors.New("invalid rectangle")

// Rect is an axis-aligned box in PDF points, origin bottom-left, y up.
type Rect struct {
	X      float64 `json:"x" toml:"x"`
	Y      float64 `json:"y" toml:"y"`
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Validate rejects boxes with non-positive or non-finite dimensions.
func (r Rect) Validate() error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in %s", ErrInvalidRectangle, r)
		}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %s must have positive width and height", ErrInvalidRectangle, r)
	}
	return nil
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}

// Contains reports whether o lies inside r, allowing for rounding noise.
func (r Rect) Contains(o Rect) bool {
	const eps = 1e-9
	return o.X >= r.X-eps && o.Y >= r.Y-eps &&
		o.X+o.Width <= r.X+r.Width+eps &&
		o.Y+o.Height <= r.Y+r.Height+eps
}

// Fit scales an imgW×imgH raster uniformly to the largest size that fits in
// box and centers it there.
func Fit(imgW, imgH int, box Rect) Rect {
	if imgW <= 0 || imgH <= 0 {
		return Rect{X: box.X + box.Width/2, Y: box.Y + box.Height/2}
	}
	scale := math.Min(box.Width/float64(imgW), box.Height/float64(imgH))
	w := float64(imgW) * scale
	h := float64(imgH) * scale
	return Rect{
		X:      box.X + (box.Width-w)/2,
		Y:      box.Y + (box.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
