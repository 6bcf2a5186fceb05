package overlay

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/logging"
)

// DefaultDPI is the raster resolution used for stamped images.
const DefaultDPI = 300

// Compositor stamps rasters onto PDF pages.
type Compositor struct {
	dpi    float64
	logger *slog.Logger
}

// NewCompositor returns a Compositor rendering rasters at dpi (minimum 72).
func NewCompositor(dpi float64, logger *slog.Logger) *Compositor {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if dpi < 72 {
		dpi = 72
	}
	return &Compositor{dpi: dpi, logger: logging.NewComponentLogger(logger, "overlay")}
}

// Layer is one placed raster.
type Layer struct {
	Raster []byte
	Box    Rect
	Mode   imagepkg.Resampling
}

// Composite returns a copy of base with raster centered in box, scaled
// uniformly to fit. Transparent raster pixels leave base visible.
func (c *Compositor) Composite(base Page, raster []byte, box Rect) (Page, error) {
	page, _, err := c.CompositeLayer(base, Layer{Raster: raster, Box: box})
	return page, err
}

// CompositeLayer is Composite with an explicit resampling mode; it also
// returns where the raster landed.
func (c *Compositor) CompositeLayer(base Page, layer Layer) (Page, Rect, error) {
	if err := layer.Box.Validate(); err != nil {
		return Page{}, Rect{}, err
	}
	if base.IsZero() {
		return Page{}, Rect{}, fmt.Errorf("%w: empty base page", ErrInvalidPage)
	}
	img, err := imagepkg.Decode(layer.Raster)
	if err != nil {
		return Page{}, Rect{}, err
	}

	bounds := img.Bounds()
	placed := Fit(bounds.Dx(), bounds.Dy(), layer.Box)
	pxW, pxH := stampPixels(bounds.Dx(), bounds.Dy(), placed, c.dpi)
	stamp, err := imagepkg.Prepare(img, pxW, pxH, layer.Mode)
	if err != nil {
		return Page{}, Rect{}, err
	}

	// pdfcpu sizes an image stamp at one point per pixel and derives its
	// height from the pixel ratio, which stampPixels keeps equal to the
	// image's. Offsets are relative to the page's visible origin.
	scale := placed.Width / float64(pxW)
	desc := fmt.Sprintf("position:bl, offset:%.4f %.4f, scalefactor:%.6f abs, rotation:0, opacity:1",
		placed.X-base.llx, placed.Y-base.lly, scale)

	wm, err := api.ImageWatermarkForReader(bytes.NewReader(stamp), desc, true, false, types.POINTS)
	if err != nil {
		return Page{}, Rect{}, fmt.Errorf("build image stamp: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(base.reader(), &out, []string{"1"}, wm, configuration()); err != nil {
		return Page{}, Rect{}, fmt.Errorf("stamp image onto page: %w", err)
	}

	c.logger.Debug("raster composited",
		logging.String("box", layer.Box.String()),
		logging.String("placed", placed.String()),
		logging.Int("px_width", pxW),
		logging.Int("px_height", pxH),
	)
	return Page{data: out.Bytes(), llx: base.llx, lly: base.lly}, placed, nil
}

// stampPixels returns the raster size for an imgW×imgH image drawn at
// placed: the exact image ratio, with at least dpi resolution on the major
// axis.
func stampPixels(imgW, imgH int, placed Rect, dpi float64) (int, int) {
	g := gcd(imgW, imgH)
	unitW, unitH := imgW/g, imgH/g
	var k int
	if unitW >= unitH {
		k = ceilDiv(imagepkg.PixelSize(placed.Width, dpi), unitW)
	} else {
		k = ceilDiv(imagepkg.PixelSize(placed.Height, dpi), unitH)
	}
	return unitW * k, unitH * k
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
