package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrInvalidPage = errors.New("invalid pdf page")

var configOnce sync.Once

// configuration returns a relaxed pdfcpu configuration without touching
// the user's pdfcpu config directory.
func configuration() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Page is an immutable single-page PDF document. llx and lly are the
// lower-left corner of its visible region (crop box, else media box).
type Page struct {
	data     []byte
	llx, lly float64
}

// LoadPage reads the PDF at path and keeps only its first page.
func LoadPage(path string) (Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Page{}, fmt.Errorf("read template %s: %w", path, err)
	}
	return PageFromBytes(data)
}

// PageFromBytes copies data into a Page, trimming extra pages.
func PageFromBytes(data []byte) (Page, error) {
	if len(data) == 0 {
		return Page{}, fmt.Errorf("%w: empty document", ErrInvalidPage)
	}
	conf := configuration()
	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	if count < 1 {
		return Page{}, fmt.Errorf("%w: document has no pages", ErrInvalidPage)
	}
	if count == 1 {
		data = bytes.Clone(data)
	} else {
		var out bytes.Buffer
		if err := api.Trim(bytes.NewReader(data), &out, []string{"1"}, conf); err != nil {
			return Page{}, fmt.Errorf("%w: keep first page: %v", ErrInvalidPage, err)
		}
		data = out.Bytes()
	}

	p := Page{data: data}
	if p.llx, p.lly, err = viewOrigin(data, conf); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	return p, nil
}

// viewOrigin returns the lower-left corner of the first page's crop box,
// falling back to its media box. Stamp offsets are relative to it.
func viewOrigin(data []byte, conf *model.Configuration) (float64, float64, error) {
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return 0, 0, err
	}
	_, _, attrs, err := ctx.PageDict(1, false)
	if err != nil {
		return 0, 0, err
	}
	box := attrs.MediaBox
	if attrs.CropBox != nil {
		box = attrs.CropBox
	}
	if box == nil {
		return 0, 0, nil
	}
	return box.LL.X, box.LL.Y, nil
}

// IsZero reports whether p holds no document.
func (p Page) IsZero() bool { return len(p.data) == 0 }

// Len returns the encoded size in bytes.
func (p Page) Len() int { return len(p.data) }

// Bytes returns a copy of the encoded document.
func (p Page) Bytes() []byte { return bytes.Clone(p.data) }

// WriteTo writes the encoded document to w.
func (p Page) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.data)
	return int64(n), err
}

func (p Page) reader() io.ReadSeeker { return bytes.NewReader(p.data) }
