package badge

import (
	"fmt"
	"log/slog"

	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/logging"
	"github.com/youruser/distintivos/internal/overlay"
)

// Document is one finished badge. It is never modified after assembly.
type Document struct {
	Page overlay.Page
	Logo overlay.Rect
	// QR is nil when no QR code was composited.
	QR *overlay.Rect
}

// Assembler merges logos and QR codes onto a template page loaded once.
type Assembler struct {
	tpl        Template
	base       overlay.Page
	compositor *overlay.Compositor
	logger     *slog.Logger
}

// NewAssembler validates tpl and loads the first page of its source. Errors
// here are fatal for a batch: nothing can be produced without the template.
func NewAssembler(tpl Template, compositor *overlay.Compositor, logger *slog.Logger) (*Assembler, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	base, err := overlay.LoadPage(tpl.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	if compositor == nil {
		compositor = overlay.NewCompositor(overlay.DefaultDPI, logger)
	}
	return &Assembler{
		tpl:        tpl,
		base:       base,
		compositor: compositor,
		logger:     logging.NewComponentLogger(logger, "badge"),
	}, nil
}

// Template returns the layout the assembler was built with.
func (a *Assembler) Template() Template { return a.tpl }

// Assemble composites logo into override (or the template logo box) and, when
// qr is non-nil, qr into the template QR box. It performs no writes.
func (a *Assembler) Assemble(logo []byte, override *overlay.Rect, qr []byte) (Document, error) {
	if qr != nil && a.tpl.QRBox == nil {
		return Document{}, ErrMissingQrBox
	}

	box := a.tpl.LogoBox
	if override != nil {
		box = *override
	}

	page, logoAt, err := a.compositor.CompositeLayer(a.base, overlay.Layer{Raster: logo, Box: box, Mode: imagepkg.Smooth})
	if err != nil {
		return Document{}, fmt.Errorf("composite logo: %w", err)
	}
	doc := Document{Page: page, Logo: logoAt}

	if qr != nil {
		page, qrAt, err := a.compositor.CompositeLayer(doc.Page, overlay.Layer{Raster: qr, Box: *a.tpl.QRBox, Mode: imagepkg.Crisp})
		if err != nil {
			return Document{}, fmt.Errorf("composite qr: %w", err)
		}
		doc.Page = page
		doc.QR = &qrAt
	}

	a.logger.Debug("badge assembled",
		logging.String("logo_box", box.String()),
		logging.Bool("qr", doc.QR != nil),
		logging.Int("bytes", doc.Page.Len()),
	)
	return doc, nil
}
