package badge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/youruser/distintivos/internal/overlay"
)

var (
	ErrMissingQrBox = errors.New("qr image supplied but template has no qr box")
	ErrTemplate     = errors.New("invalid template")
)

// Template describes one reusable page layout.
type Template struct {
	SourcePath string
	LogoBox    overlay.Rect
	// QRBox is nil when the layout carries no QR code.
	QRBox *overlay.Rect
}

// WantsQR reports whether documents built from t get a QR code.
func (t Template) WantsQR() bool { return t.QRBox != nil }

// Validate checks the layout before any page is loaded.
func (t Template) Validate() error {
	if strings.TrimSpace(t.SourcePath) == "" {
		return fmt.Errorf("%w: source path is required", ErrTemplate)
	}
	if err := t.LogoBox.Validate(); err != nil {
		return fmt.Errorf("%w: logo box: %v", ErrTemplate, err)
	}
	if t.QRBox != nil {
		if err := t.QRBox.Validate(); err != nil {
			return fmt.Errorf("%w: qr box: %v", ErrTemplate, err)
		}
	}
	return nil
}
