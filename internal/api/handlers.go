package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/youruser/distintivos/internal/badge"
	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/logging"
	"github.com/youruser/distintivos/internal/overlay"
)

const (
	maxUploadBytes = 10 << 20
	maxModulePx    = 40
)

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// qrHandler returns a PNG of a QR for the "text" query param.
func (s *Server) qrHandler(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	module := s.qrModulePx
	if v := c.Query("module"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxModulePx {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("module must be between 1 and %d", maxModulePx)})
			return
		}
		module = n
	}
	b, err := imagepkg.EncodeQRPNG(text, module)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

// badgeHandler assembles one badge from a multipart upload: "logo" file,
// optional "info" text for the QR and optional x, y, width, height fields.
func (s *Server) badgeHandler(c *gin.Context) {
	if s.assembler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no template configured"})
		return
	}

	fh, err := c.FormFile("logo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "logo file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	logo, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(logo) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "logo too large"})
		return
	}

	override, err := formRect(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	var qr []byte
	if info := strings.TrimSpace(c.PostForm("info")); info != "" {
		if qr, err = imagepkg.EncodeQRPNG(info, s.qrModulePx); err != nil {
			s.fail(c, err)
			return
		}
	}

	doc, err := s.assembler.Assemble(logo, override, qr)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="distintivo.pdf"`)
	c.Header("Content-Length", strconv.Itoa(doc.Page.Len()))
	c.Status(http.StatusOK)
	if _, err := doc.Page.WriteTo(c.Writer); err != nil {
		s.logger.Warn("write badge response", logging.Error(err))
	}
}

// formRect reads the optional override box. All four fields or none.
func formRect(c *gin.Context) (*overlay.Rect, error) {
	keys := []string{"x", "y", "width", "height"}
	vals := make([]float64, len(keys))
	present := 0
	for i, k := range keys {
		raw := strings.TrimSpace(c.PostForm(k))
		if raw == "" {
			continue
		}
		present++
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", overlay.ErrInvalidRectangle, k, raw)
		}
		vals[i] = v
	}
	switch present {
	case 0:
		return nil, nil
	case len(keys):
	default:
		return nil, fmt.Errorf("%w: x, y, width and height must be given together", overlay.ErrInvalidRectangle)
	}
	r := overlay.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.String("path", c.FullPath()), logging.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, imagepkg.ErrUnsupportedImageFormat),
		errors.Is(err, overlay.ErrInvalidRectangle):
		return http.StatusBadRequest
	case errors.Is(err, imagepkg.ErrEncoding),
		errors.Is(err, badge.ErrMissingQrBox):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
