package imagepkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxDownloadBytes bounds a single logo download.
const MaxDownloadBytes = 20 << 20

var ErrDownload = errors.New("image download failed")

// Downloader fetches remote logos.
type Downloader struct {
	Client *http.Client
}

// NewDownloader returns a Downloader whose client gives up after timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Downloader{Client: &http.Client{Timeout: timeout}}
}

// Download fetches url and returns the body once it decodes as an image.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrDownload, url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if len(body) > MaxDownloadBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDownload, url, MaxDownloadBytes)
	}
	if _, err := Decode(body); err != nil {
		return nil, err
	}
	return body, nil
}
