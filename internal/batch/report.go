package batch

import (
	"context"
	"errors"
	"time"

	"github.com/youruser/distintivos/internal/assets"
	"github.com/youruser/distintivos/internal/badge"
	"github.com/youruser/distintivos/internal/entities"
	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/overlay"
)

// Outcome is the terminal state of one record.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Skipped   Outcome = "skipped"
	Rejected  Outcome = "rejected"
	Failed    Outcome = "failed"
)

// Error kinds reported per record.
const (
	KindInvalidRecord          = "InvalidRecord"
	KindLogoNotFound           = "LogoNotFound"
	KindDestinationDirNotFound = "DestinationDirNotFound"
	KindQrDirectoryNotFound    = "QrDirectoryNotFound"
	KindCapacityExceeded       = "CapacityExceeded"
	KindEncodingError          = "EncodingError"
	KindUnsupportedImageFormat = "UnsupportedImageFormat"
	KindInvalidRectangle       = "InvalidRectangle"
	KindMissingQrBox           = "MissingQrBox"
	KindCanceled               = "canceled"
	KindInternal               = "Internal"
)

// RecordResult is the outcome of one input row.
type RecordResult struct {
	Row           int     `json:"row"`
	Name          string  `json:"name"`
	LogoReference string  `json:"logo_reference"`
	Outcome       Outcome `json:"outcome"`
	Kind          string  `json:"kind,omitempty"`
	Err           error   `json:"-"`
	Error         string  `json:"error,omitempty"`
	Destination   string  `json:"destination,omitempty"`
	Bytes         int     `json:"bytes,omitempty"`
	QRCreated     bool    `json:"qr_created,omitempty"`
}

// Report aggregates a batch run.
type Report struct {
	RunID     string         `json:"run_id"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
	Results   []RecordResult `json:"results"`
	Succeeded int            `json:"succeeded"`
	Skipped   int            `json:"skipped"`
	Rejected  int            `json:"rejected"`
	Failed    int            `json:"failed"`
}

// Total is the number of records the run saw.
func (r Report) Total() int { return len(r.Results) }

// OK reports whether no record failed. Rejected and skipped rows do not count
// as failures.
func (r Report) OK() bool { return r.Failed == 0 }

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

func (r *Report) add(res RecordResult) {
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	switch res.Outcome {
	case Succeeded:
		r.Succeeded++
	case Skipped:
		r.Skipped++
	case Rejected:
		r.Rejected++
	case Failed:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

var kinds = []struct {
	target error
	kind   string
}{
	{entities.ErrInvalidRecord, KindInvalidRecord},
	{assets.ErrLogoNotFound, KindLogoNotFound},
	{assets.ErrDestinationDirNotFound, KindDestinationDirNotFound},
	{assets.ErrQrDirectoryNotFound, KindQrDirectoryNotFound},
	// Capacity is checked before the generic encoding error it wraps.
	{imagepkg.ErrCapacityExceeded, KindCapacityExceeded},
	{imagepkg.ErrEncoding, KindEncodingError},
	{imagepkg.ErrUnsupportedImageFormat, KindUnsupportedImageFormat},
	{overlay.ErrInvalidRectangle, KindInvalidRectangle},
	{badge.ErrMissingQrBox, KindMissingQrBox},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// Kind maps err to a stable kind string.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindInternal
}
