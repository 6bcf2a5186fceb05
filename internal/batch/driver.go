package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/youruser/distintivos/internal/assets"
	"github.com/youruser/distintivos/internal/badge"
	"github.com/youruser/distintivos/internal/entities"
	"github.com/youruser/distintivos/internal/logging"
	"github.com/youruser/distintivos/internal/overlay"
	"github.com/youruser/distintivos/internal/util"
)

// Resolver locates the files for one record.
type Resolver interface {
	Resolve(ctx context.Context, rec entities.Record, needQR bool) (assets.Resolution, error)
}

// Assembler builds one document from raster bytes.
type Assembler interface {
	Template() badge.Template
	Assemble(logo []byte, override *overlay.Rect, qr []byte) (badge.Document, error)
}

// Driver runs records through resolve, assemble and write, one at a time.
type Driver struct {
	resolver  Resolver
	assembler Assembler
	logger    *slog.Logger

	// writeFile is swapped in tests to observe writes.
	writeFile func(path string, data []byte, perm os.FileMode) error
	readFile  func(path string) ([]byte, error)
	now       func() time.Time
}

// NewDriver wires a driver. logger may be nil.
func NewDriver(resolver Resolver, assembler Assembler, logger *slog.Logger) *Driver {
	return &Driver{
		resolver:  resolver,
		assembler: assembler,
		logger:    logging.NewComponentLogger(logger, "batch"),
		writeFile: util.WriteFileAtomic,
		readFile:  os.ReadFile,
		now:       time.Now,
	}
}

// Run processes records in input order. A failing record never stops the
// batch; once ctx is done the remaining records are reported as failed.
func (d *Driver) Run(ctx context.Context, records []entities.Record) Report {
	report := Report{
		RunID:   uuid.NewString(),
		Started: d.now(),
		Results: make([]RecordResult, 0, len(records)),
	}
	logger := d.logger.With(logging.String(logging.FieldRunID, report.RunID))
	needQR := d.assembler.Template().WantsQR()

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("records", len(records)),
		logging.Bool("qr", needQR),
	)

	for _, rec := range records {
		var res RecordResult
		if err := ctx.Err(); err != nil {
			res = result(rec, Failed)
			res.Err = fmt.Errorf("batch interrupted: %w", err)
			res.Kind = KindCanceled
		} else {
			res = d.process(ctx, rec, needQR)
		}
		report.add(res)
		logOutcome(logger, res)
	}

	report.Finished = d.now()
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("skipped", report.Skipped),
		logging.Int("rejected", report.Rejected),
		logging.Int("failed", report.Failed),
		logging.Int64("duration_ms", report.Duration().Milliseconds()),
	)
	return report
}

func (d *Driver) process(ctx context.Context, rec entities.Record, needQR bool) (res RecordResult) {
	if err := rec.Validate(); err != nil {
		res = result(rec, Rejected)
		res.Err = err
		res.Kind = Kind(err)
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			res = result(rec, Failed)
			res.Err = fmt.Errorf("panic: %v", p)
			res.Kind = KindInternal
		}
	}()

	resolution, err := d.resolver.Resolve(ctx, rec, needQR)
	if err != nil {
		return failed(rec, err)
	}
	if resolution.Skip {
		res = result(rec, Skipped)
		res.Destination = resolution.Paths.DestinationPath
		return res
	}

	paths := resolution.Paths
	logo, err := d.readFile(paths.LogoPath)
	if err != nil {
		return failed(rec, fmt.Errorf("read logo: %w", err))
	}
	var qr []byte
	if paths.QRPath != "" {
		if qr, err = d.readFile(paths.QRPath); err != nil {
			return failed(rec, fmt.Errorf("read qr: %w", err))
		}
	}

	doc, err := d.assembler.Assemble(logo, rec.Override, qr)
	if err != nil {
		return failed(rec, err)
	}
	data := doc.Page.Bytes()
	if err := d.writeFile(paths.DestinationPath, data, 0o644); err != nil {
		return failed(rec, fmt.Errorf("write %s: %w", paths.DestinationPath, err))
	}

	res = result(rec, Succeeded)
	res.Destination = paths.DestinationPath
	res.Bytes = len(data)
	res.QRCreated = resolution.QRCreated
	return res
}

func result(rec entities.Record, o Outcome) RecordResult {
	return RecordResult{
		Row:           rec.Row,
		Name:          rec.Name,
		LogoReference: rec.LogoReference,
		Outcome:       o,
	}
}

func failed(rec entities.Record, err error) RecordResult {
	res := result(rec, Failed)
	res.Err = err
	res.Kind = Kind(err)
	return res
}

func logOutcome(logger *slog.Logger, res RecordResult) {
	attrs := []any{
		logging.String(logging.FieldEventType, "record_"+string(res.Outcome)),
		logging.Int("row", res.Row),
		logging.String("name", res.Name),
		logging.String("logo", res.LogoReference),
	}
	switch res.Outcome {
	case Succeeded:
		attrs = append(attrs,
			logging.String("destination", res.Destination),
			logging.Int("bytes", res.Bytes),
			logging.Bool("qr_created", res.QRCreated),
		)
		logger.Info("badge written", attrs...)
	case Skipped:
		attrs = append(attrs, logging.String("destination", res.Destination))
		logger.Info("badge exists, skipped", attrs...)
	case Rejected:
		attrs = append(attrs, logging.String(logging.FieldErrorKind, res.Kind), logging.Error(res.Err))
		logger.Warn("record rejected", attrs...)
	case Failed:
		attrs = append(attrs, logging.String(logging.FieldErrorKind, res.Kind), logging.Error(res.Err))
		logger.Error("record failed", attrs...)
	}
}
