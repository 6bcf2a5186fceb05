package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/youruser/distintivos/internal/entities"
	"github.com/youruser/distintivos/internal/logging"
	"github.com/youruser/distintivos/internal/util"
)

// DocumentExt is the extension of produced documents.
const DocumentExt = ".pdf"

var (
	ErrLogoNotFound           = errors.New("logo not found")
	ErrDestinationDirNotFound = errors.New("destination directory not found")
	ErrQrDirectoryNotFound    = errors.New("qr directory not found")
)

// Downloader fetches a remote logo.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// ResolvedPaths are the concrete files for one record.
type ResolvedPaths struct {
	LogoPath string
	// QRPath is empty when the record gets no QR code.
	QRPath          string
	DestinationPath string
}

// Resolution is the terminal state of Resolve: either Ready with Paths, or
// Skip because the output already exists.
type Resolution struct {
	Paths     ResolvedPaths
	Skip      bool
	QRCreated bool
}

// Resolver maps records to files.
type Resolver struct {
	LogosDir       string
	DestinationDir string
	Overwrite      bool
	// QR is required only for templates with a QR box.
	QR *QRCache
	// Fetch, when set, downloads remote logos missing from LogosDir.
	Fetch Downloader

	logger *slog.Logger
}

// NewResolver wires a resolver; qr and fetch may be nil.
func NewResolver(logosDir, destinationDir string, overwrite bool, qr *QRCache, fetch Downloader, logger *slog.Logger) *Resolver {
	return &Resolver{
		LogosDir:       logosDir,
		DestinationDir: destinationDir,
		Overwrite:      overwrite,
		QR:             qr,
		Fetch:          fetch,
		logger:         logging.NewComponentLogger(logger, "assets"),
	}
}

// DestinationPath returns where the document for name is written.
func (r *Resolver) DestinationPath(name string) string {
	return filepath.Join(r.DestinationDir, name+DocumentExt)
}

// Resolve walks Validate → CheckExisting → CheckLogo → CheckQrDir → Ready.
func (r *Resolver) Resolve(ctx context.Context, rec entities.Record, needQR bool) (Resolution, error) {
	if err := rec.Validate(); err != nil {
		return Resolution{}, err
	}

	if !util.IsDir(r.DestinationDir) {
		return Resolution{}, fmt.Errorf("%w: %s", ErrDestinationDirNotFound, r.DestinationDir)
	}
	dest := r.DestinationPath(rec.Name)
	exists, err := util.FileExists(dest)
	if err != nil {
		return Resolution{}, fmt.Errorf("check destination %s: %w", dest, err)
	}
	if exists && !r.Overwrite {
		return Resolution{Skip: true, Paths: ResolvedPaths{DestinationPath: dest}}, nil
	}

	logoPath, err := r.resolveLogo(ctx, rec.LogoReference)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Paths: ResolvedPaths{LogoPath: logoPath, DestinationPath: dest}}

	if needQR {
		if r.QR == nil || !util.IsDir(r.QR.Dir()) {
			dir := ""
			if r.QR != nil {
				dir = r.QR.Dir()
			}
			return Resolution{}, fmt.Errorf("%w: %q", ErrQrDirectoryNotFound, dir)
		}
		entry, err := r.QR.Get(ctx, entities.Stem(filepath.Base(logoPath)), rec.InfoPayload)
		if err != nil {
			return Resolution{}, fmt.Errorf("qr for %q: %w", rec.Name, err)
		}
		res.Paths.QRPath = entry.Path
		res.QRCreated = entry.Created
	}
	return res, nil
}

func (r *Resolver) resolveLogo(ctx context.Context, reference string) (string, error) {
	filename := entities.LogoFilename(reference)
	if filename == "" {
		return "", fmt.Errorf("%w: no file name in reference %q", ErrLogoNotFound, reference)
	}
	path := filepath.Join(r.LogosDir, filename)
	exists, err := util.FileExists(path)
	if err != nil {
		return "", fmt.Errorf("check logo %s: %w", path, err)
	}
	if exists {
		return path, nil
	}
	if r.Fetch == nil || !entities.IsRemote(reference) {
		return "", fmt.Errorf("%w: %s", ErrLogoNotFound, path)
	}
	if !util.IsDir(r.LogosDir) {
		return "", fmt.Errorf("%w: logos directory %s missing", ErrLogoNotFound, r.LogosDir)
	}

	data, err := r.Fetch.Download(ctx, reference)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrLogoNotFound, path, err)
	}
	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("store downloaded logo %s: %w", path, err)
	}
	r.logger.Info("logo downloaded",
		logging.String(logging.FieldEventType, "logo_downloaded"),
		logging.String("url", reference),
		logging.String("path", path),
	)
	return path, nil
}
