package assets

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/youruser/distintivos/internal/logging"
	"github.com/youruser/distintivos/internal/util"
)

const (
	qrIndexFile = ".qrcache.db"
	qrLockDir   = ".locks"
	qrDigestLen = 12
)

// EncodeFunc renders a payload as PNG bytes.
type EncodeFunc func(payload string) ([]byte, error)

// QRCache persists rendered QR codes in a directory, keyed by the logo
// file stem and the payload digest. The first payload seen for a stem is
// stored as <stem>.png; any other payload for the same stem gets
// <stem>-<digest>.png, so a code is never served for the wrong payload.
type QRCache struct {
	dir    string
	encode EncodeFunc
	logger *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// QREntry describes a cached QR file.
type QREntry struct {
	Path    string
	Created bool
}

// NewQRCache returns a cache rooted at dir. The directory is not touched
// until the first Get.
func NewQRCache(dir string, encode EncodeFunc, logger *slog.Logger) *QRCache {
	return &QRCache{
		dir:    dir,
		encode: encode,
		logger: logging.NewComponentLogger(logger, "qrcache"),
	}
}

// Dir returns the cache directory.
func (c *QRCache) Dir() string { return c.dir }

// Close releases the index database.
func (c *QRCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Get returns the QR file for payload under stem, rendering and storing it
// on a miss. Population is serialized per stem with a lock file under
// <dir>/.locks so that concurrent processes cannot both create the same
// entry. A file already sitting at the chosen name without an index entry
// is renamed to <name>.<timestamp>.bak before the new code is written.
func (c *QRCache) Get(ctx context.Context, stem, payload string) (QREntry, error) {
	if !util.IsDir(c.dir) {
		return QREntry{}, fmt.Errorf("%w: %s", ErrQrDirectoryNotFound, c.dir)
	}
	if strings.TrimSpace(stem) == "" {
		return QREntry{}, fmt.Errorf("qr cache: empty key")
	}
	db, err := c.index(ctx)
	if err != nil {
		return QREntry{}, err
	}

	lockDir := filepath.Join(c.dir, qrLockDir)
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return QREntry{}, fmt.Errorf("create qr lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(lockDir, stem+".lock"))
	if err := lock.Lock(); err != nil {
		return QREntry{}, fmt.Errorf("lock qr cache key %q: %w", stem, err)
	}
	defer func() { _ = lock.Unlock() }()

	digest := payloadDigest(payload)
	if file, ok, err := lookup(ctx, db, stem, digest); err != nil {
		return QREntry{}, err
	} else if ok {
		path := filepath.Join(c.dir, file)
		if exists, err := util.FileExists(path); err != nil {
			return QREntry{}, err
		} else if exists {
			return QREntry{Path: path}, nil
		}
		c.logger.Warn("indexed qr file missing, regenerating",
			logging.String("stem", stem),
			logging.String("path", path),
		)
	}

	file, err := chooseFile(ctx, db, stem, digest)
	if err != nil {
		return QREntry{}, err
	}
	png, err := c.encode(payload)
	if err != nil {
		return QREntry{}, err
	}
	path := filepath.Join(c.dir, file)
	if err := c.moveAside(path); err != nil {
		return QREntry{}, err
	}
	if err := util.WriteFileAtomic(path, png, 0o644); err != nil {
		return QREntry{}, fmt.Errorf("store qr %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO qr_codes (stem, digest, file, created_at) VALUES (?, ?, ?, ?)`,
		stem, digest, file, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return QREntry{}, fmt.Errorf("index qr %s: %w", path, err)
	}

	c.logger.Info("qr code generated",
		logging.String(logging.FieldEventType, "qr_generated"),
		logging.String("stem", stem),
		logging.String("path", path),
	)
	return QREntry{Path: path, Created: true}, nil
}

// moveAside renames an unindexed file at path out of the way.
func (c *QRCache) moveAside(path string) error {
	exists, err := util.FileExists(path)
	if err != nil || !exists {
		return err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().UTC().Format("20060102T150405.000000000"))
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("move unindexed qr %s aside: %w", path, err)
	}
	c.logger.Warn("unindexed qr file moved aside",
		logging.String("path", path),
		logging.String("backup", backup),
	)
	return nil
}

func (c *QRCache) index(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}

	dbPath := filepath.Join(c.dir, qrIndexFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open qr index: %w", err)
	}
	db.SetMaxOpenConns(1)

	stmts := []string{
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS qr_codes (
			stem       TEXT NOT NULL,
			digest     TEXT NOT NULL,
			file       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (stem, digest)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare qr index: %w", err)
		}
	}
	c.db = db
	return db, nil
}

func lookup(ctx context.Context, db *sql.DB, stem, digest string) (string, bool, error) {
	var file string
	err := db.QueryRowContext(ctx,
		`SELECT file FROM qr_codes WHERE stem = ? AND digest = ?`, stem, digest,
	).Scan(&file)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("query qr index: %w", err)
	}
	return file, true, nil
}

// chooseFile keeps <stem>.png unless another payload already owns it.
func chooseFile(ctx context.Context, db *sql.DB, stem, digest string) (string, error) {
	plain := stem + ".png"
	var owners int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM qr_codes WHERE file = ? AND digest <> ?`, plain, digest,
	).Scan(&owners)
	if err != nil {
		return "", fmt.Errorf("query qr index: %w", err)
	}
	if owners == 0 {
		return plain, nil
	}
	return stem + "-" + digest[:qrDigestLen] + ".png", nil
}

func payloadDigest(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
