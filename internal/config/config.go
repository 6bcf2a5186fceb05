package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/youruser/distintivos/internal/badge"
	"github.com/youruser/distintivos/internal/overlay"
)

//go:embed sample_config.toml
var sampleConfig string

// Template describes the page layout shared by every badge in a run.
type Template struct {
	Path    string        `toml:"path"`
	LogoBox overlay.Rect  `toml:"logo_box"`
	QRBox   *overlay.Rect `toml:"qr_box"`
}

// Paths contains the input and output locations of a batch.
type Paths struct {
	DataFile       string `toml:"data_file"`
	LogosDir       string `toml:"logos_dir"`
	DestinationDir string `toml:"destination_dir"`
	QRsDir         string `toml:"qrs_dir"`
}

// Render contains rasterization settings.
type Render struct {
	DPI        float64 `toml:"dpi"`
	QRModulePx int     `toml:"qr_module_px"`
}

// Batch contains per-run behaviour.
type Batch struct {
	Overwrite           bool   `toml:"overwrite"`
	FetchMissingLogos   bool   `toml:"fetch_missing_logos"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"`
	Delimiter           string `toml:"delimiter"`
	Sheet               string `toml:"sheet"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Server contains configuration for the HTTP API.
type Server struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for distintivos.
type Config struct {
	Template Template `toml:"template"`
	Paths    Paths    `toml:"paths"`
	Render   Render   `toml:"render"`
	Batch    Batch    `toml:"batch"`
	Logging  Logging  `toml:"logging"`
	Server   Server   `toml:"server"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/distintivos/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. A missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("distintivos.toml")
	if err != nil {
		return "", false, err
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// BadgeTemplate converts the [template] section into the assembler's layout.
func (c *Config) BadgeTemplate() badge.Template {
	tpl := badge.Template{
		SourcePath: c.Template.Path,
		LogoBox:    c.Template.LogoBox,
	}
	if c.Template.QRBox != nil {
		box := *c.Template.QRBox
		tpl.QRBox = &box
	}
	return tpl
}

// DelimiterRune returns the CSV delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r := []rune(c.Batch.Delimiter)
	if len(r) == 0 {
		return ','
	}
	if string(r) == `\t` {
		return '\t'
	}
	return r[0]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for flag overrides.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
