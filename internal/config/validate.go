package config

import (
	"errors"
	"fmt"
	"unicode/utf8"

	imagepkg "github.com/youruser/distintivos/internal/image"
)

// Validate ensures the configuration is usable. The template path is not
// required here so that commands which never load a template still work;
// the batch checks it before it starts.
func (c *Config) Validate() error {
	if err := c.validateTemplate(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTemplate() error {
	if err := c.Template.LogoBox.Validate(); err != nil {
		return fmt.Errorf("template.logo_box: %w", err)
	}
	if c.Template.QRBox != nil {
		if err := c.Template.QRBox.Validate(); err != nil {
			return fmt.Errorf("template.qr_box: %w", err)
		}
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.DPI < 72 || c.Render.DPI > 1200 {
		return errors.New("render.dpi must be between 72 and 1200")
	}
	if c.Render.QRModulePx < 1 || c.Render.QRModulePx > imagepkg.MaxModuleSize {
		return fmt.Errorf("render.qr_module_px must be between 1 and %d", imagepkg.MaxModuleSize)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if utf8.RuneCountInString(c.Batch.Delimiter) != 1 && c.Batch.Delimiter != `\t` {
		return fmt.Errorf("batch.delimiter must be a single character, got %q", c.Batch.Delimiter)
	}
	switch c.Batch.Delimiter {
	case "\"", "\r", "\n":
		return fmt.Errorf("batch.delimiter %q is not allowed", c.Batch.Delimiter)
	}
	if c.Batch.FetchTimeoutSeconds < 0 {
		return errors.New("batch.fetch_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

// RequireTemplate reports an error when no template file is configured.
func (c *Config) RequireTemplate() error {
	if c.Template.Path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/distintivos/config.toml"
		}
		return fmt.Errorf("template.path is required. Pass --template or edit %s (create with 'distintivos config init')", defaultPath)
	}
	return nil
}
