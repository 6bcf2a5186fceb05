package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeBatch()
	c.normalizeLogging()
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Template.Path, err = expandPath(strings.TrimSpace(c.Template.Path)); err != nil {
		return fmt.Errorf("template.path: %w", err)
	}
	if c.Paths.DataFile, err = expandPath(strings.TrimSpace(c.Paths.DataFile)); err != nil {
		return fmt.Errorf("paths.data_file: %w", err)
	}
	dirs := []struct {
		key   string
		value *string
		def   string
	}{
		{"paths.logos_dir", &c.Paths.LogosDir, defaultLogosDir},
		{"paths.destination_dir", &c.Paths.DestinationDir, defaultDestinationDir},
		{"paths.qrs_dir", &c.Paths.QRsDir, defaultQRsDir},
	}
	for _, d := range dirs {
		v := strings.TrimSpace(*d.value)
		if v == "" {
			v = d.def
		}
		if *d.value, err = expandPath(v); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeRender() {
	if c.Render.DPI == 0 {
		c.Render.DPI = defaultDPI
	}
	if c.Render.QRModulePx == 0 {
		c.Render.QRModulePx = defaultQRModulePx
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.Delimiter == "" {
		c.Batch.Delimiter = ","
	}
	if c.Batch.FetchTimeoutSeconds == 0 {
		c.Batch.FetchTimeoutSeconds = defaultFetchTimeout
	}
	c.Batch.Sheet = strings.TrimSpace(c.Batch.Sheet)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
