package config

import (
	"github.com/youruser/distintivos/internal/overlay"
)

const (
	defaultLogosDir       = "logos"
	defaultDestinationDir = "distintivos"
	defaultQRsDir         = "qrs"
	defaultDPI            = overlay.DefaultDPI
	defaultQRModulePx     = 10
	defaultFetchTimeout   = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultServerBind     = "127.0.0.1:8080"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Template: Template{
			LogoBox: overlay.Rect{X: 250, Y: 500, Width: 80, Height: 80},
		},
		Paths: Paths{
			LogosDir:       defaultLogosDir,
			DestinationDir: defaultDestinationDir,
			QRsDir:         defaultQRsDir,
		},
		Render: Render{
			DPI:        defaultDPI,
			QRModulePx: defaultQRModulePx,
		},
		Batch: Batch{
			FetchTimeoutSeconds: defaultFetchTimeout,
			Delimiter:           ",",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
	}
}
