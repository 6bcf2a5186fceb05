package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/youruser/distintivos/internal/assets"
	"github.com/youruser/distintivos/internal/badge"
	"github.com/youruser/distintivos/internal/batch"
	"github.com/youruser/distintivos/internal/config"
	"github.com/youruser/distintivos/internal/entities"
	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/logging"
	"github.com/youruser/distintivos/internal/overlay"
)

type generateOptions struct {
	dataFile       string
	template       string
	logosDir       string
	destinationDir string
	qrsDir         string
	delimiter      string
	overwrite      bool
	fetch          bool
	only           []string
	match          string
	jsonOutput     bool
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one badge per row of the data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyGenerateFlags(cmd, cfg, opts); err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			report, err := runGenerate(cmd, cfg, opts, logger)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
			}
			if !report.OK() {
				return fmt.Errorf("%d of %d records failed", report.Failed, report.Total())
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.dataFile, "data-file", "d", "", "CSV or XLSX file with name, logo, info columns")
	flags.StringVarP(&opts.template, "template", "t", "", "Single-page PDF template")
	flags.StringVar(&opts.logosDir, "logos-dir", "", "Directory holding the logo images")
	flags.StringVar(&opts.destinationDir, "destination-dir", "", "Directory receiving the badges")
	flags.StringVar(&opts.qrsDir, "qrs-dir", "", "Directory caching generated QR codes")
	flags.StringVar(&opts.delimiter, "delimiter", "", "CSV field delimiter")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "Replace badges that already exist")
	flags.BoolVar(&opts.fetch, "fetch", false, "Download logos missing from the logos directory")
	flags.StringSliceVar(&opts.only, "only", nil, "Generate only the named entities")
	flags.StringVar(&opts.match, "match", "", "Generate only entities whose name contains every word")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the batch report as JSON")
	return cmd
}

func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config, opts generateOptions) error {
	flags := cmd.Flags()
	paths := []struct {
		flag   string
		value  string
		target *string
	}{
		{"data-file", opts.dataFile, &cfg.Paths.DataFile},
		{"template", opts.template, &cfg.Template.Path},
		{"logos-dir", opts.logosDir, &cfg.Paths.LogosDir},
		{"destination-dir", opts.destinationDir, &cfg.Paths.DestinationDir},
		{"qrs-dir", opts.qrsDir, &cfg.Paths.QRsDir},
	}
	for _, p := range paths {
		if !flags.Changed(p.flag) {
			continue
		}
		expanded, err := config.ExpandPath(p.value)
		if err != nil {
			return fmt.Errorf("--%s: %w", p.flag, err)
		}
		*p.target = expanded
	}
	if flags.Changed("delimiter") {
		cfg.Batch.Delimiter = opts.delimiter
	}
	if flags.Changed("overwrite") {
		cfg.Batch.Overwrite = opts.overwrite
	}
	if flags.Changed("fetch") {
		cfg.Batch.FetchMissingLogos = opts.fetch
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.RequireTemplate(); err != nil {
		return err
	}
	if cfg.Paths.DataFile == "" {
		return errors.New("paths.data_file is required. Pass --data-file or set it in the configuration")
	}
	return nil
}

// runGenerate loads the table and the template up front; either failing
// aborts before any record is processed.
func runGenerate(cmd *cobra.Command, cfg *config.Config, opts generateOptions, logger *slog.Logger) (batch.Report, error) {
	records, err := entities.LoadRecords(cfg.Paths.DataFile, entities.LoadOptions{
		Delimiter: cfg.DelimiterRune(),
		Sheet:     cfg.Batch.Sheet,
	})
	if err != nil {
		return batch.Report{}, err
	}
	records = entities.Select(records, entities.SelectOptions{Names: opts.only, FreeWords: opts.match})

	tpl := cfg.BadgeTemplate()
	assembler, err := badge.NewAssembler(tpl, overlay.NewCompositor(cfg.Render.DPI, logger), logger)
	if err != nil {
		return batch.Report{}, err
	}

	var qrs *assets.QRCache
	if tpl.WantsQR() {
		module := cfg.Render.QRModulePx
		qrs = assets.NewQRCache(cfg.Paths.QRsDir, func(payload string) ([]byte, error) {
			return imagepkg.EncodeQRPNG(payload, module)
		}, logger)
		defer func() {
			if err := qrs.Close(); err != nil {
				logger.Warn("close qr cache", logging.Error(err))
			}
		}()
	}

	var fetch assets.Downloader
	if cfg.Batch.FetchMissingLogos {
		fetch = imagepkg.NewDownloader(time.Duration(cfg.Batch.FetchTimeoutSeconds) * time.Second)
	}

	resolver := assets.NewResolver(cfg.Paths.LogosDir, cfg.Paths.DestinationDir, cfg.Batch.Overwrite, qrs, fetch, logger)
	driver := batch.NewDriver(resolver, assembler, logger)
	return driver.Run(cmd.Context(), records), nil
}
