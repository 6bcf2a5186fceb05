package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/youruser/distintivos/internal/api"
	"github.com/youruser/distintivos/internal/badge"
	"github.com/youruser/distintivos/internal/config"
	"github.com/youruser/distintivos/internal/logging"
	"github.com/youruser/distintivos/internal/overlay"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var templatePath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the QR and badge HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind = bind
			}
			if cmd.Flags().Changed("template") {
				if cfg.Template.Path, err = config.ExpandPath(templatePath); err != nil {
					return fmt.Errorf("--template: %w", err)
				}
			}

			var assembler *badge.Assembler
			if cfg.Template.Path != "" {
				assembler, err = badge.NewAssembler(cfg.BadgeTemplate(), overlay.NewCompositor(cfg.Render.DPI, logger), logger)
				if err != nil {
					return err
				}
			} else {
				logger.Warn("no template configured, /api/badges disabled")
			}

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              cfg.Server.Bind,
				Handler:           api.NewServer(assembler, cfg.Render.QRModulePx, logger).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server",
					logging.String(logging.FieldEventType, "server_started"),
					logging.String("bind", cfg.Server.Bind),
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down server")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from [server] bind)")
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Single-page PDF template for /api/badges")
	return cmd
}
