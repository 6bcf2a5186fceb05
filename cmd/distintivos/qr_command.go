package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/util"
)

func newQRCommand(ctx *commandContext) *cobra.Command {
	var output string
	var module int

	cmd := &cobra.Command{
		Use:   "qr <payload>",
		Short: "Encode a payload as a transparent QR code PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("module") {
				module = cfg.Render.QRModulePx
			}
			if module < 1 || module > imagepkg.MaxModuleSize {
				return fmt.Errorf("--module must be between 1 and %d", imagepkg.MaxModuleSize)
			}
			png, err := imagepkg.EncodeQRPNG(args[0], module)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" || target == "-" {
				_, err := cmd.OutOrStdout().Write(png)
				return err
			}
			if err := util.WriteFileAtomic(target, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote QR code to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG file to write (stdout when empty)")
	cmd.Flags().IntVar(&module, "module", imagepkg.DefaultModuleSize, "Pixels per QR module")
	return cmd
}
