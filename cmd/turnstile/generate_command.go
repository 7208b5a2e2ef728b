package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"turnstile/internal/config"
	"turnstile/internal/qrgen"
	"turnstile/internal/roster"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "generate <roster.csv>",
		Short: "Generate badge QR codes from a roster CSV",
		Long:  "Reads a roster CSV (id and name columns required, other columns become extra fields) and writes one QR badge PNG per attendee.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			entries, err := roster.Load(args[0])
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outDir)
			if target == "" {
				target = cfg.Paths.QRDir
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve output dir: %w", err)
				}
				target = expanded
			}

			paths, err := qrgen.Generate(entries, cfg.Event.Name, target)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d badge(s) to %s\n", len(paths), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (defaults to paths.qr_dir)")
	return cmd
}
