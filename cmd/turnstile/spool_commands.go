package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"turnstile/internal/logging"
	"turnstile/internal/sheets"
	"turnstile/internal/spool"
	"turnstile/internal/writequeue"
	"turnstile/internal/writer"
)

func newSpoolCommand(ctx *commandContext) *cobra.Command {
	spoolCmd := &cobra.Command{
		Use:   "spool",
		Short: "Inspect and replay undelivered records",
	}

	spoolCmd.AddCommand(newSpoolListCommand(ctx))
	spoolCmd.AddCommand(newSpoolDrainCommand(ctx))
	spoolCmd.AddCommand(newSpoolClearCommand(ctx))
	spoolCmd.AddCommand(newSpoolHealthCommand(ctx))

	return spoolCmd
}

func newSpoolListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List spooled records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			store, err := spool.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Spool is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.Record.Label(),
					entry.Record.Timestamp,
					entry.Reason,
					strconv.Itoa(entry.Attempts),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Record", "Scanned at", "Reason", "Attempts"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newSpoolDrainCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Replay spooled records to the sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if err := cfg.ValidateSheets(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := spool.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := sheets.NewGoogleClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			w := writer.New(cfg, writequeue.New(1), client, store, nil, nil, logger)
			start := time.Now()
			drained, err := w.DrainSpool(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Delivered %d spooled record(s) in %s\n", drained, time.Since(start).Round(time.Millisecond))
			if err != nil {
				return fmt.Errorf("drain stopped early: %w", err)
			}

			remaining, countErr := store.Count(cmd.Context())
			if countErr == nil && remaining > 0 {
				fmt.Fprintf(out, "%d record(s) remain spooled; inspect them with 'turnstile spool list'\n", remaining)
			}
			return nil
		},
	}
}

func newSpoolHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the spool database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			store, err := spool.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.CheckHealth(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", health.DBPath)
			fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
			fmt.Fprintf(out, "Entries: %d\n", health.TotalEntries)
			fmt.Fprintf(out, "Integrity: %s\n", yesNo(health.IntegrityCheck))
			if err != nil {
				return err
			}
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func newSpoolClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all spooled records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete spooled records without --yes")
			}

			cfg := ctx.configValue()
			store, err := spool.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			cleared, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d spooled record(s)\n", cleared)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
