package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"turnstile/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stats from the running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if cfg.API.Bind == "" {
				return errors.New("api.bind is not configured; the running session exposes no status endpoint")
			}

			client := &http.Client{Timeout: 3 * time.Second}
			resp, err := client.Get("http://" + cfg.API.Bind + "/api/stats")
			if err != nil {
				return fmt.Errorf("no session reachable at %s: %w", cfg.API.Bind, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status endpoint returned %s", resp.Status)
			}

			var stats api.Stats
			if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
				return fmt.Errorf("decode stats: %w", err)
			}

			rows := [][]string{
				{"Session", stats.SessionID},
				{"Event", stats.Event},
				{"Started", stats.StartedAt.Local().Format(time.RFC1123)},
				{"Recognized", strconv.Itoa(stats.Recognized)},
				{"Suppressed", strconv.Itoa(stats.Suppressed)},
				{"Delivered", strconv.Itoa(stats.WriteOK)},
				{"Failed", strconv.Itoa(stats.WriteFailed)},
				{"Spooled", strconv.Itoa(stats.Spooled)},
				{"Queue depth", strconv.Itoa(stats.QueueDepth)},
				{"Queue dropped", strconv.Itoa(stats.QueueDropped)},
				{"Spool entries", strconv.Itoa(stats.SpoolEntries)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
