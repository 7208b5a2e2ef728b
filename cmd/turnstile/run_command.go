package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"turnstile/internal/api"
	"turnstile/internal/camera"
	"turnstile/internal/events"
	"turnstile/internal/logging"
	"turnstile/internal/pipeline"
	"turnstile/internal/sheets"
	"turnstile/internal/spool"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start a scan session",
		Long:  "Opens the camera, scans QR badges, and records each sign-in to the configured sheet until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if err := cfg.ValidateSheets(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "turnstile.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire session lock: %w", err)
			}
			if !locked {
				return errors.New("another turnstile session is already running")
			}
			defer func() { _ = lock.Unlock() }()

			store, err := spool.Open(cfg)
			if err != nil {
				return fmt.Errorf("open spool: %w", err)
			}
			defer store.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := sheets.NewGoogleClient(sigCtx, cfg)
			if err != nil {
				return err
			}

			bus := events.NewBus(0)
			defer bus.Close()

			session, err := pipeline.NewSession(cfg, pipeline.Deps{
				Client: client,
				Spool:  store,
				Bus:    bus,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			server := api.NewServer(cfg, session, store, logger)
			if err := server.Start(); err != nil {
				return fmt.Errorf("start status server: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = server.Stop(shutdownCtx)
			}()

			monitor := camera.NewMonitor(cfg, bus, logger)
			if err := monitor.Start(sigCtx); err != nil {
				return err
			}
			defer monitor.Stop()

			ch, cancelSub := bus.Subscribe()
			counts := make(map[events.Type]int)
			spooled := 0
			dropped := 0
			rendered := make(chan struct{})
			go func() {
				defer close(rendered)
				out := cmd.OutOrStdout()
				for ev := range ch {
					counts[ev.Type]++
					switch ev.Type {
					case events.TypeQueueFull:
						dropped += ev.Count
					case events.TypeSpooled:
						spooled += ev.Count
					}
					if line := renderEvent(ev); line != "" {
						fmt.Fprintln(out, line)
					}
				}
			}()

			if err := session.Start(sigCtx); err != nil {
				cancelSub()
				<-rendered
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanning for event %q. Press Ctrl+C to stop.\n", cfg.Event.Name)
			if addr := server.Addr(); addr != "" {
				fmt.Fprintf(out, "Status API on http://%s\n", addr)
			}

			<-sigCtx.Done()
			stop()
			fmt.Fprintln(out, "Stopping session, draining pending records...")

			if err := session.Stop(); err != nil {
				logger.Warn("session stop", logging.Args(logging.Error(err))...)
			}

			cancelSub()
			<-rendered

			fmt.Fprintln(out, renderSummary(counts, spooled, dropped))
			return nil
		},
	}
}

func renderEvent(ev events.Event) string {
	switch ev.Type {
	case events.TypeRecognized:
		if ev.Record != nil {
			return "  scanned  " + ev.Record.Label()
		}
	case events.TypeWriteOK:
		if ev.Record != nil {
			return "  recorded " + ev.Record.Label()
		}
	case events.TypeWriteFailed:
		if ev.Record != nil {
			return "  FAILED   " + ev.Record.Label() + " (" + ev.Reason + ")"
		}
	case events.TypeSpooled:
		return "  spooled  " + strconv.Itoa(ev.Count) + " record(s): " + ev.Reason
	case events.TypeSpoolDrained:
		return "  drained  " + strconv.Itoa(ev.Count) + " spooled record(s)"
	case events.TypeQueueFull:
		return "  WARNING  queue full, dropped " + strconv.Itoa(ev.Count) + " oldest record(s)"
	case events.TypeCameraError:
		return "  CAMERA   " + ev.Reason
	case events.TypeCameraDetached:
		return "  CAMERA   " + ev.Key + " detached"
	case events.TypeCameraAttached:
		return "  CAMERA   " + ev.Key + " attached; restart the session to resume scanning"
	}
	return ""
}

func renderSummary(counts map[events.Type]int, spooled, dropped int) string {
	rows := [][]string{
		{"Scans recognized", strconv.Itoa(counts[events.TypeRecognized])},
		{"Duplicates suppressed", strconv.Itoa(counts[events.TypeSuppressed])},
		{"Records delivered", strconv.Itoa(counts[events.TypeWriteOK])},
		{"Records failed", strconv.Itoa(counts[events.TypeWriteFailed])},
		{"Records spooled", strconv.Itoa(spooled)},
		{"Records dropped", strconv.Itoa(dropped)},
	}
	return renderTable([]string{"Session summary", ""}, rows, []columnAlignment{alignLeft, alignRight})
}
