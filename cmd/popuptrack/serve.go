package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popuptrack/internal/adapter/input"
	"github.com/jmylchreest/popuptrack/internal/config"
	"github.com/jmylchreest/popuptrack/internal/daemon"
	"github.com/jmylchreest/popuptrack/internal/dbus"
	"github.com/jmylchreest/popuptrack/internal/popup"
	"github.com/jmylchreest/popuptrack/internal/trace"
)

var serveOpts struct {
	encoding string
	noDBus   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve <trace>",
	Short: "Keep a replayed popup manager alive for inspection",
	Long: `Replay a trace into a long-lived popup manager, reclaim dead popups and
grabs on the configured cleanup interval and expose the manager on the
session bus as io.github.jmylchreest.PopupTrack.

The trace file is replayed again whenever it changes, and the config file
is reloaded on change (log level and cleanup interval apply immediately).

Inspect with busctl:
  busctl --user call io.github.jmylchreest.PopupTrack \
    /io/github/jmylchreest/PopupTrack io.github.jmylchreest.PopupTrack Status`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOpts.encoding, "encoding", "",
		"Trace encoding: yaml or wayland-debug (auto-detects if empty)")
	serveCmd.Flags().BoolVar(&serveOpts.noDBus, "no-dbus", false,
		"Do not claim a name on the session bus")
}

func runServe(cmd *cobra.Command, args []string) error {
	c := getConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file := input.NewFileAdapter(args[0], serveOpts.encoding)
	tr, err := file.Import(ctx)
	if err != nil {
		return err
	}

	d := daemon.New(c, logger)
	if _, err := d.Replay(ctx, tr); err != nil {
		logger.Warn("replay stopped early", "error", err)
	}

	if c.DBus.Enabled && !serveOpts.noDBus {
		server := dbus.NewInspectServer(d, c.DBus.BusName, logger)
		if err := server.Start(); err != nil {
			// Inspection is optional, keep serving without it
			logger.Warn("D-Bus inspect server unavailable", "error", err)
		} else {
			defer server.Stop()
			d.SetCleanupCallback(func(st popup.Stats) {
				if err := server.EmitCleanupRan(st); err != nil {
					logger.Debug("failed to emit cleanup signal", "error", err)
				}
			})
		}
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cleanup loop: %w", err)
	}
	defer d.Stop()

	traceWatcher, err := input.NewWatcher(file, logger, func(tr *trace.Trace) {
		if _, err := d.Replay(ctx, tr); err != nil {
			logger.Warn("replay stopped early", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create trace watcher: %w", err)
	}
	if err := traceWatcher.Start(ctx); err != nil {
		logger.Warn("failed to watch trace file", "path", file.Path(), "error", err)
	}
	defer traceWatcher.Stop()

	configWatcher, err := config.NewWatcher(globalOpts.configPath, logger, func(newCfg *config.Config) {
		applyLogLevel(newCfg)
		d.UpdateConfig(newCfg)
	})
	if err != nil {
		logger.Warn("failed to create config watcher", "error", err)
	} else {
		if err := configWatcher.Start(); err != nil {
			logger.Debug("config hot-reload disabled", "error", err)
		}
		defer configWatcher.Stop()
	}

	logger.Info("popuptrack serving", "trace", file.Path(), "status", d.Status())
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
