// Package main provides the CLI entrypoint for popuptrack.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/popuptrack/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		logFormat  string
	}
	logger   *slog.Logger
	logLevel = new(slog.LevelVar)
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "popuptrack",
	Short: "Replay and inspect Wayland xdg_popup bookkeeping",
	Long: `popuptrack replays recorded Wayland protocol traces through a popup
manager: the compositor-side bookkeeping that groups xdg_popups into trees
under their root surface, enforces explicit grab ordering per seat and
dismisses popups leaves first.

Traces are YAML event lists or WAYLAND_DEBUG=1 client logs.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		format := cfg.Log.Format
		if globalOpts.logFormat != "" {
			format = globalOpts.logFormat
		}
		logger, err = setupLogger(os.Stderr, format)
		if err != nil {
			return err
		}
		applyLogLevel(cfg)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/popuptrack/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logFormat, "log-format", "",
		"Log format: text, json or pretty (overrides config)")
}

// setupLogger configures the global slog logger. Logs go to w so stdout
// stays clean for output.
func setupLogger(w io.Writer, format string) (*slog.Logger, error) {
	var handler slog.Handler
	switch format {
	case "", "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: "15:04:05.000",
			NoColor:    !isTerminal(w),
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l, nil
}

// applyLogLevel sets the shared level from cfg; --verbose wins.
func applyLogLevel(c *config.Config) {
	if globalOpts.verbose {
		logLevel.Set(slog.LevelDebug)
		return
	}
	logLevel.Set(parseLevel(c.Log.Level))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}
