package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popuptrack/internal/adapter/input"
	"github.com/jmylchreest/popuptrack/internal/adapter/output"
	"github.com/jmylchreest/popuptrack/internal/core"
	"github.com/jmylchreest/popuptrack/internal/trace"
)

var replayOpts struct {
	// Input options
	encoding string
	watch    bool

	// Output options
	format   string
	template string
	showIDs  bool
	noColor  bool
	filter   string
	find     string
}

var replayCmd = &cobra.Command{
	Use:   "replay <trace|->",
	Short: "Replay a protocol trace and print the resulting popup trees",
	Long: `Replay a protocol trace through a fresh popup manager and print what it
ended up tracking: the popup trees per root surface, the popups that were sent
popup_done, and any protocol errors posted on the way.

The trace is a YAML event list or a WAYLAND_DEBUG=1 client log. Use "-" to
read from standard input.

Examples:
  # Print the popup trees of a recorded trace
  popuptrack replay menu.yaml

  # Replay a live client log
  WAYLAND_DEBUG=1 foot 2>&1 | popuptrack replay -

  # One line per event, custom layout
  popuptrack replay menu.yaml --format events --template '{{.Op}} {{.Result}}'

  # Only the events the popup core rejected
  popuptrack replay menu.yaml --format events --filter 'result!=ok'

  # Where did a popup end up?
  popuptrack replay menu.yaml --find submenu

  # Replay again whenever the file is saved
  popuptrack replay menu.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayOpts.encoding, "encoding", "",
		"Trace encoding: yaml or wayland-debug (auto-detects if empty)")
	replayCmd.Flags().BoolVarP(&replayOpts.watch, "watch", "w", false,
		"Replay again whenever the trace file changes")
	replayCmd.Flags().StringVarP(&replayOpts.format, "format", "f", "",
		"Output format: plain, json, events, ids (default from config)")
	replayCmd.Flags().StringVar(&replayOpts.template, "template", "",
		"Go template for each line of the events format")
	replayCmd.Flags().BoolVar(&replayOpts.showIDs, "show-ids", false,
		"Show surface IDs next to labels")
	replayCmd.Flags().BoolVar(&replayOpts.noColor, "no-color", false,
		"Disable coloured output")
	replayCmd.Flags().StringVar(&replayOpts.filter, "filter", "",
		"Filter events, e.g. 'op=grab,result!=ok' (fields: op, surface, result, error, index, serial)")
	replayCmd.Flags().StringVar(&replayOpts.find, "find", "",
		"Print the path of one popup, by label or ID prefix, instead of the report")
}

func runReplay(cmd *cobra.Command, args []string) error {
	c := getConfig()

	format := c.Output.Format
	if replayOpts.format != "" {
		format = replayOpts.format
	}
	if !output.ValidFormat(format) {
		return fmt.Errorf("invalid format %q", format)
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = replayOpts.template
	opts.ShowIDs = c.Output.ShowIDs || replayOpts.showIDs
	opts.Color = !replayOpts.noColor && isTerminal(os.Stdout)
	formatter := output.NewFormatter(output.FormatType(format), opts)

	filter, err := core.ParseFilter(replayOpts.filter)
	if err != nil {
		return err
	}
	show := func(w io.Writer, report *trace.Report) error {
		if replayOpts.find != "" {
			return printFind(w, report, replayOpts.find)
		}
		report.Outcomes = core.FilterOutcomes(report.Outcomes, filter)
		return formatter.Format(w, report)
	}

	adapter, err := input.NewAdapter(args[0], replayOpts.encoding)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, err := adapter.Import(ctx)
	if err != nil {
		return err
	}

	replayErr := replay(ctx, tr, show, cmd.OutOrStdout())
	if !replayOpts.watch {
		return replayErr
	}

	file, ok := adapter.(*input.FileAdapter)
	if !ok {
		return errors.New("--watch needs a trace file, not standard input")
	}
	if replayErr != nil {
		logger.Warn("replay failed", "error", replayErr)
	}

	watcher, err := input.NewWatcher(file, logger, func(tr *trace.Trace) {
		fmt.Fprintln(cmd.OutOrStdout())
		if err := replay(ctx, tr, show, cmd.OutOrStdout()); err != nil {
			logger.Warn("replay failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create trace watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s: %w", file.Path(), err)
	}
	defer watcher.Stop()

	logger.Info("watching trace for changes", "path", file.Path())
	<-ctx.Done()
	return nil
}

// replay runs tr through a fresh manager and writes the report. The report
// is written even when an event could not be applied.
func replay(ctx context.Context, tr *trace.Trace, show func(io.Writer, *trace.Report) error, w io.Writer) error {
	report, runErr := trace.NewRunner(nil, logger).Run(ctx, tr)
	if err := show(w, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return runErr
}

// printFind writes the root-first path of the popup matching ref.
func printFind(w io.Writer, report *trace.Report, ref string) error {
	m, ok := core.LookupPopup(report.Roots, ref)
	if !ok {
		return fmt.Errorf("no single popup matches %q", ref)
	}
	_, err := fmt.Fprintf(w, "%s @%s %s\n", strings.Join(m.Path, " > "), m.Popup.Offset, m.Popup.ID)
	return err
}
