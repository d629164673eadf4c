package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/jmylchreest/popuptrack/internal/config"
	"github.com/jmylchreest/popuptrack/internal/popup"
	"github.com/jmylchreest/popuptrack/internal/trace"
)

// Daemon owns a popup manager and runs periodic cleanup on it. The manager
// is not safe for concurrent use, so every access goes through the daemon.
type Daemon struct {
	mu     sync.Mutex
	logger *slog.Logger

	manager  *popup.Manager
	interval time.Duration

	startedAt   time.Time
	cleanups    int
	lastCleanup time.Time
	lastReport  *trace.Report

	onCleanup func(popup.Stats)

	// Control channels
	resetCh chan time.Duration
	stopCh  chan struct{}
	doneCh  chan struct{}

	running bool
}

// New creates a Daemon configured by cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Daemon{
		logger:   logger,
		manager:  popup.NewManager(logger),
		interval: cfg.Manager.CleanupInterval.Duration(),
		resetCh:  make(chan time.Duration, 1),
	}
}

// SetCleanupCallback sets the callback invoked after every cleanup pass with
// the stats left behind.
func (d *Daemon) SetCleanupCallback(callback func(popup.Stats)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onCleanup = callback
}

// Replay replaces the daemon's manager with a fresh one and replays tr into
// it. The report is kept for Snapshot until the next replay.
func (d *Daemon) Replay(ctx context.Context, tr *trace.Trace) (*trace.Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.manager = popup.NewManager(d.logger)
	report, err := trace.NewRunner(d.manager, d.logger).Run(ctx, tr)
	d.lastReport = report
	if err != nil {
		return report, err
	}

	d.logger.Info("trace replayed",
		"events", len(tr.Events),
		"trees", report.Stats.Trees,
		"popups", report.Stats.Popups,
	)
	return report, nil
}

// LastReport returns the report of the latest replay, or nil.
func (d *Daemon) LastReport() *trace.Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastReport
}

// Interval returns the current cleanup interval.
func (d *Daemon) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

// UpdateConfig applies a reloaded configuration. A changed cleanup interval
// takes effect on the running loop immediately.
func (d *Daemon) UpdateConfig(cfg *config.Config) {
	interval := cfg.Manager.CleanupInterval.Duration()

	d.mu.Lock()
	changed := interval != d.interval && interval > 0
	if changed {
		d.interval = interval
	}
	running := d.running
	d.mu.Unlock()

	if !changed {
		return
	}
	d.logger.Info("cleanup interval changed", "interval", interval)

	if running {
		// Only the latest value matters
		select {
		case <-d.resetCh:
		default:
		}
		select {
		case d.resetCh <- interval:
		default:
		}
	}
}

// Start begins the periodic cleanup loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.startedAt = time.Now()
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	interval := d.interval
	stopCh, doneCh := d.stopCh, d.doneCh
	d.mu.Unlock()

	go d.cleanupLoop(ctx, interval, stopCh, doneCh)

	d.logger.Debug("cleanup loop started", "interval", interval)
	return nil
}

// Stop stops the cleanup loop and waits for it to exit.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	doneCh := d.doneCh
	d.mu.Unlock()

	<-doneCh
	d.logger.Debug("cleanup loop stopped")
}

func (d *Daemon) cleanupLoop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case interval := <-d.resetCh:
			ticker.Reset(interval)
		case <-ticker.C:
			d.RunCleanup()
		}
	}
}

// RunCleanup performs one cleanup pass and returns the stats after it.
func (d *Daemon) RunCleanup() popup.Stats {
	d.mu.Lock()
	before := d.manager.Stats()
	d.manager.Cleanup()
	after := d.manager.Stats()
	d.cleanups++
	d.lastCleanup = time.Now()
	callback := d.onCleanup
	d.mu.Unlock()

	if before != after {
		d.logger.Debug("cleanup reclaimed resources",
			"trees", before.Trees-after.Trees,
			"popups", before.Popups-after.Popups,
			"unmapped", before.Unmapped-after.Unmapped,
			"grabs", before.Grabs-after.Grabs,
		)
	}

	if callback != nil {
		callback(after)
	}
	return after
}

// Stats returns the manager's bookkeeping counts.
func (d *Daemon) Stats() popup.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.manager.Stats()
}

// Snapshot returns every registered root and its popups.
func (d *Daemon) Snapshot() []trace.RootSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return trace.Snapshot(d.manager)
}

// Cleanups returns how many cleanup passes ran and when the last one did.
func (d *Daemon) Cleanups() (int, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cleanups, d.lastCleanup
}

// Status returns a one-line human readable status.
func (d *Daemon) Status() string {
	d.mu.Lock()
	st := d.manager.Stats()
	cleanups, last, started := d.cleanups, d.lastCleanup, d.startedAt
	d.mu.Unlock()

	status := fmt.Sprintf("%s, %s, %d unmapped, %s",
		english.Plural(st.Trees, "tree", ""),
		english.Plural(st.Popups, "popup", ""),
		st.Unmapped,
		english.Plural(st.Grabs, "grab", ""),
	)

	if cleanups == 0 {
		status += "; no cleanup yet"
	} else {
		status += fmt.Sprintf("; %s, last %s", english.Plural(cleanups, "cleanup", ""), humanize.Time(last))
	}

	if !started.IsZero() {
		status += "; started " + humanize.Time(started)
	}
	return status
}
