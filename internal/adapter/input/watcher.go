package input

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// Watcher re-imports a trace file whenever it changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	adapter  *FileAdapter
	onChange func(*trace.Trace)
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewWatcher creates a watcher for the trace file read by adapter. onChange
// receives every successfully decoded trace.
func NewWatcher(adapter *FileAdapter, logger *slog.Logger, onChange func(*trace.Trace)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		logger:   logger,
		adapter:  adapter,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the trace file.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, editors replace files on save
	if err := w.watcher.Add(filepath.Dir(w.adapter.Path())); err != nil {
		return err
	}

	go w.watch(ctx)
	w.logger.Debug("trace watcher started", "path", w.adapter.Path())
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	filename := filepath.Base(w.adapter.Path())

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload(ctx)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("trace watcher error", "error", err)

		case <-ctx.Done():
			return

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	tr, err := w.adapter.Import(ctx)
	if err != nil {
		// Partial writes show up as decode errors, the next event retries
		w.logger.Debug("failed to reload trace", "path", w.adapter.Path(), "error", err)
		return
	}

	w.logger.Info("trace file changed, replaying", "path", w.adapter.Path())
	if w.onChange != nil {
		w.onChange(tr)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return w.watcher.Close()
	}

	w.running = false
	close(w.done)
	return w.watcher.Close()
}
