// Package watch triggers imports when new letters land in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"auditimport/internal/letters"
	"auditimport/internal/logging"
)

const defaultSettle = 5 * time.Second

// Trigger receives the base names of files that have stopped changing.
type Trigger func(ctx context.Context, names []string) error

// Watcher monitors a single letters directory. Subdirectories are not
// followed.
type Watcher struct {
	fs      *fsnotify.Watcher
	dir     string
	settle  time.Duration
	trigger Trigger
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time

	closeOnce sync.Once
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger used for event and trigger diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New starts watching dir immediately. Files are handed to trigger once no
// event has touched them for the settle duration.
func New(dir string, settle time.Duration, trigger Trigger, opts ...Option) (*Watcher, error) {
	if trigger == nil {
		return nil, errors.New("watch: trigger is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %q: not a directory", dir)
	}
	if settle <= 0 {
		settle = defaultSettle
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %q: %w", dir, err)
	}

	w := &Watcher{
		fs:      fsw,
		dir:     dir,
		settle:  settle,
		trigger: trigger,
		logger:  logging.NewNop(),
		now:     time.Now,
		pending: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "watch")
	return w, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
// Trigger errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	interval := w.settle / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("watching letters directory",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "events may have been dropped; run import manually"),
			)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
		return
	}
	name := filepath.Base(event.Name)
	if !letters.IsCandidate(name) {
		return
	}
	w.mu.Lock()
	w.pending[name] = w.now()
	w.mu.Unlock()
	w.logger.Debug("letter queued", logging.String(logging.FieldFile, name))
}

// ready removes and returns the names that have settled, sorted.
func (w *Watcher) ready() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	var names []string
	for name, seen := range w.pending {
		if now.Sub(seen) >= w.settle {
			names = append(names, name)
			delete(w.pending, name)
		}
	}
	sort.Strings(names)
	return names
}

func (w *Watcher) flush(ctx context.Context) {
	names := w.ready()
	if len(names) == 0 {
		return
	}
	present := names[:0]
	for _, name := range names {
		info, err := os.Stat(filepath.Join(w.dir, name))
		if err != nil || info.IsDir() {
			continue
		}
		present = append(present, name)
	}
	if len(present) == 0 {
		return
	}
	w.logger.Info("new letters settled", logging.Int("count", len(present)))
	if err := w.trigger(ctx, present); err != nil {
		logging.WarnWithContext(w.logger, "watch-triggered import failed", "watch_trigger_failed",
			logging.Error(err),
			logging.Int("count", len(present)),
			logging.String(logging.FieldErrorHint, "files stay in place; rerun import to retry"),
		)
	}
}
