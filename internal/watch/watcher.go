package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/model"
)

const (
	// sourceSuffix selects the files whose changes trigger notifications.
	sourceSuffix = ".go"

	// debounceInterval is how long a change must settle before delivery.
	// Editors save in bursts; one save burst becomes one notification.
	debounceInterval = 500 * time.Millisecond

	// sweepInterval is how often settled changes are swept out for
	// delivery.
	sweepInterval = 100 * time.Millisecond
)

// defaultExcludes are directory names never watched. They mirror the
// style checker's exclusions plus the coverage artifact directory, whose
// writes would otherwise retrigger the very run that produced them.
var defaultExcludes = []string{".git", "docs", "build", "dist", "vendor", "coverage"}

// Watcher observes a source tree and delivers debounced batches of
// changed file paths.
type Watcher struct {
	root string
	log  *zap.Logger

	watcher  *fsnotify.Watcher
	excludes []string
	changes  chan []string

	mu      sync.Mutex
	pending map[string]time.Time
	running bool
	stopped bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a Watcher over the project root. A nil logger
// disables diagnostics.
func NewWatcher(root string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			"failed to initialize the file watcher", err)
	}
	return &Watcher{
		root:     root,
		log:      log,
		watcher:  fsw,
		excludes: append([]string(nil), defaultExcludes...),
		changes:  make(chan []string, 1),
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// AddExcludes extends the set of directory names never watched. Only
// effective before Start.
func (w *Watcher) AddExcludes(names []string) {
	w.excludes = append(w.excludes, names...)
}

// Changes returns the channel delivering settled change batches. Paths
// within a batch are sorted and unique.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start registers every non-excluded directory under the root and begins
// delivering changes. It is non-blocking; the event loop runs until Stop
// is called or the context is canceled. Starting a running watcher is a
// no-op. A Watcher is single-use: it cannot start again after Stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return model.NewCLIError(model.ExitGeneralError, "file watcher already stopped")
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking source tree at %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.isExcluded(d.Name()) {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	w.log.Debug("watching source tree", zap.String("root", w.root))

	go w.run(ctx)
	return nil
}

// Stop terminates the event loop, waits for it to finish, and closes the
// underlying watcher. Stopping a second time is a no-op; stopping a
// watcher that never started still releases its resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		w.log.Warn("failed to close the file watcher", zap.Error(err))
	}
}

// run is the event loop. It records raw events into the pending map and
// sweeps settled ones out for delivery on a fixed cadence.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))

		case <-ticker.C:
			w.deliverSettled()
		}
	}
}

// handleEvent records a relevant filesystem event. New directories are
// added to the watch set; source file changes go into the pending map.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.isExcluded(filepath.Base(event.Name)) {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Warn("failed to watch new directory",
						zap.String("dir", event.Name), zap.Error(err))
				}
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, sourceSuffix) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// deliverSettled moves changes older than the debounce window onto the
// changes channel. Delivery never blocks the event loop: when the
// receiver is busy, the batch stays pending and the next sweep retries.
func (w *Watcher) deliverSettled() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= debounceInterval {
			settled = append(settled, path)
		}
	}
	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)

	select {
	case w.changes <- settled:
		for _, path := range settled {
			delete(w.pending, path)
		}
	default:
	}
}

// isExcluded reports whether a directory name is in the exclusion set.
func (w *Watcher) isExcluded(name string) bool {
	for _, excl := range w.excludes {
		if name == excl {
			return true
		}
	}
	return false
}
