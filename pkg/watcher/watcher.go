// Package watcher implements the policy file watcher: it
// watches a single absolute path, debounces change notifications, and
// re-runs an injected validate/compile/reconcile pipeline on each
// settled change. Fail-open: an apply failure during a watched reload
// never stops the watch and never touches existing kernel state beyond
// what the pipeline itself already guarantees.
//
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// MinDebounce and MaxDebounce bound the configurable debounce interval.
const (
	MinDebounce     = 100 * time.Millisecond
	MaxDebounce     = 30 * time.Second
	DefaultDebounce = 1 * time.Second
)

const readRetryAttempts = 5
const readRetryDelay = 150 * time.Millisecond // 5 * 150ms < 1s total

// ApplyFunc runs the validate/compile/reconcile pipeline against the raw
// bytes read from the watched file. A non-nil error is recorded as a
// failed apply but never stops the watch.
type ApplyFunc func(policyJSON []byte) error

// Stats are the watcher's observable counters.
// They monotonically increase within one Start(path) lifetime and reset
// only when Start is called again.
type Stats struct {
	ApplyCount    int
	ErrorCount    int
	LastApplyTime time.Time
	LastError     string
	LastErrorTime time.Time
}

// Watcher watches one file path at a time and debounces reloads into
// calls to an injected ApplyFunc.
type Watcher struct {
	apply ApplyFunc

	mu       sync.Mutex
	path     string
	debounce time.Duration
	stats    Stats
	running  bool

	fsw    *fsnotify.Watcher
	timer  *time.Timer
	doneCh chan struct{}
	stopCh chan struct{}

	applyMu sync.Mutex // serializes applies: at most one at a time
}

// New creates a Watcher with the given apply pipeline. It is Idle until
// Start is called.
func New(apply ApplyFunc) *Watcher {
	return &Watcher{apply: apply, debounce: DefaultDebounce}
}

// Start validates path and transitions Idle/Watching -> Watching(path).
// Any previous watch is stopped first. Stats reset. The
// initial apply runs synchronously and its result is recorded but never
// returned as an error: start is fail-open.
func (w *Watcher) Start(path string, debounce time.Duration) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if debounce < MinDebounce || debounce > MaxDebounce {
		return fmt.Errorf("watcher: debounce %s out of range [%s, %s]", debounce, MinDebounce, MaxDebounce)
	}

	w.mu.Lock()
	w.stopLocked()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("watcher: failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		w.mu.Unlock()
		return fmt.Errorf("watcher: failed to watch %s: %w", filepath.Dir(path), err)
	}

	w.path = path
	w.debounce = debounce
	w.stats = Stats{}
	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	w.doApply() // fail-open: error recorded in stats, not returned

	go w.loop(fsw, w.stopCh, w.doneCh, path)
	return nil
}

// Stop detaches the observer and forgets the path. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

// stopLocked requires w.mu held.
func (w *Watcher) stopLocked() {
	if !w.running {
		return
	}
	close(w.stopCh)
	w.mu.Unlock()
	<-w.doneCh
	w.mu.Lock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	w.running = false
	w.path = ""
}

// Dispose stops the watch and cancels any pending debounced apply").
func (w *Watcher) Dispose() {
	w.Stop()
}

// Status reports whether the watcher is active, the watched path, and a
// snapshot of its counters. Used by the server's watch-status handler.
func (w *Watcher) Status() (active bool, path string, stats Stats) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running, w.path, w.stats
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}, path string) {
	defer close(doneCh)
	target := filepath.Clean(path)

	for {
		select {
		case <-stopCh:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			w.arm()
		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// fsnotify-internal errors do not count against the
			// watcher's own error stats; they are not apply failures.
		}
	}
}

// arm (re)schedules the debounced apply; re-arming resets the timer.
func (w *Watcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	debounce := w.debounce
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, w.doApply)
}

// doApply reads the watched file with bounded retry and runs the
// pipeline. At most one apply runs at a time per watcher instance.
func (w *Watcher) doApply() {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.Lock()
	path := w.path
	w.mu.Unlock()
	if path == "" {
		return
	}

	raw, err := readWithRetry(path)
	if err == nil {
		err = w.apply(raw)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.ErrorCount++
		w.stats.LastError = err.Error()
		w.stats.LastErrorTime = time.Now().UTC()
		return
	}
	w.stats.ApplyCount++
	w.stats.LastApplyTime = time.Now().UTC()
}

// readWithRetry retries a bounded handful of times on a transient
// sharing violation before giving up.
func readWithRetry(path string) ([]byte, error) {
	var lastErr error
	for i := 0; i < readRetryAttempts; i++ {
		raw, err := os.ReadFile(path)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !isSharingViolation(err) {
			return nil, err
		}
		time.Sleep(readRetryDelay)
	}
	return nil, lastErr
}

func isSharingViolation(err error) bool {
	return errors.Is(err, os.ErrPermission) || strings.Contains(err.Error(), "being used by another process")
}

// validatePath enforces the start(path) precondition: non-empty,
// absolute, no ".." segments, file exists.
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("watcher: path must not be empty")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("watcher: path must be absolute")
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return fmt.Errorf("watcher: path must not contain \"..\" segments (traversal)")
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watcher: path does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("watcher: path must be a file, not a directory")
	}
	return nil
}
