package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestStartRejectsRelativePath(t *testing.T) {
	w := New(func([]byte) error { return nil })
	if err := w.Start("relative/path.json", DefaultDebounce); err == nil {
		t.Fatal("expected rejection of relative path")
	}
}

func TestStartRejectsMissingFile(t *testing.T) {
	w := New(func([]byte) error { return nil })
	if err := w.Start(filepath.Join(t.TempDir(), "missing.json"), DefaultDebounce); err == nil {
		t.Fatal("expected rejection of missing file")
	}
}

func TestStartPerformsInitialApplySynchronously(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	writeFile(t, path, `{}`)

	var calls int32
	w := New(func([]byte) error { atomic.AddInt32(&calls, 1); return nil })
	defer w.Stop()

	if err := w.Start(path, DefaultDebounce); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 synchronous initial apply, got %d", calls)
	}
	_, _, stats := w.Status()
	if stats.ApplyCount != 1 {
		t.Fatalf("expected ApplyCount 1, got %d", stats.ApplyCount)
	}
}

func TestStartIsFailOpenOnInitialApplyError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	writeFile(t, path, `{}`)

	w := New(func([]byte) error { return errors.New("boom") })
	defer w.Stop()

	if err := w.Start(path, DefaultDebounce); err != nil {
		t.Fatalf("start must succeed even if initial apply fails: %v", err)
	}
	active, _, stats := w.Status()
	if !active {
		t.Fatal("expected watcher to remain active after failed initial apply")
	}
	if stats.ErrorCount != 1 {
		t.Fatalf("expected ErrorCount 1, got %d", stats.ErrorCount)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := New(func([]byte) error { return nil })
	w.Stop()
	w.Stop()
}

func TestDebounceCoalescesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	writeFile(t, path, `{}`)

	var calls int32
	w := New(func([]byte) error { atomic.AddInt32(&calls, 1); return nil })
	defer w.Stop()

	if err := w.Start(path, 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	atomic.StoreInt32(&calls, 0) // discard the synchronous initial apply

	for i := 0; i < 5; i++ {
		writeFile(t, path, `{"v":1}`)
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got > 1 {
		t.Fatalf("expected at most one coalesced apply, got %d", got)
	}
}

func TestStartResetsStatsOnNewPath(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.json")
	pathB := filepath.Join(dir, "b.json")
	writeFile(t, pathA, `{}`)
	writeFile(t, pathB, `{}`)

	w := New(func([]byte) error { return errors.New("boom") })
	defer w.Stop()

	w.Start(pathA, DefaultDebounce)
	_, _, stats := w.Status()
	if stats.ErrorCount != 1 {
		t.Fatalf("expected 1 error after first start, got %d", stats.ErrorCount)
	}

	w.Start(pathB, DefaultDebounce)
	_, _, stats = w.Status()
	if stats.ErrorCount != 1 {
		t.Fatalf("expected stats reset then one new error, got %d", stats.ErrorCount)
	}
}
