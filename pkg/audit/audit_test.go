package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

type fakeSink struct {
	entries []model.AuditEntry
	err     error
}

func (s *fakeSink) Insert(_ context.Context, e model.AuditEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestRecordAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	log.Success(EventApplyStarted, "ctl", map[string]any{"rules": 3})
	log.Failure(EventApplyFinished, "ctl", "WFP_ERROR", "boom", nil)

	entries, err := Tail(path, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Event != EventApplyStarted || entries[0].Status != "success" {
		t.Fatalf("got %+v", entries[0])
	}
	if entries[1].ErrorCode != "WFP_ERROR" {
		t.Fatalf("got %+v", entries[1])
	}
}

func TestTailLimitsCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	for i := 0; i < 5; i++ {
		log.Success(EventApplyStarted, "ctl", nil)
	}

	entries, err := Tail(path, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestTailFiltersBySinceMinutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	log.Success(EventApplyStarted, "ctl", nil)

	entries, err := Tail(path, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected entry within last minute to survive, got %d", len(entries))
	}

	time.Sleep(10 * time.Millisecond)
	entries, err = Tail(path, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d", len(entries))
	}
}

func TestTailMissingFileReturnsEmpty(t *testing.T) {
	entries, err := Tail(filepath.Join(t.TempDir(), "missing.log"), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if entries != nil {
		t.Fatalf("expected nil, got %v", entries)
	}
}

func TestTailZeroOrNegativeCountReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()
	log.Success(EventApplyStarted, "ctl", nil)

	for _, n := range []int{0, -1} {
		entries, err := Tail(path, n, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("Tail(%d) returned %d entries, want 0", n, len(entries))
		}
	}
}

func TestFailedWriteCountStartsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	if log.FailedWriteCount() != 0 {
		t.Fatalf("expected 0, got %d", log.FailedWriteCount())
	}
}

func TestRecordForwardsToAttachedSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	sink := &fakeSink{}
	log.AttachSink(sink)

	log.Success(EventApplyStarted, "ctl", nil)
	log.Failure(EventApplyFinished, "ctl", "WFP_ERROR", "boom", nil)

	if len(sink.entries) != 2 {
		t.Fatalf("expected 2 entries in sink, got %d", len(sink.entries))
	}
	if sink.entries[0].Event != EventApplyStarted || sink.entries[1].ErrorCode != "WFP_ERROR" {
		t.Fatalf("got %+v", sink.entries)
	}
}

func TestSinkFailureIsNonFatalAndFileStillWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	log.AttachSink(&fakeSink{err: errors.New("index down")})
	log.Success(EventApplyStarted, "ctl", nil)

	entries, err := Tail(path, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the file write to survive a sink failure, got %d entries", len(entries))
	}
	if log.FailedWriteCount() != 0 {
		t.Fatalf("sink failure must not count as a file-write failure, got %d", log.FailedWriteCount())
	}
}
