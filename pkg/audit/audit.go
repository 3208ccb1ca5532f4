// Package audit implements the append-only audit log: one
// newline-delimited JSON object per event, written synchronously under
// a write lock so that simultaneous writers are totally ordered in the
// file. Audit writes here are ordering-critical rather than
// throughput-critical, which is why there is no async write queue.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

// EntrySink receives a copy of every recorded entry. Satisfied by
// pkg/audit/index.Index so the SQLite index stays current with the
// file. Sink failures are logged, never propagated: the JSON-lines
// file is the authoritative record and an index miss is rebuildable.
type EntrySink interface {
	Insert(ctx context.Context, e model.AuditEntry) error
}

// Event type strings.
const (
	EventApplyStarted        = "apply-started"
	EventApplyFinished       = "apply-finished"
	EventRollbackStarted     = "rollback-started"
	EventRollbackFinished    = "rollback-finished"
	EventTeardownStarted     = "teardown-started"
	EventTeardownFinished    = "teardown-finished"
	EventLKGRevertStarted    = "lkg-revert-started"
	EventLKGRevertFinished   = "lkg-revert-finished"
)

// Log is an append-only JSON-lines audit log backed by a single file.
// Writes are serialized through mu so that concurrent callers observe a
// totally-ordered sequence of lines. A write failure never propagates
// to the caller; it increments failedWriteCount instead.
type Log struct {
	mu               sync.Mutex
	path             string
	f                *os.File
	sink             EntrySink
	logger           *slog.Logger
	failedWriteCount int64
}

// Open opens (creating if necessary) the audit log file at path for
// appending.
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Log{path: path, f: f, logger: logger.With("component", "audit")}, nil
}

// AttachSink forwards every subsequently recorded entry to s as well
// as the file. Call before the log is shared across goroutines.
func (l *Log) AttachSink(s EntrySink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = s
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Record appends one audit entry. id and ts are generated here so
// callers never need to coordinate on clocks or identifiers.
func (l *Log) Record(event, source, status, errorCode, errorMessage string, details map[string]any) {
	entry := model.AuditEntry{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Event:        event,
		Source:       source,
		Status:       status,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
		Details:      details,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		l.countFailure("marshal", err)
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	_, err = l.f.Write(line)
	sink := l.sink
	l.mu.Unlock()
	if err != nil {
		l.countFailure("write", err)
	}

	if sink != nil {
		if err := sink.Insert(context.Background(), entry); err != nil {
			l.logger.Error("audit index insert failed", "error", err)
		}
	}
}

// Success records event with status=success and no error fields.
func (l *Log) Success(event, source string, details map[string]any) {
	l.Record(event, source, model.AuditStatusSuccess, "", "", details)
}

// Failure records event with status=failure and the given error code/message.
func (l *Log) Failure(event, source, errorCode, errorMessage string, details map[string]any) {
	l.Record(event, source, model.AuditStatusFailure, errorCode, errorMessage, details)
}

// FailedWriteCount returns the number of audit writes that have failed
// since the log was opened.
func (l *Log) FailedWriteCount() int64 {
	return atomic.LoadInt64(&l.failedWriteCount)
}

func (l *Log) countFailure(op string, err error) {
	atomic.AddInt64(&l.failedWriteCount, 1)
	l.logger.Error("audit write failed", "op", op, "error", err)
}
