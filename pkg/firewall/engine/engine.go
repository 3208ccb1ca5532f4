// Package engine defines the narrow capability interface over the host's
// filtering platform: provider/sublayer lifecycle, filter
// enumerate/add/delete, and transactions. It deliberately hides the raw
// foreign-function bindings to the OS filtering library — those are out of
// this core's scope — behind an interface with two
// implementations: Fake (in-memory, for tests) and Real (a thin adapter
// over an injected NativeOps binding).
package engine

import (
	"sync"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
	"github.com/hearthguard/sentryfw/pkg/result"
)

// Engine is the capability set the reconciliation engine drives. Every
// operation returns a Result so callers get a stable error code instead of a bare error.
type Engine interface {
	// Open acquires the native engine handle. The returned Handle is a
	// scoped resource: callers must Close it on every exit path.
	Open() result.Result[*Handle]

	ProviderExists(h *Handle) result.Result[bool]
	SublayerExists(h *Handle) result.Result[bool]
	AddProvider(h *Handle) result.Result[struct{}]
	DeleteProvider(h *Handle) result.Result[struct{}]
	AddSublayer(h *Handle) result.Result[struct{}]
	DeleteSublayer(h *Handle) result.Result[struct{}]

	EnumerateFiltersInSublayer(h *Handle) result.Result[[]model.ExistingFilter]
	AddFilter(h *Handle, f model.CompiledFilter) result.Result[uint64]
	DeleteFilterByKey(h *Handle, key [16]byte) result.Result[struct{}]
	DeleteFilterByID(h *Handle, id uint64) result.Result[struct{}]
	FilterExists(h *Handle, key [16]byte) result.Result[bool]

	// Begin starts a transaction scope. All P/Invoke into the filtering
	// platform for the duration of the transaction happens while the
	// caller holds the engine mutex; this interface does not
	// itself provide that mutex — pkg/firewall/reconcile does.
	Begin(h *Handle) result.Result[*Transaction]
}

// Handle is the scoped owner of the native engine handle.
// Opening returns an owner; Close must run on every exit path including
// panic unwind.
type Handle struct {
	mu      sync.Mutex
	closed  bool
	closeFn func() error
	native  uintptr // set by RealEngine.Open; unused by FakeEngine
}

// Close releases the native handle. Calling Close more than once is safe
// and a no-op after the first call.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.closeFn != nil {
		return h.closeFn()
	}
	return nil
}

// Transaction is the scoped owner of a begin/commit/abort transaction.
// If Close is called without a prior Commit, it aborts. After a failed
// Commit the transaction is poisoned: Commit/Abort may not be called
// again.
type Transaction struct {
	mu        sync.Mutex
	committed bool
	aborted   bool
	poisoned  bool
	commitFn  func() *result.Error
	abortFn   func() *result.Error
}

// Commit commits the transaction. On failure the transaction is
// considered aborted and poisoned: it must not be used again.
func (t *Transaction) Commit() result.Result[struct{}] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.poisoned || t.committed || t.aborted {
		panic("engine: Commit called on a transaction that is already finalized")
	}

	if err := t.commitFn(); err != nil {
		t.aborted = true
		t.poisoned = true
		return result.Fail[struct{}](err)
	}
	t.committed = true
	return result.Ok(struct{}{})
}

// Abort aborts the transaction. Idempotent: aborting an already-aborted
// transaction is a no-op success.
func (t *Transaction) Abort() result.Result[struct{}] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.committed {
		panic("engine: Abort called on a committed transaction")
	}
	if t.aborted {
		return result.Ok(struct{}{})
	}

	if err := t.abortFn(); err != nil {
		return result.Fail[struct{}](err)
	}
	t.aborted = true
	return result.Ok(struct{}{})
}

// Close implements the RAII contract: a transaction dropped without
// Commit aborts. Safe to call after Commit or Abort.
func (t *Transaction) Close() error {
	t.mu.Lock()
	alreadyFinal := t.committed || t.aborted
	t.mu.Unlock()
	if alreadyFinal {
		return nil
	}
	r := t.Abort()
	if !r.IsOk() {
		return r.Err()
	}
	return nil
}
