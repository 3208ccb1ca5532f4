// Package reconcile drives the engine facade to converge kernel state onto
// a desired filter set: ApplyFilters, RemoveAllFilters and
// Teardown. All of them run under a single mutex so concurrent callers
// observe a consistent sequence of transactions rather than interleaved
// partial applies.
//
// Every state-changing entry point is sync.Mutex-guarded. ApplyFilters
// and RemoveAllFilters make their filter changes inside one engine
// transaction, aborted on failure so the previous filter set stays in
// place; Teardown, Bootstrap and the pinned-filter operations call the
// engine directly, without a transaction.
package reconcile

import (
	"sync"

	"github.com/hearthguard/sentryfw/pkg/firewall/engine"
	"github.com/hearthguard/sentryfw/pkg/firewall/model"
	"github.com/hearthguard/sentryfw/pkg/result"
)

// ApplyResult reports how a desired filter set was reconciled against the
// kernel.
type ApplyResult struct {
	FiltersCreated   int
	FiltersRemoved   int
	FiltersUnchanged int
}

// Reconciler applies CompiledFilter sets to an Engine. One Reconciler
// serializes all engine access for the lifetime of the process: the
// Engine interface holds no lock across calls (see engine.Engine.Begin),
// so this type holds mu for each whole operation, and
// ApplyFilters/RemoveAllFilters/Teardown never interleave with each other.
type Reconciler struct {
	mu  sync.Mutex
	eng engine.Engine
}

// New creates a Reconciler over the given Engine.
func New(eng engine.Engine) *Reconciler {
	return &Reconciler{eng: eng}
}

// ApplyFilters converges the sublayer's filter set to exactly desired.
// Ensures provider/sublayer exist, diffs current vs desired by
// filterKey, and if any change is needed, performs it inside one
// transaction. Duplicate filterKeys in desired resolve
// first-occurrence-wins.
func (r *Reconciler) ApplyFilters(desired []model.CompiledFilter) result.Result[ApplyResult] {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.eng.Open()
	if !h.IsOk() {
		return result.Fail[ApplyResult](h.Err())
	}
	handle := h.Value()
	defer handle.Close()

	if err := r.ensureBootstrapped(handle); err != nil {
		return result.Fail[ApplyResult](err)
	}

	currentR := r.eng.EnumerateFiltersInSublayer(handle)
	if !currentR.IsOk() {
		return result.Fail[ApplyResult](currentR.Err())
	}
	current := make(map[[16]byte]uint64, len(currentR.Value()))
	for _, f := range currentR.Value() {
		current[f.FilterKey] = f.FilterID
	}

	desiredKeys := make(map[[16]byte]model.CompiledFilter, len(desired))
	order := make([][16]byte, 0, len(desired))
	for _, f := range desired {
		if _, dup := desiredKeys[f.FilterKey]; dup {
			continue // first occurrence wins
		}
		desiredKeys[f.FilterKey] = f
		order = append(order, f.FilterKey)
	}

	var toRemove []uint64
	for key, id := range current {
		if _, ok := desiredKeys[key]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	var toAdd []model.CompiledFilter
	unchanged := 0
	for _, key := range order {
		if _, ok := current[key]; ok {
			unchanged++
			continue
		}
		toAdd = append(toAdd, desiredKeys[key])
	}

	if len(toRemove) == 0 && len(toAdd) == 0 {
		return result.Ok(ApplyResult{FiltersUnchanged: unchanged})
	}

	txR := r.eng.Begin(handle)
	if !txR.IsOk() {
		return result.Fail[ApplyResult](txR.Err())
	}
	tx := txR.Value()
	defer tx.Close()

	for _, id := range toRemove {
		if del := r.eng.DeleteFilterByID(handle, id); !del.IsOk() {
			tx.Abort()
			return result.Fail[ApplyResult](del.Err())
		}
	}
	for _, f := range toAdd {
		if add := r.eng.AddFilter(handle, f); !add.IsOk() {
			tx.Abort()
			return result.Fail[ApplyResult](add.Err())
		}
	}

	if commit := tx.Commit(); !commit.IsOk() {
		return result.Fail[ApplyResult](commit.Err())
	}

	return result.Ok(ApplyResult{
		FiltersCreated:   len(toAdd),
		FiltersRemoved:   len(toRemove),
		FiltersUnchanged: unchanged,
	})
}

// RemoveAllFilters deletes every filter in the sublayer in a single
// transaction and returns the count removed. Provider and sublayer are
// left in place so a later ApplyFilters does not need to re-bootstrap.
// Idempotent: calling it on an already-empty sublayer returns 0.
func (r *Reconciler) RemoveAllFilters() result.Result[int] {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.eng.Open()
	if !h.IsOk() {
		return result.Fail[int](h.Err())
	}
	handle := h.Value()
	defer handle.Close()

	currentR := r.eng.EnumerateFiltersInSublayer(handle)
	if !currentR.IsOk() {
		return result.Fail[int](currentR.Err())
	}
	existing := currentR.Value()
	if len(existing) == 0 {
		return result.Ok(0)
	}

	txR := r.eng.Begin(handle)
	if !txR.IsOk() {
		return result.Fail[int](txR.Err())
	}
	tx := txR.Value()
	defer tx.Close()

	for _, f := range existing {
		if del := r.eng.DeleteFilterByID(handle, f.FilterID); !del.IsOk() {
			tx.Abort()
			return result.Fail[int](del.Err())
		}
	}

	if commit := tx.Commit(); !commit.IsOk() {
		return result.Fail[int](commit.Err())
	}
	return result.Ok(len(existing))
}

// Teardown deletes the sublayer then the provider. Fails
// with CodeWFPError and leaves state unchanged if the sublayer still
// holds filters; callers should RemoveAllFilters first.
func (r *Reconciler) Teardown() result.Result[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.eng.Open()
	if !h.IsOk() {
		return result.Fail[struct{}](h.Err())
	}
	handle := h.Value()
	defer handle.Close()

	if del := r.eng.DeleteSublayer(handle); !del.IsOk() {
		return result.Fail[struct{}](del.Err())
	}
	if del := r.eng.DeleteProvider(handle); !del.IsOk() {
		return result.Fail[struct{}](del.Err())
	}
	return result.Ok(struct{}{})
}

// ensureBootstrapped adds the provider and sublayer if either is
// missing. Both operations are idempotent on the
// engine side, but checking Exists first avoids an unnecessary
// transactionless add call under heavy concurrent Apply traffic.
func (r *Reconciler) ensureBootstrapped(h *engine.Handle) *result.Error {
	if pe := r.eng.ProviderExists(h); !pe.IsOk() {
		return pe.Err()
	} else if !pe.Value() {
		if add := r.eng.AddProvider(h); !add.IsOk() {
			return add.Err()
		}
	}

	if se := r.eng.SublayerExists(h); !se.IsOk() {
		return se.Err()
	} else if !se.Value() {
		if add := r.eng.AddSublayer(h); !add.IsOk() {
			return add.Err()
		}
	}
	return nil
}

// Bootstrap ensures the provider and sublayer exist without touching any
// filters. Used by the server's explicit "bootstrap" operation
// so a fresh install can confirm registration before the first apply.
func (r *Reconciler) Bootstrap() result.Result[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.eng.Open()
	if !h.IsOk() {
		return result.Fail[struct{}](h.Err())
	}
	handle := h.Value()
	defer handle.Close()

	if err := r.ensureBootstrapped(handle); err != nil {
		return result.Fail[struct{}](err)
	}
	return result.Ok(struct{}{})
}

// AddPinnedFilter ensures the provider/sublayer exist, then adds f
// outside the full enumerate-diff-transact cycle ApplyFilters runs.
// Used by the "demo-block-enable" convenience operation to add one
// well-known filter without disturbing whatever desired-state set is
// already installed. Idempotent: if a
// filter with the same key already exists, it is left in place.
func (r *Reconciler) AddPinnedFilter(f model.CompiledFilter) result.Result[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.eng.Open()
	if !h.IsOk() {
		return result.Fail[struct{}](h.Err())
	}
	handle := h.Value()
	defer handle.Close()

	if err := r.ensureBootstrapped(handle); err != nil {
		return result.Fail[struct{}](err)
	}

	exists := r.eng.FilterExists(handle, f.FilterKey)
	if !exists.IsOk() {
		return result.Fail[struct{}](exists.Err())
	}
	if exists.Value() {
		return result.Ok(struct{}{})
	}

	if add := r.eng.AddFilter(handle, f); !add.IsOk() {
		return result.Fail[struct{}](add.Err())
	}
	return result.Ok(struct{}{})
}

// RemovePinnedFilter removes the filter with the given key if present.
// The counterpart to AddPinnedFilter for "demo-block-disable"; a no-op
// success if the filter is already absent.
func (r *Reconciler) RemovePinnedFilter(key [16]byte) result.Result[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.eng.Open()
	if !h.IsOk() {
		return result.Fail[struct{}](h.Err())
	}
	handle := h.Value()
	defer handle.Close()

	exists := r.eng.FilterExists(handle, key)
	if !exists.IsOk() {
		return result.Fail[struct{}](exists.Err())
	}
	if !exists.Value() {
		return result.Ok(struct{}{})
	}

	if del := r.eng.DeleteFilterByKey(handle, key); !del.IsOk() {
		return result.Fail[struct{}](del.Err())
	}
	return result.Ok(struct{}{})
}

// PinnedFilterExists reports whether the filter with the given key is
// currently installed. Used by "demo-block-status".
func (r *Reconciler) PinnedFilterExists(key [16]byte) result.Result[bool] {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.eng.Open()
	if !h.IsOk() {
		return result.Fail[bool](h.Err())
	}
	handle := h.Value()
	defer handle.Close()

	return r.eng.FilterExists(handle, key)
}
