package engine

import (
	"sync"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
	"github.com/hearthguard/sentryfw/pkg/result"
)

// FakeEngine is an in-memory Engine implementation used by tests and by
// any caller that wants to exercise the reconciliation pipeline without a
// real kernel. It reproduces the engine's idempotence and
// transaction-rollback contracts exactly.
type FakeEngine struct {
	mu sync.Mutex

	providerAdded bool
	sublayerAdded bool
	nextFilterID  uint64
	filters       map[[16]byte]uint64 // filterKey -> filterId
	byID          map[uint64][16]byte

	// snapshot holds a copy of the above, taken at Begin, used to roll
	// back on Abort.
	snapshot *fakeSnapshot
}

type fakeSnapshot struct {
	providerAdded bool
	sublayerAdded bool
	nextFilterID  uint64
	filters       map[[16]byte]uint64
	byID          map[uint64][16]byte
}

// NewFake creates an empty FakeEngine.
func NewFake() *FakeEngine {
	return &FakeEngine{
		filters: make(map[[16]byte]uint64),
		byID:    make(map[uint64][16]byte),
	}
}

func (e *FakeEngine) Open() result.Result[*Handle] {
	return result.Ok(&Handle{})
}

func (e *FakeEngine) ProviderExists(*Handle) result.Result[bool] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return result.Ok(e.providerAdded)
}

func (e *FakeEngine) SublayerExists(*Handle) result.Result[bool] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return result.Ok(e.sublayerAdded)
}

func (e *FakeEngine) AddProvider(*Handle) result.Result[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providerAdded = true // idempotent
	return result.Ok(struct{}{})
}

func (e *FakeEngine) DeleteProvider(*Handle) result.Result[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providerAdded = false // idempotent even if already absent
	return result.Ok(struct{}{})
}

func (e *FakeEngine) AddSublayer(*Handle) result.Result[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sublayerAdded = true
	return result.Ok(struct{}{})
}

func (e *FakeEngine) DeleteSublayer(*Handle) result.Result[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.filters) > 0 {
		return result.Fail[struct{}](result.New(result.CodeWFPError, "cannot delete sublayer: filters still present"))
	}
	e.sublayerAdded = false
	return result.Ok(struct{}{})
}

func (e *FakeEngine) EnumerateFiltersInSublayer(*Handle) result.Result[[]model.ExistingFilter] {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ExistingFilter, 0, len(e.filters))
	for key, id := range e.filters {
		out = append(out, model.ExistingFilter{FilterKey: key, FilterID: id})
	}
	return result.Ok(out)
}

func (e *FakeEngine) AddFilter(_ *Handle, f model.CompiledFilter) result.Result[uint64] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.filters[f.FilterKey]; ok {
		return result.Ok(id) // idempotent: already present
	}

	e.nextFilterID++
	id := e.nextFilterID
	e.filters[f.FilterKey] = id
	e.byID[id] = f.FilterKey
	return result.Ok(id)
}

func (e *FakeEngine) DeleteFilterByKey(_ *Handle, key [16]byte) result.Result[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.filters[key]; ok {
		delete(e.filters, key)
		delete(e.byID, id)
	}
	return result.Ok(struct{}{}) // idempotent: not-found is success
}

func (e *FakeEngine) DeleteFilterByID(_ *Handle, id uint64) result.Result[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key, ok := e.byID[id]; ok {
		delete(e.byID, id)
		delete(e.filters, key)
	}
	return result.Ok(struct{}{})
}

func (e *FakeEngine) FilterExists(_ *Handle, key [16]byte) result.Result[bool] {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.filters[key]
	return result.Ok(ok)
}

func (e *FakeEngine) Begin(*Handle) result.Result[*Transaction] {
	e.mu.Lock()
	e.snapshot = e.snapshotLocked()
	e.mu.Unlock()

	tx := &Transaction{}
	tx.commitFn = func() *result.Error {
		e.mu.Lock()
		e.snapshot = nil
		e.mu.Unlock()
		return nil
	}
	tx.abortFn = func() *result.Error {
		e.mu.Lock()
		e.restoreLocked(e.snapshot)
		e.snapshot = nil
		e.mu.Unlock()
		return nil
	}
	return result.Ok(tx)
}

func (e *FakeEngine) snapshotLocked() *fakeSnapshot {
	filters := make(map[[16]byte]uint64, len(e.filters))
	for k, v := range e.filters {
		filters[k] = v
	}
	byID := make(map[uint64][16]byte, len(e.byID))
	for k, v := range e.byID {
		byID[k] = v
	}
	return &fakeSnapshot{
		providerAdded: e.providerAdded,
		sublayerAdded: e.sublayerAdded,
		nextFilterID:  e.nextFilterID,
		filters:       filters,
		byID:          byID,
	}
}

func (e *FakeEngine) restoreLocked(s *fakeSnapshot) {
	if s == nil {
		return
	}
	e.providerAdded = s.providerAdded
	e.sublayerAdded = s.sublayerAdded
	e.nextFilterID = s.nextFilterID
	e.filters = s.filters
	e.byID = s.byID
}
