package reconcile

import (
	"testing"

	"github.com/hearthguard/sentryfw/pkg/firewall/engine"
	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

func filter(key byte) model.CompiledFilter {
	f := model.CompiledFilter{RuleID: "r"}
	f.FilterKey[0] = key
	f.FilterKeyString = string(key)
	return f
}

func TestApplyFiltersCreatesAll(t *testing.T) {
	r := New(engine.NewFake())
	res := r.ApplyFilters([]model.CompiledFilter{filter(1), filter(2)})
	if !res.IsOk() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	got := res.Value()
	if got.FiltersCreated != 2 || got.FiltersRemoved != 0 || got.FiltersUnchanged != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestApplyFiltersIdempotentReapply(t *testing.T) {
	r := New(engine.NewFake())
	desired := []model.CompiledFilter{filter(1), filter(2)}
	r.ApplyFilters(desired)

	res := r.ApplyFilters(desired)
	if !res.IsOk() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	got := res.Value()
	if got.FiltersCreated != 0 || got.FiltersRemoved != 0 || got.FiltersUnchanged != 2 {
		t.Fatalf("expected no-op reapply, got %+v", got)
	}
}

func TestApplyFiltersDiffAddsAndRemoves(t *testing.T) {
	r := New(engine.NewFake())
	r.ApplyFilters([]model.CompiledFilter{filter(1), filter(2)})

	res := r.ApplyFilters([]model.CompiledFilter{filter(2), filter(3)})
	if !res.IsOk() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	got := res.Value()
	if got.FiltersCreated != 1 || got.FiltersRemoved != 1 || got.FiltersUnchanged != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestApplyFiltersDuplicateKeyFirstWins(t *testing.T) {
	r := New(engine.NewFake())
	a := filter(1)
	b := filter(1)
	b.RuleID = "other"

	res := r.ApplyFilters([]model.CompiledFilter{a, b})
	if !res.IsOk() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	if res.Value().FiltersCreated != 1 {
		t.Fatalf("expected duplicate key collapsed to single add, got %+v", res.Value())
	}
}

func TestApplyFiltersEmptyDesiredRemovesAll(t *testing.T) {
	r := New(engine.NewFake())
	r.ApplyFilters([]model.CompiledFilter{filter(1), filter(2)})

	res := r.ApplyFilters(nil)
	if !res.IsOk() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	got := res.Value()
	if got.FiltersRemoved != 2 || got.FiltersCreated != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestRemoveAllFiltersReturnsCount(t *testing.T) {
	r := New(engine.NewFake())
	r.ApplyFilters([]model.CompiledFilter{filter(1), filter(2), filter(3)})

	res := r.RemoveAllFilters()
	if !res.IsOk() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	if res.Value() != 3 {
		t.Fatalf("got %d, want 3", res.Value())
	}
}

func TestRemoveAllFiltersIdempotentOnEmpty(t *testing.T) {
	r := New(engine.NewFake())
	res := r.RemoveAllFilters()
	if !res.IsOk() || res.Value() != 0 {
		t.Fatalf("expected 0, got %+v", res)
	}
}

func TestTeardownFailsWithFiltersPresent(t *testing.T) {
	r := New(engine.NewFake())
	r.ApplyFilters([]model.CompiledFilter{filter(1)})

	res := r.Teardown()
	if res.IsOk() {
		t.Fatal("expected teardown to fail while filters remain")
	}
	if res.Err().Code != "WFP_ERROR" {
		t.Fatalf("got %s", res.Err().Code)
	}
}

func TestTeardownSucceedsAfterRemoveAll(t *testing.T) {
	r := New(engine.NewFake())
	r.ApplyFilters([]model.CompiledFilter{filter(1)})
	r.RemoveAllFilters()

	if !r.Teardown().IsOk() {
		t.Fatal("expected teardown to succeed with empty sublayer")
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	r := New(engine.NewFake())
	if !r.Bootstrap().IsOk() {
		t.Fatal("first bootstrap failed")
	}
	if !r.Bootstrap().IsOk() {
		t.Fatal("second bootstrap failed")
	}
}

func TestAddPinnedFilterIsIdempotentAndVisible(t *testing.T) {
	r := New(engine.NewFake())
	f := filter(9)

	if !r.AddPinnedFilter(f).IsOk() {
		t.Fatal("expected first add to succeed")
	}
	if !r.AddPinnedFilter(f).IsOk() {
		t.Fatal("expected re-adding the same key to be a no-op success")
	}

	exists := r.PinnedFilterExists(f.FilterKey)
	if !exists.IsOk() || !exists.Value() {
		t.Fatalf("expected pinned filter to exist, got %+v", exists)
	}
}

func TestRemovePinnedFilterIsIdempotent(t *testing.T) {
	r := New(engine.NewFake())
	f := filter(9)
	r.AddPinnedFilter(f)

	if !r.RemovePinnedFilter(f.FilterKey).IsOk() {
		t.Fatal("expected remove to succeed")
	}
	if !r.RemovePinnedFilter(f.FilterKey).IsOk() {
		t.Fatal("expected removing an already-absent key to be a no-op success")
	}

	exists := r.PinnedFilterExists(f.FilterKey)
	if !exists.IsOk() || exists.Value() {
		t.Fatalf("expected pinned filter to be absent, got %+v", exists)
	}
}

func TestAddPinnedFilterLeavesDesiredStateFilterSetUntouched(t *testing.T) {
	r := New(engine.NewFake())
	r.ApplyFilters([]model.CompiledFilter{filter(1), filter(2)})

	if !r.AddPinnedFilter(filter(9)).IsOk() {
		t.Fatal("expected pinned add to succeed")
	}

	res := r.ApplyFilters([]model.CompiledFilter{filter(1), filter(2)})
	if !res.IsOk() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	got := res.Value()
	if got.FiltersRemoved != 1 {
		t.Fatalf("expected reconciling back to the original desired set to remove the pinned filter, got %+v", got)
	}
	if got.FiltersUnchanged != 2 || got.FiltersCreated != 0 {
		t.Fatalf("expected the original desired filters to be untouched by the pinned add, got %+v", got)
	}
}
