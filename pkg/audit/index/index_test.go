package index

import (
	"context"
	"testing"
	"time"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

func TestInsertAndQueryRoundTrip(t *testing.T) {
	ix, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	entries := []model.AuditEntry{
		{ID: "1", Timestamp: now.Add(-2 * time.Minute), Event: "apply-started", Source: "ctl", Status: "success"},
		{ID: "2", Timestamp: now.Add(-1 * time.Minute), Event: "apply-finished", Source: "ctl", Status: "success"},
		{ID: "3", Timestamp: now, Event: "rollback-started", Source: "ctl", Status: "success"},
	}
	for _, e := range entries {
		if err := ix.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ix.Query(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].ID != "1" || got[2].ID != "3" {
		t.Fatalf("expected chronological order, got %v", got)
	}
}

func TestQueryTailLimit(t *testing.T) {
	ix, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		ix.Insert(ctx, model.AuditEntry{
			ID:        string(rune('a' + i)),
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Event:     "apply-started",
			Source:    "ctl",
		})
	}

	got, err := ix.Query(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
}

func TestQuerySinceMinutesFilters(t *testing.T) {
	ix, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	ctx := context.Background()
	ix.Insert(ctx, model.AuditEntry{ID: "old", Timestamp: time.Now().UTC().Add(-time.Hour), Event: "apply-started", Source: "ctl"})
	ix.Insert(ctx, model.AuditEntry{ID: "new", Timestamp: time.Now().UTC(), Event: "apply-started", Source: "ctl"})

	got, err := ix.Query(ctx, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("got %v", got)
	}
}

func TestQueryZeroTailReturnsEmpty(t *testing.T) {
	ix, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	ctx := context.Background()
	ix.Insert(ctx, model.AuditEntry{ID: "1", Timestamp: time.Now().UTC(), Event: "apply-started", Source: "ctl"})

	got, err := ix.Query(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d entries, want 0", len(got))
	}
}
