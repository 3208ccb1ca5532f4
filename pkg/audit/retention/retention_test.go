package retention

import (
	"context"
	"testing"
	"time"

	"github.com/hearthguard/sentryfw/pkg/audit/index"
	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

func openIndex(t *testing.T) *index.Index {
	t.Helper()
	ix, err := index.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestPruneByAgeDeletesOldEntries(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()

	ix.Insert(ctx, model.AuditEntry{ID: "old", Timestamp: time.Now().UTC().AddDate(0, 0, -100), Event: "apply-started", Source: "ctl"})
	ix.Insert(ctx, model.AuditEntry{ID: "new", Timestamp: time.Now().UTC(), Event: "apply-started", Source: "ctl"})

	p := NewPruner(ix, Config{RetentionDays: 90}, nil)
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("got %d deleted, want 1", deleted)
	}

	n, _ := ix.Count(ctx)
	if n != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", n)
	}
}

func TestPruneByCountKeepsNewest(t *testing.T) {
	ix := openIndex(t)
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

	p := NewPruner(ix, Config{MaxEntries: 2}, nil)
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Fatalf("got %d deleted, want 3", deleted)
	}

	n, _ := ix.Count(ctx)
	if n != 2 {
		t.Fatalf("expected 2 remaining, got %d", n)
	}
}

func TestPruneNoopWithZeroConfig(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	ix.Insert(ctx, model.AuditEntry{ID: "a", Timestamp: time.Now().UTC(), Event: "apply-started", Source: "ctl"})

	p := NewPruner(ix, Config{}, nil)
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Fatalf("expected no-op prune, got %d deleted", deleted)
	}
}

func TestStartNoopWithEmptySchedule(t *testing.T) {
	ix := openIndex(t)
	p := NewPruner(ix, Config{RetentionDays: 90}, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	ix := openIndex(t)
	p := NewPruner(ix, Config{Schedule: "not a cron expr"}, nil)
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}
