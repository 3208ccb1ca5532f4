// Package retention schedules periodic pruning of the audit index: a
// two-phase age-then-count prune driven by a cron schedule against the
// single audit_entries table pkg/audit/index maintains.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hearthguard/sentryfw/pkg/audit/index"
)

// Config controls retention pruning.
type Config struct {
	// RetentionDays is how long to keep audit entries. 0 disables
	// age-based pruning.
	RetentionDays int

	// MaxEntries caps the indexed entry count. 0 disables count-based
	// pruning.
	MaxEntries int64

	// Schedule is a standard 5-field cron expression. Empty disables
	// scheduled pruning entirely (Prune can still be called manually).
	Schedule string
}

// DefaultConfig keeps 90 days of entries, pruned daily at 03:00.
func DefaultConfig() Config {
	return Config{
		RetentionDays: 90,
		MaxEntries:    0,
		Schedule:      "0 3 * * *",
	}
}

// Pruner runs retention passes against an audit index, on demand or on
// a cron schedule.
type Pruner struct {
	ix     *index.Index
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPruner creates a Pruner over ix.
func NewPruner(ix *index.Index, config Config, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{ix: ix, config: config, logger: logger.With("component", "audit.retention")}
}

// Prune runs one pruning pass: age-based deletion, then count-based
// deletion if still over the cap. Returns the total rows deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
		n, err := p.ix.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age: %w", err)
		}
		total += n
		p.logger.Debug("pruned audit entries by age", "deleted", n, "retention_days", p.config.RetentionDays)
	}

	if p.config.MaxEntries > 0 {
		n, err := p.ix.DeleteAllButNewest(ctx, p.config.MaxEntries)
		if err != nil {
			return total, fmt.Errorf("prune by count: %w", err)
		}
		total += n
		if n > 0 {
			p.logger.Info("pruned audit entries by count", "deleted", n, "max_entries", p.config.MaxEntries)
		}
	}

	return total, nil
}

// Start begins scheduled pruning. A no-op if Schedule is empty.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" {
		p.logger.Info("audit retention schedule not configured, skipping")
		return nil
	}
	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", p.config.Schedule, err)
	}

	c := cron.New()
	if _, err := c.AddFunc(p.config.Schedule, func() {
		n, err := p.Prune(ctx)
		if err != nil {
			p.logger.Error("scheduled audit prune failed", "error", err)
			return
		}
		p.logger.Info("scheduled audit prune completed", "deleted", n)
	}); err != nil {
		return fmt.Errorf("schedule audit prune: %w", err)
	}

	c.Start()
	p.cron = c
	p.running = true

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop stops the scheduler, waiting for any in-flight prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron == nil || !p.running {
		return
	}
	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.running = false
}
