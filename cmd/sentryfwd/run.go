package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/audit"
	auditindex "github.com/hearthguard/sentryfw/pkg/audit/index"
	"github.com/hearthguard/sentryfw/pkg/audit/retention"
	"github.com/hearthguard/sentryfw/pkg/cli"
	"github.com/hearthguard/sentryfw/pkg/config"
	"github.com/hearthguard/sentryfw/pkg/firewall/compiler"
	"github.com/hearthguard/sentryfw/pkg/firewall/engine"
	"github.com/hearthguard/sentryfw/pkg/firewall/lkg"
	"github.com/hearthguard/sentryfw/pkg/firewall/reconcile"
	"github.com/hearthguard/sentryfw/pkg/firewall/validator"
	"github.com/hearthguard/sentryfw/pkg/server"
	"github.com/hearthguard/sentryfw/pkg/telemetry/health"
	"github.com/hearthguard/sentryfw/pkg/telemetry/logging"
	"github.com/hearthguard/sentryfw/pkg/telemetry/metrics"
	"github.com/hearthguard/sentryfw/pkg/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the firewall controller daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cfgFile)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(configPath string) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("sentryfwd must run with administrator privilege (root); re-run under sudo or a privileged service manager")
	}

	cfg, err := config.LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:           cfg.Telemetry.Logging.Level,
		Format:          cfg.Telemetry.Logging.Format,
		RedactSensitive: cfg.Telemetry.Logging.RedactSensitive,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}
	if dir := filepath.Dir(cfg.Server.SocketPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating socket directory %s: %w", dir, err)
		}
	}

	auditPath := filepath.Join(cfg.DataDir, "audit.log")
	auditLog, err := audit.Open(auditPath, logger)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer auditLog.Close()

	ctx := cli.SetupSignalHandler()

	var idx *auditindex.Index
	if cfg.Audit.IndexEnabled {
		idx, err = auditindex.Open(filepath.Join(cfg.DataDir, "audit-index.db"))
		if err != nil {
			return fmt.Errorf("opening audit index: %w", err)
		}
		defer idx.Close()
		auditLog.AttachSink(idx)

		pruner := retention.NewPruner(idx, retention.Config{
			RetentionDays: cfg.Audit.RetentionDays,
			MaxEntries:    cfg.Audit.MaxEntries,
			Schedule:      cfg.Audit.PruneSchedule,
		}, logger)
		if err := pruner.Start(ctx); err != nil {
			return fmt.Errorf("starting audit retention: %w", err)
		}
		defer pruner.Stop()
	}

	eng, err := newEngine(cfg.EngineBackend)
	if err != nil {
		return err
	}
	rec := reconcile.New(eng)

	lkgStore := lkg.New(filepath.Join(cfg.DataDir, "lkg-policy.json"))

	collector := metrics.NewCollector(nil)
	if cfg.Telemetry.Metrics.Enabled {
		checker := health.New(0)
		checker.Register("engine", func(context.Context) error {
			h := eng.Open()
			if !h.IsOk() {
				return h.Err()
			}
			return h.Value().Close()
		})
		checker.Register("data_dir", func(context.Context) error {
			probe := filepath.Join(cfg.DataDir, ".health-probe")
			if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
				return err
			}
			return os.Remove(probe)
		})
		go serveTelemetry(ctx, cfg.Telemetry.Metrics.ListenAddress, collector, checker, logger)
	}

	w := watcher.New(watchApplyFunc(rec, collector, logger))

	if cfg.AutoApplyLKG {
		applyLKGOnStartup(rec, lkgStore, logger)
	}

	srv := server.New(server.Deps{
		Engine:     eng,
		Reconciler: rec,
		LKG:        lkgStore,
		Watcher:    w,
		Audit:      auditLog,
		AuditPath:  auditPath,
		Index:      idx,
		Metrics:    collector,
		Logger:     logger,
		Config: server.Config{
			SocketPath:                  cfg.Server.SocketPath,
			AdminGroup:                  cfg.Server.AdminGroup,
			ReadTimeout:                 cfg.Server.ReadTimeout,
			MaxMessageBytes:             cfg.Server.MaxMessageBytes,
			ProtocolVersionCurrent:      cfg.Server.ProtocolVersionCurrent,
			ProtocolVersionMinSupported: cfg.Server.ProtocolVersionMinSupported,
		},
		WatcherDebounce: time.Duration(cfg.Watcher.DebounceMs) * time.Millisecond,
	}, cfg.RateLimit.PerIdentityTokens, cfg.RateLimit.WindowSeconds, cfg.RateLimit.GlobalTokens)

	defer w.Dispose()

	logger.Info("sentryfwd starting", "version", Version, "data_dir", cfg.DataDir, "engine", cfg.EngineBackend)
	return srv.Start(ctx)
}

func newEngine(backend string) (engine.Engine, error) {
	if backend == "fake" {
		return engine.NewFake(), nil
	}
	return engine.NewNative()
}

// watchApplyFunc is the reload pipeline the file watcher runs on every
// settled change: validate, compile, reconcile. A failure at any stage
// leaves the installed filter set untouched.
func watchApplyFunc(rec *reconcile.Reconciler, collector *metrics.Collector, logger *slog.Logger) watcher.ApplyFunc {
	log := logger.With("component", "watcher")
	return func(policyJSON []byte) error {
		policy, errs := validator.New().Validate(policyJSON)
		if errs != nil {
			collector.RecordWatcherReload("invalid", time.Now().UTC())
			return errs
		}
		compiled := compiler.Compile(policy)
		if !compiled.Successful() {
			collector.RecordWatcherReload("invalid", time.Now().UTC())
			return fmt.Errorf("compilation failed: %s", strings.Join(compiled.Errors, "; "))
		}
		res := rec.ApplyFilters(compiled.Filters)
		if !res.IsOk() {
			collector.RecordWatcherReload("failure", time.Now().UTC())
			return res.Err()
		}
		applied := res.Value()
		collector.RecordWatcherReload("success", time.Now().UTC())
		log.Info("watched policy applied",
			"created", applied.FiltersCreated,
			"removed", applied.FiltersRemoved,
			"unchanged", applied.FiltersUnchanged)
		return nil
	}
}

// applyLKGOnStartup re-applies the last-known-good policy. Failure is
// logged, never fatal: a daemon that cannot restore its previous policy
// still has to come up and serve the request channel.
func applyLKGOnStartup(rec *reconcile.Reconciler, store *lkg.Store, logger *slog.Logger) {
	log := logger.With("component", "startup")
	loaded := store.Load()
	if !loaded.IsOk() {
		log.Warn("lkg auto-apply skipped", "reason", loaded.Err().Message)
		return
	}
	compiled := compiler.Compile(loaded.Value().Policy)
	if !compiled.Successful() {
		log.Warn("lkg auto-apply skipped", "reason", strings.Join(compiled.Errors, "; "))
		return
	}
	res := rec.ApplyFilters(compiled.Filters)
	if !res.IsOk() {
		log.Error("lkg auto-apply failed", "error", res.Err().Message)
		return
	}
	applied := res.Value()
	log.Info("last-known-good policy restored",
		"created", applied.FiltersCreated,
		"removed", applied.FiltersRemoved,
		"unchanged", applied.FiltersUnchanged)
}

func serveTelemetry(ctx context.Context, addr string, collector *metrics.Collector, checker *health.Checker, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("telemetry listener starting", "address", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("telemetry listener failed", "error", err)
	}
}
