package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hearthguard/sentryfw/pkg/audit"
	"github.com/hearthguard/sentryfw/pkg/clientproto"
	"github.com/hearthguard/sentryfw/pkg/firewall/compiler"
	"github.com/hearthguard/sentryfw/pkg/firewall/model"
	"github.com/hearthguard/sentryfw/pkg/firewall/validator"
	"github.com/hearthguard/sentryfw/pkg/server/auth"
	"github.com/hearthguard/sentryfw/pkg/watcher"
)

// handlerFunc implements one recognized request type. It is a pure
// function of the parsed request and the server's capability bundle;
// handlers never share mutable state beyond what Deps exposes.
type handlerFunc func(ctx context.Context, req clientproto.Request, deps *Deps) clientproto.Response

var handlers = map[string]handlerFunc{
	clientproto.TypePing:             handlePing,
	clientproto.TypeValidate:         handleValidate,
	clientproto.TypeApply:            handleApply,
	clientproto.TypeRollback:         handleRollback,
	clientproto.TypeBootstrap:        handleBootstrap,
	clientproto.TypeTeardown:         handleTeardown,
	clientproto.TypeLkgShow:          handleLkgShow,
	clientproto.TypeLkgRevert:        handleLkgRevert,
	clientproto.TypeWatchSet:         handleWatchSet,
	clientproto.TypeWatchStatus:      handleWatchStatus,
	clientproto.TypeAuditLogs:        handleAuditLogs,
	clientproto.TypeDemoBlockEnable:  handleDemoBlockEnable,
	clientproto.TypeDemoBlockDisable: handleDemoBlockDisable,
	clientproto.TypeDemoBlockStatus:  handleDemoBlockStatus,
}

func handlePing(_ context.Context, _ clientproto.Request, _ *Deps) clientproto.Response {
	return clientproto.Response{Ok: true, Version: Version, Time: time.Now().UTC()}
}

func handleValidate(_ context.Context, req clientproto.Request, _ *Deps) clientproto.Response {
	policy, errs := validator.New().Validate([]byte(req.PolicyJSON))
	if errs == nil {
		return clientproto.Response{Ok: true, Valid: true, RuleCount: len(policy.Rules), PolicyVersion: policy.Version}
	}
	resp := clientproto.Response{Ok: true, Valid: false}
	for _, e := range errs.Errors {
		resp.Errors = append(resp.Errors, e.String())
	}
	return resp
}

// handleApply applies the policy file named by policyPath: rejects empty
// path or any ".." segment, reads the file, validates, compiles,
// reconciles, and attempts a best-effort LKG save on success.
func handleApply(ctx context.Context, req clientproto.Request, deps *Deps) clientproto.Response {
	start := time.Now()
	source := identitySource(ctx)

	if err := validatePolicyPath(req.PolicyPath); err != nil {
		return clientproto.Response{Ok: false, Error: err.Error()}
	}

	deps.Audit.Success(audit.EventApplyStarted, source, map[string]any{"policyPath": req.PolicyPath})

	raw, err := readPolicyFile(req.PolicyPath)
	if err != nil {
		deps.Audit.Failure(audit.EventApplyFinished, source, "INVALID_ARGUMENT", err.Error(), nil)
		return clientproto.Response{Ok: false, Error: err.Error()}
	}

	policy, validationErrs := validator.New().Validate(raw)
	if validationErrs != nil {
		msg := validationErrs.Error()
		deps.Audit.Failure(audit.EventApplyFinished, source, "INVALID_ARGUMENT", msg, nil)
		return clientproto.Response{Ok: false, Error: msg}
	}

	compiled := compiler.Compile(policy)
	if !compiled.Successful() {
		msg := strings.Join(compiled.Errors, "; ")
		deps.Audit.Failure(audit.EventApplyFinished, source, "INVALID_ARGUMENT", msg, nil)
		return clientproto.Response{Ok: false, Error: msg}
	}

	res := deps.Reconciler.ApplyFilters(compiled.Filters)
	if !res.IsOk() {
		deps.Audit.Failure(audit.EventApplyFinished, source, string(res.Err().Code), res.Err().Message, nil)
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}
	applyRes := res.Value()

	saveWarnings := compiled.Warnings
	if save := deps.LKG.Save(string(raw), req.PolicyPath); !save.IsOk() {
		saveWarnings = append(saveWarnings, "failed to persist last-known-good record: "+save.Err().Message)
	}

	if deps.Metrics != nil {
		deps.Metrics.RecordApply("success", time.Since(start), applyRes.FiltersCreated, applyRes.FiltersRemoved, applyRes.FiltersUnchanged)
	}

	deps.Audit.Success(audit.EventApplyFinished, source, map[string]any{
		"filtersCreated":   applyRes.FiltersCreated,
		"filtersRemoved":   applyRes.FiltersRemoved,
		"filtersUnchanged": applyRes.FiltersUnchanged,
	})

	return clientproto.Response{
		Ok:             true,
		FiltersCreated: applyRes.FiltersCreated,
		FiltersRemoved: applyRes.FiltersRemoved,
		RulesSkipped:   len(compiled.SkippedRules),
		PolicyVersion:  policy.Version,
		TotalRules:     len(policy.Rules),
		Warnings:       saveWarnings,
	}
}

func handleRollback(ctx context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	source := identitySource(ctx)
	deps.Audit.Success(audit.EventRollbackStarted, source, nil)

	res := deps.Reconciler.RemoveAllFilters()
	if !res.IsOk() {
		deps.Audit.Failure(audit.EventRollbackFinished, source, string(res.Err().Code), res.Err().Message, nil)
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}

	removed := res.Value()
	deps.Audit.Success(audit.EventRollbackFinished, source, map[string]any{"filtersRemoved": removed})
	return clientproto.Response{Ok: true, FiltersRemoved: removed}
}

func handleBootstrap(_ context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	res := deps.Reconciler.Bootstrap()
	if !res.IsOk() {
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}
	return clientproto.Response{Ok: true}
}

func handleTeardown(ctx context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	source := identitySource(ctx)
	deps.Audit.Success(audit.EventTeardownStarted, source, nil)

	res := deps.Reconciler.Teardown()
	if !res.IsOk() {
		deps.Audit.Failure(audit.EventTeardownFinished, source, string(res.Err().Code), res.Err().Message, nil)
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}

	deps.Audit.Success(audit.EventTeardownFinished, source, nil)
	return clientproto.Response{Ok: true}
}

func handleLkgShow(_ context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	meta := deps.LKG.Query()
	return clientproto.Response{
		Ok:            true,
		Exists:        meta.Exists,
		IsCorrupt:     meta.IsCorrupt,
		PolicyVersion: meta.PolicyVersion,
		RuleCount:     meta.RuleCount,
		SavedAt:       meta.SavedAt,
		SourcePath:    meta.SourcePath,
		LogPath:       deps.AuditPath,
	}
}

// handleLkgRevert loads the LKG record, re-runs compile/reconcile
// against it, and audits the outcome.
// A checksum failure surfaces via Load's CodeInvalidState error, whose
// message contains "checksum".
func handleLkgRevert(ctx context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	source := identitySource(ctx)
	deps.Audit.Success(audit.EventLKGRevertStarted, source, nil)

	loaded := deps.LKG.Load()
	if !loaded.IsOk() {
		deps.Audit.Failure(audit.EventLKGRevertFinished, source, string(loaded.Err().Code), loaded.Err().Message, nil)
		return clientproto.Response{Ok: false, Error: loaded.Err().Message}
	}
	record := loaded.Value()

	compiled := compiler.Compile(record.Policy)
	if !compiled.Successful() {
		msg := strings.Join(compiled.Errors, "; ")
		deps.Audit.Failure(audit.EventLKGRevertFinished, source, "INVALID_ARGUMENT", msg, nil)
		return clientproto.Response{Ok: false, Error: msg}
	}

	res := deps.Reconciler.ApplyFilters(compiled.Filters)
	if !res.IsOk() {
		deps.Audit.Failure(audit.EventLKGRevertFinished, source, string(res.Err().Code), res.Err().Message, nil)
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}
	applyRes := res.Value()

	deps.Audit.Success(audit.EventLKGRevertFinished, source, map[string]any{
		"filtersCreated": applyRes.FiltersCreated,
		"filtersRemoved": applyRes.FiltersRemoved,
	})

	return clientproto.Response{
		Ok:             true,
		FiltersCreated: applyRes.FiltersCreated,
		FiltersRemoved: applyRes.FiltersRemoved,
		RulesSkipped:   len(compiled.SkippedRules),
		PolicyVersion:  record.Policy.Version,
		TotalRules:     len(record.Policy.Rules),
		Warnings:       compiled.Warnings,
	}
}

func handleWatchSet(_ context.Context, req clientproto.Request, deps *Deps) clientproto.Response {
	if req.PolicyPath == "" {
		deps.Watcher.Stop()
		return watchStatusResponse(deps)
	}

	if err := deps.Watcher.Start(req.PolicyPath, watcherDebounce(deps)); err != nil {
		return clientproto.Response{Ok: false, Error: err.Error()}
	}
	return watchStatusResponse(deps)
}

func handleWatchStatus(_ context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	return watchStatusResponse(deps)
}

func watchStatusResponse(deps *Deps) clientproto.Response {
	active, path, stats := deps.Watcher.Status()
	resp := clientproto.Response{
		Ok:          true,
		WatchActive: active,
		WatchPath:   path,
		ApplyCount:  stats.ApplyCount,
		ErrorCount:  stats.ErrorCount,
		LastError:   stats.LastError,
	}
	if !stats.LastApplyTime.IsZero() {
		resp.LastApplyTime = stats.LastApplyTime.UTC().Format(time.RFC3339)
	}
	return resp
}

// watcherDebounce returns the configured debounce interval for
// watch-set.
func watcherDebounce(deps *Deps) time.Duration {
	if deps.WatcherDebounce > 0 {
		return deps.WatcherDebounce
	}
	return watcher.DefaultDebounce
}

func handleAuditLogs(ctx context.Context, req clientproto.Request, deps *Deps) clientproto.Response {
	var entries []model.AuditEntry
	var err error
	if deps.Index != nil {
		entries, err = deps.Index.Query(ctx, req.Tail, req.SinceMinutes)
	} else {
		entries, err = audit.Tail(deps.AuditPath, req.Tail, req.SinceMinutes)
	}
	if err != nil {
		return clientproto.Response{Ok: false, Error: err.Error()}
	}

	wire := make([]clientproto.AuditEntryWire, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, clientproto.AuditEntryWire{
			ID:           e.ID,
			Timestamp:    e.Timestamp,
			Event:        e.Event,
			Source:       e.Source,
			Status:       e.Status,
			ErrorCode:    e.ErrorCode,
			ErrorMessage: e.ErrorMessage,
			Details:      e.Details,
		})
	}
	return clientproto.Response{Ok: true, Entries: wire}
}

func handleDemoBlockEnable(_ context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	f, err := demoBlockFilter()
	if err != nil {
		return clientproto.Response{Ok: false, Error: err.Error()}
	}
	if res := deps.Reconciler.AddPinnedFilter(f); !res.IsOk() {
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}
	return clientproto.Response{Ok: true, DemoBlockActive: true}
}

func handleDemoBlockDisable(_ context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	f, err := demoBlockFilter()
	if err != nil {
		return clientproto.Response{Ok: false, Error: err.Error()}
	}
	if res := deps.Reconciler.RemovePinnedFilter(f.FilterKey); !res.IsOk() {
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}
	return clientproto.Response{Ok: true, DemoBlockActive: false}
}

func handleDemoBlockStatus(_ context.Context, _ clientproto.Request, deps *Deps) clientproto.Response {
	f, err := demoBlockFilter()
	if err != nil {
		return clientproto.Response{Ok: false, Error: err.Error()}
	}
	res := deps.Reconciler.PinnedFilterExists(f.FilterKey)
	if !res.IsOk() {
		return clientproto.Response{Ok: false, Error: res.Err().Message}
	}
	return clientproto.Response{Ok: true, DemoBlockActive: res.Value()}
}

// demoBlockRule is the single well-known rule compiled into the pinned
// demo-block filter. TEST-NET-3 (RFC 5737) keeps the demo from
// accidentally blocking a real destination.
var demoBlockRule = model.Rule{
	ID:        "sentryfw-demo-block",
	Action:    model.ActionBlock,
	Direction: model.DirectionOutbound,
	Protocol:  model.ProtocolTCP,
	Remote:    &model.Endpoint{IP: "203.0.113.1"},
	Priority:  0,
	Enabled:   true,
}

func demoBlockFilter() (model.CompiledFilter, error) {
	compiled := compiler.Compile(model.Policy{Version: "demo-block", Rules: []model.Rule{demoBlockRule}})
	if !compiled.Successful() || len(compiled.Filters) != 1 {
		return model.CompiledFilter{}, errCompileDemoBlock
	}
	return compiled.Filters[0], nil
}

var errCompileDemoBlock = simpleError("failed to compile the built-in demo-block rule")

func identitySource(ctx context.Context) string {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return "unknown"
	}
	if id.Account != "" {
		return id.Account
	}
	return fmt.Sprintf("uid:%d", id.UID)
}

// readPolicyFile reads the policy document from path, rejecting anything
// over the maximum policy size before it reaches the validator.
func readPolicyFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > model.MaxPolicyBytes {
		return nil, fmt.Errorf("policy file %s is %d bytes, exceeds maximum %d bytes", path, info.Size(), model.MaxPolicyBytes)
	}
	return os.ReadFile(path)
}

func validatePolicyPath(path string) error {
	if path == "" {
		return errEmptyPolicyPath
	}
	if strings.Contains(path, "..") {
		return errDotDotPolicyPath
	}
	if !filepath.IsAbs(path) {
		return errRelativePolicyPath
	}
	return nil
}

var (
	errEmptyPolicyPath    = simpleError("policyPath must not be empty")
	errDotDotPolicyPath   = simpleError(`policyPath must not contain ".." segments (path traversal)`)
	errRelativePolicyPath = simpleError("policyPath must be absolute")
)

type simpleError string

func (e simpleError) Error() string { return string(e) }
