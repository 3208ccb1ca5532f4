package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hearthguard/sentryfw/pkg/audit"
	"github.com/hearthguard/sentryfw/pkg/audit/index"
	"github.com/hearthguard/sentryfw/pkg/clientproto"
	"github.com/hearthguard/sentryfw/pkg/firewall/engine"
	"github.com/hearthguard/sentryfw/pkg/firewall/lkg"
	"github.com/hearthguard/sentryfw/pkg/firewall/reconcile"
	"github.com/hearthguard/sentryfw/pkg/server/auth"
	"github.com/hearthguard/sentryfw/pkg/telemetry/metrics"
	"github.com/hearthguard/sentryfw/pkg/watcher"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	dir := t.TempDir()

	auditPath := filepath.Join(dir, "audit.log")
	al, err := audit.Open(auditPath, nil)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() { al.Close() })

	eng := engine.NewFake()
	return &Deps{
		Engine:     eng,
		Reconciler: reconcile.New(eng),
		LKG:        lkg.New(filepath.Join(dir, "lkg.json")),
		Watcher:    watcher.New(func([]byte) error { return nil }),
		Audit:      al,
		AuditPath:  auditPath,
		Metrics:    metrics.NewCollector(nil),
		Config: Config{
			ProtocolVersionCurrent:      1,
			ProtocolVersionMinSupported: 1,
		},
	}
}

const validPolicyJSON = `{
	"version": "1.0.0",
	"defaultAction": "block",
	"updatedAt": "2024-01-01T00:00:00Z",
	"rules": [
		{"id": "r1", "action": "allow", "direction": "outbound", "protocol": "tcp", "remote": {"ip": "10.0.0.1", "ports": "443"}, "priority": 100, "enabled": true}
	]
}`

func TestHandlersMapCoversEveryKnownType(t *testing.T) {
	for _, typ := range clientproto.KnownTypes {
		if _, ok := handlers[typ]; !ok {
			t.Errorf("no handler registered for known type %q", typ)
		}
	}
	if len(handlers) != len(clientproto.KnownTypes) {
		t.Errorf("handlers map has %d entries, want %d", len(handlers), len(clientproto.KnownTypes))
	}
}

func TestHandlePing(t *testing.T) {
	resp := handlePing(context.Background(), clientproto.Request{}, testDeps(t))
	if !resp.Ok || resp.Version == "" {
		t.Fatalf("got %+v", resp)
	}
}

func TestHandleValidateAcceptsValidPolicy(t *testing.T) {
	resp := handleValidate(context.Background(), clientproto.Request{PolicyJSON: validPolicyJSON}, testDeps(t))
	if !resp.Ok || !resp.Valid || resp.RuleCount != 1 {
		t.Fatalf("got %+v", resp)
	}
}

func TestHandleValidateReportsErrorsForInvalidPolicy(t *testing.T) {
	resp := handleValidate(context.Background(), clientproto.Request{PolicyJSON: `{"version": ""}`}, testDeps(t))
	if !resp.Ok || resp.Valid || len(resp.Errors) == 0 {
		t.Fatalf("got %+v", resp)
	}
}

func TestHandleApplyRejectsRelativePath(t *testing.T) {
	resp := handleApply(context.Background(), clientproto.Request{PolicyPath: "relative/policy.json"}, testDeps(t))
	if resp.Ok {
		t.Fatal("expected relative policyPath to be rejected")
	}
}

func TestHandleApplyRejectsDotDotPath(t *testing.T) {
	resp := handleApply(context.Background(), clientproto.Request{PolicyPath: "/etc/../etc/policy.json"}, testDeps(t))
	if resp.Ok {
		t.Fatal("expected \"..\" policyPath to be rejected")
	}
}

func TestHandleApplyEndToEnd(t *testing.T) {
	deps := testDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	if err := os.WriteFile(path, []byte(validPolicyJSON), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	ctx := auth.IntoContext(context.Background(), auth.Identity{UID: 1000, Account: "tester"})
	resp := handleApply(ctx, clientproto.Request{PolicyPath: path}, deps)
	if !resp.Ok {
		t.Fatalf("apply failed: %+v", resp)
	}
	if resp.FiltersCreated != 1 || resp.TotalRules != 1 {
		t.Fatalf("got %+v", resp)
	}

	show := handleLkgShow(context.Background(), clientproto.Request{}, deps)
	if !show.Ok || !show.Exists || show.PolicyVersion != "1.0.0" {
		t.Fatalf("expected lkg record to be saved, got %+v", show)
	}

	rollback := handleRollback(ctx, clientproto.Request{}, deps)
	if !rollback.Ok || rollback.FiltersRemoved != 1 {
		t.Fatalf("got %+v", rollback)
	}
}

func TestHandleApplyMissingFile(t *testing.T) {
	resp := handleApply(context.Background(), clientproto.Request{PolicyPath: "/nonexistent/policy.json"}, testDeps(t))
	if resp.Ok {
		t.Fatal("expected missing policy file to fail")
	}
}

func TestHandleBootstrapAndTeardown(t *testing.T) {
	deps := testDeps(t)
	if resp := handleBootstrap(context.Background(), clientproto.Request{}, deps); !resp.Ok {
		t.Fatalf("bootstrap failed: %+v", resp)
	}
	if resp := handleTeardown(context.Background(), clientproto.Request{}, deps); !resp.Ok {
		t.Fatalf("teardown failed: %+v", resp)
	}
}

func TestHandleLkgShowWhenAbsent(t *testing.T) {
	resp := handleLkgShow(context.Background(), clientproto.Request{}, testDeps(t))
	if !resp.Ok || resp.Exists {
		t.Fatalf("expected no lkg record, got %+v", resp)
	}
}

func TestHandleLkgRevertWhenAbsent(t *testing.T) {
	resp := handleLkgRevert(context.Background(), clientproto.Request{}, testDeps(t))
	if resp.Ok {
		t.Fatal("expected lkg-revert to fail with no saved record")
	}
}

func TestHandleWatchSetAndStatus(t *testing.T) {
	deps := testDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	if err := os.WriteFile(path, []byte(validPolicyJSON), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	resp := handleWatchSet(context.Background(), clientproto.Request{PolicyPath: path}, deps)
	if !resp.Ok || !resp.WatchActive || resp.WatchPath != path {
		t.Fatalf("got %+v", resp)
	}

	status := handleWatchStatus(context.Background(), clientproto.Request{}, deps)
	if !status.Ok || !status.WatchActive {
		t.Fatalf("got %+v", status)
	}

	cleared := handleWatchSet(context.Background(), clientproto.Request{}, deps)
	if !cleared.Ok || cleared.WatchActive {
		t.Fatalf("expected empty policyPath to clear the watch, got %+v", cleared)
	}
}

func TestHandleAuditLogsReadsRecordedEntries(t *testing.T) {
	deps := testDeps(t)
	deps.Audit.Success(audit.EventApplyStarted, "tester", nil)
	deps.Audit.Success(audit.EventApplyFinished, "tester", nil)

	resp := handleAuditLogs(context.Background(), clientproto.Request{Tail: 10}, deps)
	if !resp.Ok || len(resp.Entries) != 2 {
		t.Fatalf("got %+v", resp)
	}
}

func TestHandleAuditLogsReadsFromIndexWhenEnabled(t *testing.T) {
	deps := testDeps(t)
	ix, err := index.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	deps.Index = ix
	deps.Audit.AttachSink(ix)

	deps.Audit.Success(audit.EventApplyStarted, "tester", nil)
	deps.Audit.Success(audit.EventApplyFinished, "tester", nil)

	resp := handleAuditLogs(context.Background(), clientproto.Request{Tail: 10}, deps)
	if !resp.Ok || len(resp.Entries) != 2 {
		t.Fatalf("expected indexed entries to be served, got %+v", resp)
	}
}

func TestDemoBlockLifecycle(t *testing.T) {
	deps := testDeps(t)

	status := handleDemoBlockStatus(context.Background(), clientproto.Request{}, deps)
	if !status.Ok || status.DemoBlockActive {
		t.Fatalf("expected inactive before enable, got %+v", status)
	}

	enable := handleDemoBlockEnable(context.Background(), clientproto.Request{}, deps)
	if !enable.Ok || !enable.DemoBlockActive {
		t.Fatalf("got %+v", enable)
	}

	status = handleDemoBlockStatus(context.Background(), clientproto.Request{}, deps)
	if !status.Ok || !status.DemoBlockActive {
		t.Fatalf("expected active after enable, got %+v", status)
	}

	disable := handleDemoBlockDisable(context.Background(), clientproto.Request{}, deps)
	if !disable.Ok || disable.DemoBlockActive {
		t.Fatalf("got %+v", disable)
	}

	status = handleDemoBlockStatus(context.Background(), clientproto.Request{}, deps)
	if !status.Ok || status.DemoBlockActive {
		t.Fatalf("expected inactive after disable, got %+v", status)
	}
}

func TestDemoBlockEnableIsIdempotent(t *testing.T) {
	deps := testDeps(t)
	if resp := handleDemoBlockEnable(context.Background(), clientproto.Request{}, deps); !resp.Ok {
		t.Fatalf("first enable failed: %+v", resp)
	}
	if resp := handleDemoBlockEnable(context.Background(), clientproto.Request{}, deps); !resp.Ok {
		t.Fatalf("second enable failed: %+v", resp)
	}
}
