package compiler

import (
	"testing"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

func mustRule(t *testing.T, r model.Rule) model.Rule {
	t.Helper()
	if r.Priority == 0 {
		r.Priority = 1
	}
	r.Enabled = true
	return r
}

func TestCompileSingleFilter(t *testing.T) {
	r := mustRule(t, model.Rule{
		ID: "r1", Action: model.ActionBlock, Direction: model.DirectionOutbound, Protocol: model.ProtocolTCP,
		Remote: &model.Endpoint{IP: "1.1.1.1", Ports: "443"}, Priority: 100,
	})
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if !res.Successful() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Filters) != 1 {
		t.Fatalf("got %d filters, want 1", len(res.Filters))
	}
}

func TestCompileCrossProductExpansion(t *testing.T) {
	r := mustRule(t, model.Rule{
		ID: "r1", Action: model.ActionAllow, Direction: model.DirectionOutbound, Protocol: model.ProtocolAny,
		Remote: &model.Endpoint{Ports: "53,443"}, Priority: 1,
	})
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if !res.Successful() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Filters) != 4 {
		t.Fatalf("got %d filters, want 4", len(res.Filters))
	}
	seen := map[string]bool{}
	for _, f := range res.Filters {
		seen[f.FilterKeyString] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct filter keys, got %d", len(seen))
	}
}

func TestCompileRejectsBothDirection(t *testing.T) {
	r := mustRule(t, model.Rule{ID: "r1", Action: model.ActionAllow, Direction: model.DirectionBoth, Protocol: model.ProtocolTCP, Priority: 1})
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if res.Successful() {
		t.Fatal("expected compilation error")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %v", res.Errors)
	}
}

func TestCompileRejectsInboundUDP(t *testing.T) {
	r := mustRule(t, model.Rule{ID: "r1", Action: model.ActionAllow, Direction: model.DirectionInbound, Protocol: model.ProtocolUDP, Priority: 1})
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if res.Successful() {
		t.Fatal("expected compilation error")
	}
}

func TestCompileRejectsInboundAny(t *testing.T) {
	r := mustRule(t, model.Rule{ID: "r1", Action: model.ActionAllow, Direction: model.DirectionInbound, Protocol: model.ProtocolAny, Priority: 1})
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if res.Successful() {
		t.Fatal("expected compilation error")
	}
}

func TestCompileRejectsLocalEndpoint(t *testing.T) {
	r := mustRule(t, model.Rule{ID: "r1", Action: model.ActionAllow, Direction: model.DirectionOutbound, Protocol: model.ProtocolTCP,
		Local: &model.Endpoint{Ports: "80"}, Priority: 1})
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if res.Successful() {
		t.Fatal("expected compilation error")
	}
}

func TestCompileRejectsIPv6(t *testing.T) {
	r := mustRule(t, model.Rule{ID: "r1", Action: model.ActionAllow, Direction: model.DirectionOutbound, Protocol: model.ProtocolTCP,
		Remote: &model.Endpoint{IP: "::1"}, Priority: 1})
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if res.Successful() {
		t.Fatal("expected compilation error")
	}
}

func TestCompileDisabledRuleSkippedWithWarning(t *testing.T) {
	r := model.Rule{ID: "r1", Action: model.ActionAllow, Direction: model.DirectionOutbound, Protocol: model.ProtocolTCP, Priority: 1, Enabled: false}
	res := Compile(model.Policy{Rules: []model.Rule{r}})
	if !res.Successful() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Filters) != 0 {
		t.Fatalf("disabled rule must emit no filters, got %d", len(res.Filters))
	}
	if len(res.Warnings) != 1 || len(res.SkippedRules) != 1 {
		t.Fatalf("expected one warning and one skipped rule, got %v / %v", res.Warnings, res.SkippedRules)
	}
}

func TestFilterKeyDeterministic(t *testing.T) {
	r := mustRule(t, model.Rule{ID: "r1", Action: model.ActionBlock, Direction: model.DirectionOutbound, Protocol: model.ProtocolTCP,
		Remote: &model.Endpoint{IP: "1.1.1.1", Ports: "443"}, Priority: 100})

	res1 := Compile(model.Policy{Rules: []model.Rule{r}})
	res2 := Compile(model.Policy{Rules: []model.Rule{r}})

	if res1.Filters[0].FilterKeyString != res2.Filters[0].FilterKeyString {
		t.Fatal("expected identical filter keys for identical rule content")
	}
}

func TestWeightMonotoneInPriority(t *testing.T) {
	low := weightFor(1, "a")
	high := weightFor(2, "a")
	if !(high > low) {
		t.Fatalf("expected weight to increase with priority: %d vs %d", low, high)
	}
}

func TestIPv4HostOrderEncoding(t *testing.T) {
	parsed, err := parseEndpointIP("1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if parsed.ipHost != 0x01020304 {
		t.Fatalf("got %#x, want 0x01020304", parsed.ipHost)
	}
}

func TestCIDRMaskHostOrder(t *testing.T) {
	if got := cidrMaskHostOrder(24); got != 0xFFFFFF00 {
		t.Fatalf("got %#x, want 0xFFFFFF00", got)
	}
	if got := cidrMaskHostOrder(32); got != 0xFFFFFFFF {
		t.Fatalf("got %#x, want 0xFFFFFFFF", got)
	}
}
