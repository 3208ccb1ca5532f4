package lkg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

func validPolicyJSON(t *testing.T) string {
	t.Helper()
	p := model.Policy{
		Version:       "1.0.0",
		DefaultAction: model.ActionAllow,
		UpdatedAt:     time.Now().UTC(),
		Rules:         []model.Rule{},
	}
	buf, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(buf)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "lkg.json"))

	policyJSON := validPolicyJSON(t)
	if r := s.Save(policyJSON, "/etc/sentryfw/policy.json"); !r.IsOk() {
		t.Fatalf("save failed: %v", r.Err())
	}

	loaded := s.Load()
	if !loaded.IsOk() {
		t.Fatalf("load failed: %v", loaded.Err())
	}
	v := loaded.Value()
	if v.RawJSON != policyJSON {
		t.Fatal("raw json mismatch")
	}
	if v.SourcePath != "/etc/sentryfw/policy.json" {
		t.Fatalf("got source path %q", v.SourcePath)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "lkg.json"))
	if r := s.Save("   ", ""); r.IsOk() {
		t.Fatal("expected rejection of whitespace-only input")
	}
}

func TestLoadMissingFileIsNotFound(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"))
	r := s.Load()
	if r.IsOk() {
		t.Fatal("expected failure")
	}
	if r.Err().Code != "NOT_FOUND" {
		t.Fatalf("got %s", r.Err().Code)
	}
}

func TestLoadChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkg.json")
	s := New(path)
	s.Save(validPolicyJSON(t), "")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec wireRecord
	json.Unmarshal(raw, &rec)
	rec.PolicyJSON = `{"version":"9.9.9","defaultAction":"allow","updatedAt":"2020-01-01T00:00:00Z","rules":[]}`
	buf, _ := json.Marshal(rec)
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatal(err)
	}

	r := s.Load()
	if r.IsOk() {
		t.Fatal("expected checksum mismatch failure")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkg.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(path)
	if s.Load().IsOk() {
		t.Fatal("expected invalid JSON failure")
	}
}

func TestQueryMetadataOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkg.json")
	s := New(path)

	if m := s.Query(); m.Exists {
		t.Fatal("expected Exists=false before any save")
	}

	s.Save(validPolicyJSON(t), "src.json")
	m := s.Query()
	if !m.Exists || m.IsCorrupt {
		t.Fatalf("got %+v", m)
	}
	if m.PolicyVersion != "1.0.0" {
		t.Fatalf("got version %q", m.PolicyVersion)
	}
}

func TestQueryReportsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkg.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(path)
	m := s.Query()
	if !m.Exists || !m.IsCorrupt {
		t.Fatalf("got %+v", m)
	}
}
