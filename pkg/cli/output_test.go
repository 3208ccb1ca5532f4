package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatterIndents(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)
	if err := f.FormatTo(&buf, map[string]any{"ok": true, "filtersCreated": 3}); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["ok"] != true {
		t.Fatalf("got %v", decoded)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Fatal("expected indented output")
	}
}

func TestTextFormatterWritesValue(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatText)
	if err := f.FormatTo(&buf, "3 filters created"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "3 filters created\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestNewFormatterFallsBackToText(t *testing.T) {
	if _, ok := NewFormatter("csv").(*TextFormatter); !ok {
		t.Fatal("unrecognized format should fall back to text")
	}
}
