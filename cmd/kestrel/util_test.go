package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadJSONArgInline(t *testing.T) {
	var out map[string]any
	if err := readJSONArg(`{"a":1}`, &out); err != nil {
		t.Fatalf("readJSONArg: %v", err)
	}
	if out["a"].(float64) != 1 {
		t.Fatalf("unexpected decoded value: %+v", out)
	}
}

func TestReadJSONArgFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.json")
	if err := os.WriteFile(path, []byte(`[{"b":2}]`), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	var out []map[string]any
	if err := readJSONArg("@"+path, &out); err != nil {
		t.Fatalf("readJSONArg: %v", err)
	}
	if len(out) != 1 || out[0]["b"].(float64) != 2 {
		t.Fatalf("unexpected decoded value: %+v", out)
	}
}

func TestReadJSONArgInvalid(t *testing.T) {
	var out map[string]any
	if err := readJSONArg(`not json`, &out); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}
