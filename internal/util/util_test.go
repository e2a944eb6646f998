package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSHA256Hex(t *testing.T) {
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := SHA256Hex([]byte("hello")); got != want {
		t.Fatalf("hash mismatch: %s", got)
	}
	fromReader, err := SHA256HexFromReader(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("hash from reader: %v", err)
	}
	if fromReader != want {
		t.Fatalf("reader hash differs: %s", fromReader)
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := WriteJSONAtomic(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil || m["a"] != 1 {
		t.Fatalf("round trip failed: %v %v", m, err)
	}
	// Overwrite must not leave temp files behind.
	if err := WriteJSONAtomic(path, map[string]int{"a": 2}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("stray files after atomic write: %v", entries)
	}
}

func TestWriteJSONLinesAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	rows := []any{map[string]int{"n": 1}, map[string]int{"n": 2}}
	if err := WriteJSONLinesAtomic(path, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	got := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(got) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(got), string(b))
	}
	var m map[string]int
	if err := json.Unmarshal([]byte(got[1]), &m); err != nil || m["n"] != 2 {
		t.Fatalf("second row mismatch: %v %v", m, err)
	}
}

func TestReadFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := ReadFileContent(path); got != "content" {
		t.Fatalf("got %q", got)
	}
	if got := ReadFileContent(path + ".missing"); got != "" {
		t.Fatalf("missing file must read as empty, got %q", got)
	}
}
