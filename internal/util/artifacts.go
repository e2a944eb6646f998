package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic stages content in a temp file next to the destination and
// renames it into place, so report readers never observe a partial file.
func writeAtomic(path, pattern string, content []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// WriteJSONAtomic writes v as indented JSON, creating parent directories.
func WriteJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return writeAtomic(path, "tmp-*.json", append(b, '\n'))
}

// WriteJSONLinesAtomic writes one compact JSON object per row. Used for the
// per-run findings log, which downstream tools consume line by line.
func WriteJSONLinesAtomic(path string, rows []any) error {
	var buf bytes.Buffer
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return writeAtomic(path, "tmp-*.jsonl", buf.Bytes())
}
