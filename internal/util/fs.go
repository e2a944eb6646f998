package util

import (
	"fmt"
	"os"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// ReadFileContent returns the file's text, or "" when the file is missing
// or unreadable. Callers that need the distinction check existence first.
func ReadFileContent(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}
