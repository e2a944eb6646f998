package review

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter selects which files become review units. It never affects what
// is indexed or retrievable as context. Include patterns, when present, act
// as an allow list; exclude patterns are applied afterwards and win ties.
type PathFilter struct {
	include []string
	exclude []string
}

// NewPathFilter validates every glob pattern up front so a bad pattern fails
// the run at configuration time rather than silently matching nothing.
func NewPathFilter(include, exclude []string) (*PathFilter, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid path pattern %q", p)
		}
	}
	return &PathFilter{include: include, exclude: exclude}, nil
}

// Match reports whether the relative path should be reviewed. Paths are
// matched with forward slashes regardless of host separator.
func (f *PathFilter) Match(relPath string) bool {
	p := filepath.ToSlash(strings.TrimPrefix(relPath, "./"))
	if len(f.include) > 0 && !matchAny(f.include, p) {
		return false
	}
	return !matchAny(f.exclude, p)
}

func matchAny(patterns []string, path string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, path); ok {
			return true
		}
	}
	return false
}
