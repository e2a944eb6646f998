package review

import (
	"strings"
	"unicode"
)

// Dedup merges findings whose code snippets are equal after whitespace
// normalization: the higher-confidence finding survives and distinct
// reasoning text is concatenated. Input order of first occurrence is
// preserved, making the operation idempotent.
func Dedup(findings []Finding) []Finding {
	if len(findings) <= 1 {
		return findings
	}
	index := make(map[string]int, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		key := NormalizeSnippet(f.CodeSnippet)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, f)
			continue
		}
		out[i] = mergeFindings(out[i], f)
	}
	return out
}

func mergeFindings(a, b Finding) Finding {
	kept, other := a, b
	if b.Confidence > a.Confidence {
		kept, other = b, a
	}
	if r := strings.TrimSpace(other.Reasoning); r != "" && r != strings.TrimSpace(kept.Reasoning) {
		if kept.Reasoning == "" {
			kept.Reasoning = r
		} else {
			kept.Reasoning = kept.Reasoning + "\n\n" + r
		}
	}
	return kept
}

// NormalizeSnippet removes all whitespace so formatting differences never
// defeat duplicate detection or validation matching.
func NormalizeSnippet(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
