package review

import "strings"

// ApplyValidation filters original findings down to those the validator
// confirmed. Matching is by whitespace-normalized snippet, so the result is
// always a subset of the input; the validator can drop findings and annotate
// them with an explanation but never introduce new ones or rewrite the
// reviewer's fields.
func ApplyValidation(original, validated []Finding) []Finding {
	if len(original) == 0 {
		return nil
	}
	confirmed := make(map[string]Finding, len(validated))
	for _, v := range validated {
		confirmed[NormalizeSnippet(v.CodeSnippet)] = v
	}
	out := make([]Finding, 0, len(original))
	for _, f := range original {
		v, ok := confirmed[NormalizeSnippet(f.CodeSnippet)]
		if !ok {
			continue
		}
		if e := strings.TrimSpace(v.Explanation); e != "" {
			f.Explanation = e
		}
		out = append(out, f)
	}
	return out
}
