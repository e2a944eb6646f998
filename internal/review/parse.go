package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

// reviewEnvelope mirrors the JSON object the review and validation stages
// must emit. Reviews is a pointer so a missing key is distinguishable from
// an explicitly empty list.
type reviewEnvelope struct {
	Reviews *[]Finding `json:"reviews"`
}

// severityAliases maps the label variants models emit to canonical form.
var severityAliases = map[string]string{
	"LOW":      "LOW",
	"MED":      "MEDIUM",
	"MID":      "MEDIUM",
	"MEDIUM":   "MEDIUM",
	"HIGH":     "HIGH",
	"CRIT":     "CRITICAL",
	"CRITICAL": "CRITICAL",
}

// ParseFindings parses a review-stage response into findings. The response
// must be a JSON object with a "reviews" array, optionally wrapped in
// markdown code fences. Entries without an issue or code snippet are
// dropped; an empty array is a valid zero-finding result, while missing or
// malformed JSON is an error so the caller can run the single repair pass.
func ParseFindings(raw string) ([]Finding, error) {
	cleaned := ExtractJSONContent(raw)
	var env reviewEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return nil, fmt.Errorf("invalid review JSON: %w", err)
	}
	if env.Reviews == nil {
		return nil, fmt.Errorf("review JSON missing \"reviews\" array")
	}

	out := make([]Finding, 0, len(*env.Reviews))
	for _, f := range *env.Reviews {
		f.Issue = strings.TrimSpace(f.Issue)
		f.CodeSnippet = strings.TrimSpace(f.CodeSnippet)
		if f.Issue == "" || f.CodeSnippet == "" {
			continue
		}
		f.Confidence = clampConfidence(f.Confidence)
		if f.CWE == "" {
			f.CWE = "CWE-Unknown"
		}
		if canon, ok := severityAliases[strings.ToUpper(strings.TrimSpace(f.Severity))]; ok {
			f.Severity = canon
		}
		out = append(out, f)
	}
	return out, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ExtractJSONContent strips surrounding markdown code fences that chat
// models commonly wrap JSON responses in.
func ExtractJSONContent(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```json"))
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```"))
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	}
	return cleaned
}
