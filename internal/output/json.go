// Package output renders run results as machine-readable reports: a plain
// JSON report and SARIF v2.1.0 for code scanning integrations.
package output

import (
	"sort"
	"time"

	"vigil/internal/review"
	"vigil/internal/util"
)

// Report is the top-level JSON artifact for one run.
type Report struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Files       int             `json:"files"`
	Findings    int             `json:"findings"`
	Results     []review.Result `json:"results"`
}

// WriteJSONReport writes results sorted by file path, highest severity
// first within each file.
func WriteJSONReport(path, runID string, results []review.Result) error {
	sorted := make([]review.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FilePath < sorted[j].FilePath })

	total := 0
	for i := range sorted {
		sort.SliceStable(sorted[i].Findings, func(a, b int) bool {
			ra, rb := severityRank(sorted[i].Findings[a].Severity), severityRank(sorted[i].Findings[b].Severity)
			if ra != rb {
				return ra > rb
			}
			return sorted[i].Findings[a].Confidence > sorted[i].Findings[b].Confidence
		})
		total += len(sorted[i].Findings)
	}
	return util.WriteJSONAtomic(path, Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Files:       len(sorted),
		Findings:    total,
		Results:     sorted,
	})
}

func severityRank(s string) int {
	switch s {
	case "CRITICAL":
		return 4
	case "HIGH":
		return 3
	case "MEDIUM":
		return 2
	case "LOW":
		return 1
	default:
		return 0
	}
}
