package output

import (
	"sort"

	"vigil/internal/review"
	"vigil/internal/util"
)

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

// WriteSARIF writes all findings as one SARIF run. Findings share a rule
// per CWE so scanners group them sensibly.
func WriteSARIF(path string, results []review.Result) error {
	rulesMap := map[string]sarifRule{}
	var sarifResults []sarifResult

	for _, res := range results {
		for _, f := range res.Findings {
			ruleID := f.CWE
			if ruleID == "" {
				ruleID = "CWE-Unknown"
			}
			if _, ok := rulesMap[ruleID]; !ok {
				rulesMap[ruleID] = sarifRule{
					ID:               ruleID,
					ShortDescription: sarifMessage{Text: f.Issue},
					DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(f.Severity)},
				}
			}
			line := f.LineNumber
			if line <= 0 {
				line = 1
			}
			r := sarifResult{
				RuleID:  ruleID,
				Level:   severityToLevel(f.Severity),
				Message: sarifMessage{Text: f.Issue + ": " + f.Reasoning},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: res.FilePath},
						Region:           sarifRegion{StartLine: line},
					},
				}},
			}
			if f.Mitigation != "" {
				r.Fixes = append(r.Fixes, sarifFix{Description: sarifMessage{Text: f.Mitigation}})
			}
			sarifResults = append(sarifResults, r)
		}
	}

	rules := make([]sarifRule, 0, len(rulesMap))
	for _, r := range rulesMap {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	return util.WriteJSONAtomic(path, sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "vigil", Version: "0.1.0", Rules: rules}},
			Results: sarifResults,
		}},
	})
}

func severityToLevel(severity string) string {
	switch severity {
	case "CRITICAL", "HIGH":
		return "error"
	case "MEDIUM":
		return "warning"
	case "LOW":
		return "note"
	default:
		return "warning"
	}
}
