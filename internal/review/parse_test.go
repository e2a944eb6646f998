package review

import (
	"strings"
	"testing"
)

func TestParseFindings(t *testing.T) {
	raw := `{"reviews":[{"issue":"SQL injection","code_snippet":"db.Exec(q)","reasoning":"query built with Sprintf","mitigation":"use placeholders","confidence":0.9,"cwe":"CWE-89","severity":"HIGH"}]}`
	findings, err := ParseFindings(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Issue != "SQL injection" || f.CWE != "CWE-89" || f.Severity != "HIGH" || f.Confidence != 0.9 {
		t.Fatalf("unexpected finding: %+v", f)
	}
}

func TestParseFindingsStripsFences(t *testing.T) {
	raw := "```json\n{\"reviews\": []}\n```"
	findings, err := ParseFindings(raw)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected zero findings, got %d", len(findings))
	}
}

func TestParseFindingsEmptyArrayIsValid(t *testing.T) {
	findings, err := ParseFindings(`{"reviews": []}`)
	if err != nil {
		t.Fatalf("empty reviews array must parse: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected zero findings, got %d", len(findings))
	}
}

func TestParseFindingsMissingReviewsKey(t *testing.T) {
	if _, err := ParseFindings(`{"results": []}`); err == nil {
		t.Fatalf("missing reviews key must be an error")
	} else if !strings.Contains(err.Error(), "reviews") {
		t.Fatalf("error should name the missing key: %v", err)
	}
}

func TestParseFindingsMalformedJSON(t *testing.T) {
	if _, err := ParseFindings("the code looks fine to me"); err == nil {
		t.Fatalf("prose response must be a parse error")
	}
}

func TestParseFindingsDropsIncompleteEntries(t *testing.T) {
	raw := `{"reviews":[
		{"issue":"","code_snippet":"x := 1"},
		{"issue":"real issue","code_snippet":""},
		{"issue":"kept","code_snippet":"open(path)"}
	]}`
	findings, err := ParseFindings(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(findings) != 1 || findings[0].Issue != "kept" {
		t.Fatalf("expected only the complete entry, got %+v", findings)
	}
}

func TestParseFindingsNormalizes(t *testing.T) {
	raw := `{"reviews":[
		{"issue":"a","code_snippet":"s1","confidence":1.7,"severity":"crit"},
		{"issue":"b","code_snippet":"s2","confidence":-0.3,"severity":"med"}
	]}`
	findings, err := ParseFindings(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if findings[0].Confidence != 1.0 || findings[0].Severity != "CRITICAL" {
		t.Fatalf("first entry not normalized: %+v", findings[0])
	}
	if findings[1].Confidence != 0.0 || findings[1].Severity != "MEDIUM" {
		t.Fatalf("second entry not normalized: %+v", findings[1])
	}
	if findings[0].CWE != "CWE-Unknown" {
		t.Fatalf("missing cwe must default to CWE-Unknown, got %q", findings[0].CWE)
	}
}
