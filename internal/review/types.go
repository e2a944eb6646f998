// Package review holds the review-domain model: units under review,
// findings, the per-unit state machine, and the pure transformations
// (parsing, deduplication, validation filtering, enrichment) applied to
// model output between pipeline stages.
package review

// Mode distinguishes whole-file review from change (diff) review.
type Mode string

const (
	ModeFile   Mode = "file"
	ModeChange Mode = "change"
)

// Unit is the atomic thing being reviewed: a whole file or one file's
// parsed diff.
type Unit struct {
	Mode     Mode   `json:"mode"`
	FilePath string `json:"file_path"`
	RelPath  string `json:"rel_path"`

	// Snippet is the file content in file mode, or the +/- changed lines
	// in change mode.
	Snippet string `json:"snippet"`

	// OriginalFile is the pre-change content in change mode. Empty for
	// new files.
	OriginalFile string `json:"original_file,omitempty"`

	// Patch is the raw per-file patch text in change mode, used by the
	// fix-generation stage.
	Patch string `json:"patch,omitempty"`
}

// Finding is one candidate security issue reported by the review stage.
// Findings are dropped, never mutated, by the validation stage.
type Finding struct {
	Issue       string  `json:"issue"`
	CodeSnippet string  `json:"code_snippet"`
	Reasoning   string  `json:"reasoning"`
	Mitigation  string  `json:"mitigation"`
	Confidence  float64 `json:"confidence"`
	CWE         string  `json:"cwe,omitempty"`
	Severity    string  `json:"severity,omitempty"`

	// Explanation carries the validator's note when it corrected or
	// narrowed the original claim.
	Explanation string `json:"explanation,omitempty"`

	// LineNumber is derived after parsing by matching CodeSnippet against
	// the reviewed file. 1-based; 1 when no match is found.
	LineNumber int `json:"line_number,omitempty"`
}

// Result is the terminal artifact of the pipeline for one unit.
type Result struct {
	File          string    `json:"file"`
	FilePath      string    `json:"file_path"`
	State         State     `json:"state"`
	Findings      []Finding `json:"reviews"`
	Summary       string    `json:"summary,omitempty"`
	ProposedFix   string    `json:"proposed_fix,omitempty"`
	FailReason    string    `json:"fail_reason,omitempty"`
	ParseFailures int       `json:"parse_failures,omitempty"`
}
