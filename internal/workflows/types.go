package workflows

import "vigil/internal/review"

type IndexCodebaseInput struct {
	Root          string `json:"root"`
	MaxConcurrent int    `json:"max_concurrent"`
	Force         bool   `json:"force"`
}

type IndexFileInput struct {
	Root     string `json:"root"`
	RelPath  string `json:"rel_path"`
	Category string `json:"category,omitempty"`
	Force    bool   `json:"force"`
}

type IndexProgress struct {
	Total   int               `json:"total"`
	Indexed int               `json:"indexed"`
	Skipped int               `json:"skipped"`
	Failed  int               `json:"failed"`
	PerFile map[string]string `json:"per_file_status"`
}

type UpdateIndexInput struct {
	Root          string `json:"root"`
	PatchText     string `json:"patch_text"`
	MaxConcurrent int    `json:"max_concurrent"`
}

type ReviewRunInput struct {
	RunID string `json:"run_id"`
	// Mode is "files" for whole-codebase review or "changes" for a diff.
	Mode          string   `json:"mode"`
	Root          string   `json:"root"`
	PatchText     string   `json:"patch_text,omitempty"`
	Include       []string `json:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"`
	MaxConcurrent int      `json:"max_concurrent"`

	SkipExplain    bool   `json:"skip_explain"`
	Validate       bool   `json:"validate"`
	AttemptFix     bool   `json:"attempt_fix"`
	CustomGuidance string `json:"custom_guidance,omitempty"`
}

type ReviewRunOutput struct {
	RunID          string `json:"run_id"`
	Total          int    `json:"total"`
	Done           int    `json:"done"`
	Failed         int    `json:"failed"`
	Findings       int    `json:"findings"`
	OverallChanges string `json:"overall_changes,omitempty"`
	ArtifactsDir   string `json:"artifacts_dir,omitempty"`
}

type ReviewRunProgress struct {
	RunID         string            `json:"run_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerUnit       map[string]string `json:"per_unit_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}

type ReviewUnitInput struct {
	RunID string      `json:"run_id"`
	Root  string      `json:"root"`
	Unit  review.Unit `json:"unit"`

	SkipExplain    bool   `json:"skip_explain"`
	Validate       bool   `json:"validate"`
	AttemptFix     bool   `json:"attempt_fix"`
	CustomGuidance string `json:"custom_guidance,omitempty"`
}

type AskInput struct {
	Root     string `json:"root"`
	Question string `json:"question"`
}

type AskOutput struct {
	Answer      string `json:"answer"`
	ContextText string `json:"context_text"`
}
