package activities

import "vigil/internal/review"

// SourceFile is one file discovered under the codebase root.
type SourceFile struct {
	Path     string `json:"path"`
	RelPath  string `json:"rel_path"`
	Category string `json:"category"`
}

type ListSourceFilesInput struct {
	Root      string   `json:"root"`
	ForReview bool     `json:"for_review"`
	Include   []string `json:"include,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
}

type ListSourceFilesOutput struct {
	Files []SourceFile `json:"files"`
}

type HashFileInput struct {
	Path string `json:"path"`
}

type HashFileOutput struct {
	Hash string `json:"hash"`
}

type FileStateInput struct {
	Category string `json:"category"`
	RelPath  string `json:"rel_path"`
	Hash     string `json:"hash"`
}

type FileStateOutput struct {
	Indexed bool `json:"indexed"`
	// UpToDate means the stored hash, embedding model and dimension all
	// match the current configuration, so re-indexing would be a no-op.
	UpToDate bool `json:"up_to_date"`
}

type ChunkItem struct {
	Index     int    `json:"index"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
}

type ChunkFileInput struct {
	Path    string `json:"path"`
	RelPath string `json:"rel_path"`
}

type ChunkFileOutput struct {
	Category string      `json:"category"`
	Hash     string      `json:"hash"`
	Chunks   []ChunkItem `json:"chunks"`
}

type EmbedChunksInput struct {
	Operation string   `json:"operation"`
	Category  string   `json:"category"`
	RunID     string   `json:"run_id,omitempty"`
	RelPath   string   `json:"rel_path,omitempty"`
	Texts     []string `json:"texts"`
}

type EmbedChunksOutput struct {
	Vectors  [][]float32 `json:"vectors"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
}

type ReplaceFileChunksInput struct {
	Category string      `json:"category"`
	RelPath  string      `json:"rel_path"`
	Hash     string      `json:"hash"`
	Chunks   []ChunkItem `json:"chunks"`
	Vectors  [][]float32 `json:"vectors"`
}

type DeleteFileInput struct {
	Category string `json:"category"`
	RelPath  string `json:"rel_path"`
}

type RetrieveContextInput struct {
	RunID   string `json:"run_id,omitempty"`
	RelPath string `json:"rel_path"`
	Snippet string `json:"snippet"`
}

type RetrieveContextOutput struct {
	ContextText string `json:"context_text"`
	Hits        int    `json:"hits"`
	// Stale lists indexed files whose embeddings no longer match the
	// active model. The caller re-indexes them and retries once.
	Stale []SourceFile `json:"stale,omitempty"`
}

type ChatInput struct {
	Operation string `json:"operation"`
	RunID     string `json:"run_id,omitempty"`
	RelPath   string `json:"rel_path,omitempty"`
	System    string `json:"system"`
	User      string `json:"user"`
}

type ChatOutput struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type LoadUnitInput struct {
	Root    string `json:"root"`
	RelPath string `json:"rel_path"`
}

type LoadUnitOutput struct {
	Unit      review.Unit `json:"unit"`
	Supported bool        `json:"supported"`
}

type ParsePatchInput struct {
	PatchText string `json:"patch_text"`
}

type ParsePatchOutput struct {
	// Units are the reviewable per-file changes, already framed with the
	// current file content for context.
	Units []review.Unit `json:"units"`
	// Deleted lists files the patch removes so the index can drop them.
	Deleted []string `json:"deleted,omitempty"`
}

type BuildReviewPromptsInput struct {
	Unit           review.Unit `json:"unit"`
	ContextText    string      `json:"context_text"`
	ExplainSummary string      `json:"explain_summary,omitempty"`
	CustomGuidance string      `json:"custom_guidance,omitempty"`
}

type BuildReviewPromptsOutput struct {
	ReviewSystem     string `json:"review_system"`
	ReviewUser       string `json:"review_user"`
	ValidationSystem string `json:"validation_system"`
	ExplainSystem    string `json:"explain_system,omitempty"`
	SummarySystem    string `json:"summary_system,omitempty"`
}

type BuildFixPromptInput struct {
	Unit     review.Unit      `json:"unit"`
	Findings []review.Finding `json:"findings"`
}

type BuildFixPromptOutput struct {
	System string `json:"system"`
	User   string `json:"user"`
}

type StartRunInput struct {
	RunID      string `json:"run_id"`
	Mode       string `json:"mode"`
	UnitsTotal int    `json:"units_total"`
}

type FinishRunInput struct {
	RunID   string `json:"run_id"`
	Done    int    `json:"done"`
	Failed  int    `json:"failed"`
	Summary string `json:"summary,omitempty"`
}

type RecordUnitResultInput struct {
	RunID  string        `json:"run_id"`
	Result review.Result `json:"result"`
}

type WriteRunArtifactsInput struct {
	RunID    string          `json:"run_id"`
	Manifest map[string]any  `json:"manifest"`
	Results  []review.Result `json:"results"`
}

type WriteRunArtifactsOutput struct {
	Dir string `json:"dir"`
}
