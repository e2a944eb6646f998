package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.temporal.io/sdk/temporal"

	"vigil/internal/output"
	"vigil/internal/plugins"
	"vigil/internal/providers"
	"vigil/internal/review"
	"vigil/internal/storage"
	"vigil/internal/util"
	"vigil/internal/vectorstore"
)

// LoadUnitActivity reads one file into a whole-file review unit. Files with
// no code profile come back unsupported so the run can count them as
// skipped instead of failing.
func (a *Activities) LoadUnitActivity(ctx context.Context, in LoadUnitInput) (LoadUnitOutput, error) {
	_ = ctx
	root := in.Root
	if root == "" {
		root = a.cfg.CodebasePath
	}
	ext := strings.ToLower(filepath.Ext(in.RelPath))
	profile := a.registry.Resolve(ext)
	if profile.Category != plugins.CategoryCode {
		return LoadUnitOutput{Supported: false}, nil
	}
	path := filepath.Join(root, filepath.FromSlash(in.RelPath))
	content := util.ReadFileContent(path)
	if content == "" {
		return LoadUnitOutput{}, fmt.Errorf("read unit %s: empty or unreadable", in.RelPath)
	}
	return LoadUnitOutput{
		Supported: true,
		Unit: review.Unit{
			Mode:     review.ModeFile,
			FilePath: path,
			RelPath:  in.RelPath,
			Snippet:  content,
		},
	}, nil
}

// ParsePatchActivity splits a unified diff into change-mode review units.
// Only files with a code profile become units; deletions are reported
// separately so the index can be updated.
func (a *Activities) ParsePatchActivity(ctx context.Context, in ParsePatchInput) (ParsePatchOutput, error) {
	_ = ctx
	changes, err := review.ParsePatch(in.PatchText)
	if err != nil {
		return ParsePatchOutput{}, temporal.NewNonRetryableApplicationError("parse patch", "bad_patch", err)
	}
	var out ParsePatchOutput
	for _, c := range changes {
		if c.IsDelete {
			out.Deleted = append(out.Deleted, c.Path)
			continue
		}
		ext := strings.ToLower(filepath.Ext(c.Path))
		if a.registry.Resolve(ext).Category != plugins.CategoryCode {
			continue
		}
		path := filepath.Join(a.cfg.CodebasePath, filepath.FromSlash(c.Path))
		original := ""
		if !c.IsNew {
			original = util.ReadFileContent(path)
		}
		out.Units = append(out.Units, review.Unit{
			Mode:         review.ModeChange,
			FilePath:     path,
			RelPath:      c.Path,
			Snippet:      c.AddedContent,
			OriginalFile: original,
			Patch:        c.Patch,
		})
	}
	return out, nil
}

// RetrieveContextActivity embeds a query for the unit and searches both
// collections. Stale index state is reported in the output rather than as
// an error so the workflow can re-index deterministically and retry.
func (a *Activities) RetrieveContextActivity(ctx context.Context, in RetrieveContextInput) (RetrieveContextOutput, error) {
	query := plugins.Render(a.registry.General(plugins.GeneralRetrieveContext),
		map[string]string{"file_path": in.RelPath})
	if s := strings.TrimSpace(in.Snippet); s != "" {
		query = query + "\n" + s
	}
	rctx, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		var stale *vectorstore.StalenessError
		if errors.As(err, &stale) {
			out := RetrieveContextOutput{}
			for _, p := range stale.Paths {
				out.Stale = append(out.Stale, SourceFile{
					Path:     filepath.Join(a.cfg.CodebasePath, filepath.FromSlash(p)),
					RelPath:  p,
					Category: stale.Collection,
				})
			}
			return out, nil
		}
		return RetrieveContextOutput{}, classifyProviderError("retrieve context", err)
	}
	return RetrieveContextOutput{
		ContextText: rctx.Render(),
		Hits:        len(rctx.CodeHits) + len(rctx.DocsHits),
	}, nil
}

// ChatActivity performs one model call and records it in the audit log.
func (a *Activities) ChatActivity(ctx context.Context, in ChatInput) (ChatOutput, error) {
	resp, info, err := a.caps.Chat.Chat(ctx, providers.ChatRequest{
		Operation: in.Operation,
		System:    in.System,
		User:      in.User,
	})
	a.audit(ctx, in.RunID, in.RelPath, in.Operation, info, err)
	if err != nil {
		return ChatOutput{}, classifyProviderError(in.Operation, err)
	}
	return ChatOutput{Text: resp.Text, Provider: info.Name, Model: info.Model}, nil
}

// BuildReviewPromptsActivity assembles every prompt a review unit may need
// from its language profile.
func (a *Activities) BuildReviewPromptsActivity(ctx context.Context, in BuildReviewPromptsInput) (BuildReviewPromptsOutput, error) {
	_ = ctx
	ext := strings.ToLower(filepath.Ext(in.Unit.RelPath))
	profile := a.registry.Resolve(ext)
	if profile.Category != plugins.CategoryCode {
		return BuildReviewPromptsOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no code profile for %s", in.Unit.RelPath), "unsupported_file", nil)
	}
	guidance := in.CustomGuidance
	if guidance == "" {
		guidance = a.cfg.CustomGuidance
	}
	reviewSystem, err := review.BuildReviewSystemPrompt(a.registry, profile, in.Unit.Mode, guidance)
	if err != nil {
		return BuildReviewPromptsOutput{}, err
	}
	validationSystem, err := review.BuildValidationSystemPrompt(a.registry, profile)
	if err != nil {
		return BuildReviewPromptsOutput{}, err
	}
	// The explain stage's summary joins the retrieved context so the review
	// call sees both under the same heading.
	contextText := in.ContextText
	if s := strings.TrimSpace(in.ExplainSummary); s != "" {
		if contextText == "" {
			contextText = s
		} else {
			contextText = s + "\n\n" + contextText
		}
	}
	out := BuildReviewPromptsOutput{
		ReviewSystem:     reviewSystem,
		ReviewUser:       review.BuildBodyText(in.Unit, contextText),
		ValidationSystem: validationSystem,
		SummarySystem:    profile.Prompt(plugins.PromptSnippetSummary),
	}
	if in.Unit.Mode == review.ModeChange {
		out.ExplainSystem = plugins.Render(profile.Prompt(plugins.PromptExplainChanges),
			map[string]string{"file_path": in.Unit.RelPath})
	}
	return out, nil
}

// BuildFixPromptActivity renders the fix-generation prompt with the patch
// and the validated findings substituted in.
func (a *Activities) BuildFixPromptActivity(ctx context.Context, in BuildFixPromptInput) (BuildFixPromptOutput, error) {
	_ = ctx
	ext := strings.ToLower(filepath.Ext(in.Unit.RelPath))
	profile := a.registry.Resolve(ext)
	tmpl := profile.Prompt(plugins.PromptAttemptFix)
	if tmpl == "" {
		return BuildFixPromptOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("profile %s has no fix prompt", profile.Name), "unsupported_file", nil)
	}
	issues, err := json.MarshalIndent(in.Findings, "", "  ")
	if err != nil {
		return BuildFixPromptOutput{}, fmt.Errorf("marshal findings for fix prompt: %w", err)
	}
	return BuildFixPromptOutput{
		System: plugins.Render(tmpl, map[string]string{
			"patch":  in.Unit.Patch,
			"issues": string(issues),
		}),
		User: "Respond with the corrected code and a short rationale for each change.",
	}, nil
}

func (a *Activities) StartRunActivity(ctx context.Context, in StartRunInput) error {
	if a.resultsRepo == nil {
		return nil
	}
	return a.resultsRepo.StartRun(ctx, in.RunID, in.Mode, in.UnitsTotal)
}

func (a *Activities) FinishRunActivity(ctx context.Context, in FinishRunInput) error {
	if a.resultsRepo == nil {
		return nil
	}
	return a.resultsRepo.FinishRun(ctx, in.RunID, in.Done, in.Failed, in.Summary)
}

func (a *Activities) RecordUnitResultActivity(ctx context.Context, in RecordUnitResultInput) error {
	if a.resultsRepo == nil {
		return nil
	}
	return a.resultsRepo.UpsertUnitResult(ctx, in.RunID, in.Result)
}

// WriteRunArtifactsActivity writes the run manifest plus JSON and SARIF
// reports under the data output root.
func (a *Activities) WriteRunArtifactsActivity(ctx context.Context, in WriteRunArtifactsInput) (WriteRunArtifactsOutput, error) {
	_ = ctx
	dir := filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID)
	if err := util.WriteJSONAtomic(filepath.Join(dir, "manifest.json"), in.Manifest); err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	if err := output.WriteJSONReport(filepath.Join(dir, "results.json"), in.RunID, in.Results); err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	if err := output.WriteSARIF(filepath.Join(dir, "findings.sarif"), in.Results); err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	var rows []any
	for _, res := range in.Results {
		for _, f := range res.Findings {
			rows = append(rows, map[string]any{
				"run_id":      in.RunID,
				"file_path":   res.FilePath,
				"issue":       f.Issue,
				"severity":    f.Severity,
				"cwe":         f.CWE,
				"confidence":  f.Confidence,
				"line_number": f.LineNumber,
			})
		}
	}
	if err := util.WriteJSONLinesAtomic(filepath.Join(dir, "findings.jsonl"), rows); err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	return WriteRunArtifactsOutput{Dir: dir}, nil
}

func (a *Activities) audit(ctx context.Context, runID, relPath, operation string, info providers.ProviderInfo, callErr error) {
	if a.auditRepo == nil {
		return
	}
	rec := storage.LLMCallRecord{
		RunID:     runID,
		FilePath:  relPath,
		Operation: operation,
		Provider:  info.Name,
		Model:     info.Model,
		Status:    "ok",
	}
	if callErr != nil {
		rec.Status = "error"
		rec.ErrorType = string(providers.ClassifyError(callErr))
	}
	if err := a.auditRepo.Insert(ctx, rec); err != nil {
		// Audit writes never fail the pipeline step they describe.
		_ = err
	}
}

func classifyProviderError(op string, err error) error {
	t := providers.ClassifyError(err)
	if providers.Retryable(t) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return temporal.NewNonRetryableApplicationError(fmt.Sprintf("%s failed", op), string(t), err)
}
