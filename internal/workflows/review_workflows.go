package workflows

import (
	"encoding/json"
	"path"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"vigil/internal/activities"
	"vigil/internal/review"
)

const (
	QueryGetRunProgress = "GetRunProgress"
	QueryGetUnitStatus  = "GetUnitStatus"
)

const overallChangesSystem = "You are a security reviewer. Combine the per-file change explanations below into one short overview of what this changeset does and where its risk concentrates. Plain prose, no JSON."

func reviewActivityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
}

// ReviewRunWorkflow fans a set of review units out over bounded batches of
// per-unit child workflows. A failed unit is recorded and counted; it never
// aborts the rest of the run.
func ReviewRunWorkflow(ctx workflow.Context, input ReviewRunInput) (ReviewRunOutput, error) {
	runID := input.RunID
	if runID == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	progress := ReviewRunProgress{RunID: runID, PerUnit: map[string]string{}, ChildWorkflow: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetRunProgress, func() (ReviewRunProgress, error) {
		return progress, nil
	}); err != nil {
		return ReviewRunOutput{RunID: runID}, err
	}
	ctx = reviewActivityOptions(ctx)

	units, err := collectUnits(ctx, input)
	if err != nil {
		return ReviewRunOutput{RunID: runID}, err
	}
	progress.Total = len(units)
	_ = workflow.ExecuteActivity(ctx, "StartRunActivity", activities.StartRunInput{
		RunID: runID, Mode: input.Mode, UnitsTotal: len(units),
	}).Get(ctx, nil)

	maxChildren := input.MaxConcurrent
	if maxChildren <= 0 {
		maxChildren = 4
	}
	var results []review.Result
	totalFindings := 0
	for i := 0; i < len(units); i += maxChildren {
		// On cancellation no further units are dispatched; the ones never
		// started are marked so the report does not count them as failures.
		if ctx.Err() != nil {
			for _, u := range units[i:] {
				progress.PerUnit[u.RelPath] = "cancelled"
			}
			break
		}
		end := i + maxChildren
		if end > len(units) {
			end = len(units)
		}
		batch := units[i:end]
		futures := make([]workflow.ChildWorkflowFuture, 0, len(batch))
		for _, u := range batch {
			progress.PerUnit[u.RelPath] = "reviewing"
			workflowID := "unit-" + sanitizeID(u.RelPath) + "-" + sanitizeID(runID)
			progress.ChildWorkflow[u.RelPath] = workflowID
			cwo := workflow.ChildWorkflowOptions{WorkflowID: workflowID}
			futures = append(futures, workflow.ExecuteChildWorkflow(
				workflow.WithChildOptions(ctx, cwo), ReviewUnitWorkflow, ReviewUnitInput{
					RunID:          runID,
					Root:           input.Root,
					Unit:           u,
					SkipExplain:    input.SkipExplain,
					Validate:       input.Validate,
					AttemptFix:     input.AttemptFix,
					CustomGuidance: input.CustomGuidance,
				}))
		}
		for idx, f := range futures {
			var res review.Result
			rel := batch[idx].RelPath
			if err := f.Get(ctx, &res); err != nil {
				progress.Failed++
				progress.PerUnit[rel] = "failed"
				results = append(results, review.Result{
					File:       path.Base(rel),
					FilePath:   rel,
					State:      review.StateFailed,
					FailReason: err.Error(),
				})
				continue
			}
			results = append(results, res)
			if res.State == review.StateFailed {
				progress.Failed++
				progress.PerUnit[rel] = "failed"
				continue
			}
			progress.Done++
			progress.PerUnit[rel] = "done"
			totalFindings += len(res.Findings)
		}
	}

	out := ReviewRunOutput{
		RunID:    runID,
		Total:    len(units),
		Done:     progress.Done,
		Failed:   progress.Failed,
		Findings: totalFindings,
	}

	// Terminal reporting still runs after a cancellation, so the artifacts
	// capture completed-so-far progress.
	reportCtx := ctx
	if ctx.Err() != nil {
		dc, cancel := workflow.NewDisconnectedContext(ctx)
		defer cancel()
		reportCtx = dc
	}
	if input.Mode == "changes" {
		out.OverallChanges = summarizeChanges(reportCtx, runID, results)
	}

	var artifacts activities.WriteRunArtifactsOutput
	if err := workflow.ExecuteActivity(reportCtx, "WriteRunArtifactsActivity", activities.WriteRunArtifactsInput{
		RunID: runID,
		Manifest: map[string]any{
			"run_id":          runID,
			"mode":            input.Mode,
			"total":           out.Total,
			"done":            out.Done,
			"failed":          out.Failed,
			"findings":        out.Findings,
			"overall_changes": out.OverallChanges,
			"per_unit_status": progress.PerUnit,
			"generated_at":    workflow.Now(ctx),
		},
		Results: results,
	}).Get(reportCtx, &artifacts); err != nil {
		return out, err
	}
	out.ArtifactsDir = artifacts.Dir

	_ = workflow.ExecuteActivity(reportCtx, "FinishRunActivity", activities.FinishRunInput{
		RunID: runID, Done: out.Done, Failed: out.Failed, Summary: out.OverallChanges,
	}).Get(reportCtx, nil)
	return out, nil
}

func collectUnits(ctx workflow.Context, input ReviewRunInput) ([]review.Unit, error) {
	if input.Mode == "changes" {
		var patchOut activities.ParsePatchOutput
		if err := workflow.ExecuteActivity(ctx, "ParsePatchActivity", activities.ParsePatchInput{
			PatchText: input.PatchText,
		}).Get(ctx, &patchOut); err != nil {
			return nil, err
		}
		filter, err := review.NewPathFilter(input.Include, input.Exclude)
		if err != nil {
			return nil, err
		}
		units := make([]review.Unit, 0, len(patchOut.Units))
		for _, u := range patchOut.Units {
			if filter.Match(u.RelPath) {
				units = append(units, u)
			}
		}
		return units, nil
	}

	var listOut activities.ListSourceFilesOutput
	if err := workflow.ExecuteActivity(ctx, "ListSourceFilesActivity", activities.ListSourceFilesInput{
		Root:      input.Root,
		ForReview: true,
		Include:   input.Include,
		Exclude:   input.Exclude,
	}).Get(ctx, &listOut); err != nil {
		return nil, err
	}
	units := make([]review.Unit, 0, len(listOut.Files))
	for _, f := range listOut.Files {
		units = append(units, review.Unit{Mode: review.ModeFile, FilePath: f.Path, RelPath: f.RelPath})
	}
	return units, nil
}

func summarizeChanges(ctx workflow.Context, runID string, results []review.Result) string {
	var sb strings.Builder
	for _, r := range results {
		if r.Summary == "" {
			continue
		}
		sb.WriteString(r.FilePath + ":\n" + r.Summary + "\n\n")
	}
	if sb.Len() == 0 {
		return ""
	}
	var chatOut activities.ChatOutput
	if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
		Operation: "overall_changes",
		RunID:     runID,
		System:    overallChangesSystem,
		User:      sb.String(),
	}).Get(ctx, &chatOut); err != nil {
		return ""
	}
	return chatOut.Text
}

// ReviewUnitWorkflow drives one unit through the review pipeline. Terminal
// failures come back as a FAILED result rather than a workflow error so the
// parent can keep processing the batch.
func ReviewUnitWorkflow(ctx workflow.Context, input ReviewUnitInput) (review.Result, error) {
	result := review.Result{
		File:     path.Base(input.Unit.RelPath),
		FilePath: input.Unit.RelPath,
		State:    review.StatePending,
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetUnitStatus, func() (review.Result, error) {
		return result, nil
	}); err != nil {
		return result, err
	}
	ctx = reviewActivityOptions(ctx)

	fail := func(reason string) (review.Result, error) {
		result.State = review.StateFailed
		result.FailReason = reason
		_ = workflow.ExecuteActivity(ctx, "RecordUnitResultActivity", activities.RecordUnitResultInput{
			RunID: input.RunID, Result: result,
		}).Get(ctx, nil)
		return result, nil
	}
	advance := func(next review.State) {
		if result.State.CanAdvance(next) {
			result.State = next
		}
	}

	unit := input.Unit
	if unit.Mode == review.ModeFile && unit.Snippet == "" {
		var loadOut activities.LoadUnitOutput
		if err := workflow.ExecuteActivity(ctx, "LoadUnitActivity", activities.LoadUnitInput{
			Root: input.Root, RelPath: unit.RelPath,
		}).Get(ctx, &loadOut); err != nil {
			return fail("load unit: " + err.Error())
		}
		if !loadOut.Supported {
			return fail("no language profile for file")
		}
		unit = loadOut.Unit
	}

	retrieved, err := retrieveWithReindex(ctx, input.Root, activities.RetrieveContextInput{
		RunID:   input.RunID,
		RelPath: unit.RelPath,
		Snippet: unit.Snippet,
	})
	if err != nil {
		return fail("retrieve context: " + err.Error())
	}
	advance(review.StateContextRetrieved)

	var prompts activities.BuildReviewPromptsOutput
	if err := workflow.ExecuteActivity(ctx, "BuildReviewPromptsActivity", activities.BuildReviewPromptsInput{
		Unit:           unit,
		ContextText:    retrieved.ContextText,
		CustomGuidance: input.CustomGuidance,
	}).Get(ctx, &prompts); err != nil {
		return fail("build prompts: " + err.Error())
	}

	if unit.Mode == review.ModeChange && !input.SkipExplain {
		var explainOut activities.ChatOutput
		if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
			Operation: "explain_changes",
			RunID:     input.RunID,
			RelPath:   unit.RelPath,
			System:    prompts.ExplainSystem,
			User:      unit.Patch,
		}).Get(ctx, &explainOut); err != nil {
			return fail("explain changes: " + err.Error())
		}
		result.Summary = explainOut.Text
		advance(review.StateExplained)
		// The explanation becomes part of the review context, so the prompt
		// is rebuilt once it exists.
		if strings.TrimSpace(explainOut.Text) != "" {
			if err := workflow.ExecuteActivity(ctx, "BuildReviewPromptsActivity", activities.BuildReviewPromptsInput{
				Unit:           unit,
				ContextText:    retrieved.ContextText,
				ExplainSummary: explainOut.Text,
				CustomGuidance: input.CustomGuidance,
			}).Get(ctx, &prompts); err != nil {
				return fail("build prompts: " + err.Error())
			}
		}
	}

	findings, parseFailures, err := reviewWithParseRetry(ctx, input, prompts)
	if err != nil {
		return fail("security review: " + err.Error())
	}
	result.ParseFailures = parseFailures
	findings = review.Dedup(findings)
	findings = review.Enrich(findings, unit.Snippet)
	advance(review.StateReviewed)

	if input.Validate && len(findings) > 0 {
		validated, vFailures, err := validateFindings(ctx, input, prompts, findings)
		if err != nil {
			return fail("validation review: " + err.Error())
		}
		result.ParseFailures += vFailures
		findings = validated
	}
	advance(review.StateValidated)

	if unit.Mode == review.ModeChange && input.AttemptFix && len(findings) > 0 {
		var fixPrompt activities.BuildFixPromptOutput
		if err := workflow.ExecuteActivity(ctx, "BuildFixPromptActivity", activities.BuildFixPromptInput{
			Unit: unit, Findings: findings,
		}).Get(ctx, &fixPrompt); err != nil {
			return fail("build fix prompt: " + err.Error())
		}
		var fixOut activities.ChatOutput
		if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
			Operation: "attempt_fix",
			RunID:     input.RunID,
			RelPath:   unit.RelPath,
			System:    fixPrompt.System,
			User:      fixPrompt.User,
		}).Get(ctx, &fixOut); err != nil {
			return fail("attempt fix: " + err.Error())
		}
		result.ProposedFix = fixOut.Text
		advance(review.StateFixAttempted)
	}

	if len(findings) > 0 && prompts.SummarySystem != "" && result.Summary == "" {
		payload, _ := json.MarshalIndent(findings, "", "  ")
		var sumOut activities.ChatOutput
		if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
			Operation: "snippet_security_summary",
			RunID:     input.RunID,
			RelPath:   unit.RelPath,
			System:    prompts.SummarySystem,
			User:      string(payload),
		}).Get(ctx, &sumOut); err == nil {
			result.Summary = sumOut.Text
		}
	}

	result.Findings = findings
	advance(review.StateDone)
	if err := workflow.ExecuteActivity(ctx, "RecordUnitResultActivity", activities.RecordUnitResultInput{
		RunID: input.RunID, Result: result,
	}).Get(ctx, nil); err != nil {
		return result, err
	}
	return result, nil
}

// retrieveWithReindex retrieves context, re-indexing any files whose stored
// embeddings no longer match the active model, then retries exactly once.
func retrieveWithReindex(ctx workflow.Context, root string, in activities.RetrieveContextInput) (activities.RetrieveContextOutput, error) {
	var out activities.RetrieveContextOutput
	if err := workflow.ExecuteActivity(ctx, "RetrieveContextActivity", in).Get(ctx, &out); err != nil {
		return out, err
	}
	if len(out.Stale) == 0 {
		return out, nil
	}
	for _, stale := range out.Stale {
		cwo := workflow.ChildWorkflowOptions{
			WorkflowID: "reembed-" + sanitizeID(stale.RelPath) + "-" + workflow.GetInfo(ctx).WorkflowExecution.RunID,
		}
		var status string
		if err := workflow.ExecuteChildWorkflow(
			workflow.WithChildOptions(ctx, cwo), IndexFileWorkflow, IndexFileInput{
				Root:     root,
				RelPath:  stale.RelPath,
				Category: stale.Category,
				Force:    true,
			}).Get(ctx, &status); err != nil {
			return out, err
		}
	}
	if err := workflow.ExecuteActivity(ctx, "RetrieveContextActivity", in).Get(ctx, &out); err != nil {
		return out, err
	}
	if len(out.Stale) > 0 {
		return out, temporal.NewApplicationError("index still stale after re-embedding", "stale_index")
	}
	return out, nil
}

// reviewWithParseRetry runs the review call and, if the reply is not valid
// JSON, retries exactly once with the broken reply quoted back. A second
// parse failure yields zero findings, not a failed unit.
func reviewWithParseRetry(ctx workflow.Context, input ReviewUnitInput, prompts activities.BuildReviewPromptsOutput) ([]review.Finding, int, error) {
	var chatOut activities.ChatOutput
	if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
		Operation: "security_review",
		RunID:     input.RunID,
		RelPath:   input.Unit.RelPath,
		System:    prompts.ReviewSystem,
		User:      prompts.ReviewUser,
	}).Get(ctx, &chatOut); err != nil {
		return nil, 0, err
	}
	findings, parseErr := review.ParseFindings(chatOut.Text)
	if parseErr == nil {
		return findings, 0, nil
	}

	retryUser := prompts.ReviewUser +
		"\n\nYour previous reply could not be parsed:\n" + chatOut.Text +
		"\n\nReturn only a valid JSON object with a \"reviews\" array."
	if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
		Operation: "security_review",
		RunID:     input.RunID,
		RelPath:   input.Unit.RelPath,
		System:    prompts.ReviewSystem,
		User:      retryUser,
	}).Get(ctx, &chatOut); err != nil {
		return nil, 1, err
	}
	findings, parseErr = review.ParseFindings(chatOut.Text)
	if parseErr != nil {
		return nil, 2, nil
	}
	return findings, 1, nil
}

// validateFindings runs the second-pass validation and filters the original
// findings down to the confirmed subset. An unparseable validation reply,
// even after one retry, keeps the original findings rather than inventing
// or silently dropping them.
func validateFindings(ctx workflow.Context, input ReviewUnitInput, prompts activities.BuildReviewPromptsOutput, findings []review.Finding) ([]review.Finding, int, error) {
	payload, err := json.MarshalIndent(struct {
		Reviews []review.Finding `json:"reviews"`
	}{Reviews: findings}, "", "  ")
	if err != nil {
		return nil, 0, err
	}
	user := "FINDINGS TO VALIDATE:\n" + string(payload) + "\n\n" + prompts.ReviewUser

	var chatOut activities.ChatOutput
	if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
		Operation: "validation_review",
		RunID:     input.RunID,
		RelPath:   input.Unit.RelPath,
		System:    prompts.ValidationSystem,
		User:      user,
	}).Get(ctx, &chatOut); err != nil {
		return nil, 0, err
	}
	validated, parseErr := review.ParseFindings(chatOut.Text)
	if parseErr == nil {
		return review.ApplyValidation(findings, validated), 0, nil
	}

	retryUser := user + "\n\nYour previous reply could not be parsed:\n" + chatOut.Text +
		"\n\nReturn only a valid JSON object with a \"reviews\" array."
	if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
		Operation: "validation_review",
		RunID:     input.RunID,
		RelPath:   input.Unit.RelPath,
		System:    prompts.ValidationSystem,
		User:      retryUser,
	}).Get(ctx, &chatOut); err != nil {
		return nil, 1, err
	}
	validated, parseErr = review.ParseFindings(chatOut.Text)
	if parseErr != nil {
		return findings, 2, nil
	}
	return review.ApplyValidation(findings, validated), 1, nil
}
