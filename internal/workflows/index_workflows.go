package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"vigil/internal/activities"
)

const QueryGetIndexProgress = "GetIndexProgress"

func indexActivityOptions(ctx workflow.Context) workflow.Context {
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

// IndexCodebaseWorkflow walks the codebase and indexes every supported file
// through bounded batches of per-file child workflows. A single file failing
// never stops the rest.
func IndexCodebaseWorkflow(ctx workflow.Context, input IndexCodebaseInput) (IndexProgress, error) {
	progress := IndexProgress{PerFile: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetIndexProgress, func() (IndexProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}
	ctx = indexActivityOptions(ctx)

	var listOut activities.ListSourceFilesOutput
	if err := workflow.ExecuteActivity(ctx, "ListSourceFilesActivity", activities.ListSourceFilesInput{
		Root: input.Root,
	}).Get(ctx, &listOut); err != nil {
		return progress, err
	}
	progress.Total = len(listOut.Files)

	maxChildren := input.MaxConcurrent
	if maxChildren <= 0 {
		maxChildren = 4
	}
	files := listOut.Files
	for i := 0; i < len(files); i += maxChildren {
		end := i + maxChildren
		if end > len(files) {
			end = len(files)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		batch := files[i:end]
		for _, f := range batch {
			progress.PerFile[f.RelPath] = "indexing"
			cwo := workflow.ChildWorkflowOptions{
				WorkflowID: "index-" + sanitizeID(f.RelPath) + "-" + workflow.GetInfo(ctx).WorkflowExecution.RunID,
			}
			futures = append(futures, workflow.ExecuteChildWorkflow(
				workflow.WithChildOptions(ctx, cwo), IndexFileWorkflow, IndexFileInput{
					Root:     input.Root,
					RelPath:  f.RelPath,
					Category: f.Category,
					Force:    input.Force,
				}))
		}
		for idx, f := range futures {
			var status string
			if err := f.Get(ctx, &status); err != nil {
				progress.Failed++
				progress.PerFile[batch[idx].RelPath] = "failed"
				continue
			}
			progress.PerFile[batch[idx].RelPath] = status
			switch status {
			case "indexed":
				progress.Indexed++
			default:
				progress.Skipped++
			}
		}
	}
	return progress, nil
}

// IndexFileWorkflow indexes one file: hashing, an up-to-date check, then
// chunk, embed and a transactional replace of the previous generation. An
// unchanged file under the same embedding settings is a no-op.
func IndexFileWorkflow(ctx workflow.Context, input IndexFileInput) (string, error) {
	ctx = indexActivityOptions(ctx)
	path := input.Root + "/" + input.RelPath

	var hashOut activities.HashFileOutput
	if err := workflow.ExecuteActivity(ctx, "HashFileActivity", activities.HashFileInput{Path: path}).Get(ctx, &hashOut); err != nil {
		return "", err
	}
	if input.Category != "" && !input.Force {
		var state activities.FileStateOutput
		if err := workflow.ExecuteActivity(ctx, "GetFileStateActivity", activities.FileStateInput{
			Category: input.Category,
			RelPath:  input.RelPath,
			Hash:     hashOut.Hash,
		}).Get(ctx, &state); err != nil {
			return "", err
		}
		if state.UpToDate {
			return "skipped", nil
		}
	}

	var chunkOut activities.ChunkFileOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkFileActivity", activities.ChunkFileInput{
		Path:    path,
		RelPath: input.RelPath,
	}).Get(ctx, &chunkOut); err != nil {
		return "", err
	}
	if input.Category == "" && !input.Force {
		var state activities.FileStateOutput
		if err := workflow.ExecuteActivity(ctx, "GetFileStateActivity", activities.FileStateInput{
			Category: chunkOut.Category,
			RelPath:  input.RelPath,
			Hash:     chunkOut.Hash,
		}).Get(ctx, &state); err != nil {
			return "", err
		}
		if state.UpToDate {
			return "skipped", nil
		}
	}
	if len(chunkOut.Chunks) == 0 {
		if err := workflow.ExecuteActivity(ctx, "DeleteFileActivity", activities.DeleteFileInput{
			Category: chunkOut.Category,
			RelPath:  input.RelPath,
		}).Get(ctx, nil); err != nil {
			return "", err
		}
		return "empty", nil
	}

	texts := make([]string, 0, len(chunkOut.Chunks))
	for _, c := range chunkOut.Chunks {
		texts = append(texts, c.Text)
	}
	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{
		Operation: "index_embed",
		Category:  chunkOut.Category,
		RelPath:   input.RelPath,
		Texts:     texts,
	}).Get(ctx, &embedOut); err != nil {
		return "", err
	}

	if err := workflow.ExecuteActivity(ctx, "ReplaceFileChunksActivity", activities.ReplaceFileChunksInput{
		Category: chunkOut.Category,
		RelPath:  input.RelPath,
		Hash:     chunkOut.Hash,
		Chunks:   chunkOut.Chunks,
		Vectors:  embedOut.Vectors,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	return "indexed", nil
}

// UpdateIndexWorkflow applies a patch to the index: deleted files are
// dropped, every other touched file is re-indexed.
func UpdateIndexWorkflow(ctx workflow.Context, input UpdateIndexInput) (IndexProgress, error) {
	progress := IndexProgress{PerFile: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetIndexProgress, func() (IndexProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}
	ctx = indexActivityOptions(ctx)

	var patchOut activities.ParsePatchOutput
	if err := workflow.ExecuteActivity(ctx, "ParsePatchActivity", activities.ParsePatchInput{
		PatchText: input.PatchText,
	}).Get(ctx, &patchOut); err != nil {
		return progress, err
	}
	progress.Total = len(patchOut.Units) + len(patchOut.Deleted)

	for _, path := range patchOut.Deleted {
		if err := workflow.ExecuteActivity(ctx, "DeleteFileActivity", activities.DeleteFileInput{
			RelPath: path,
		}).Get(ctx, nil); err != nil {
			progress.Failed++
			progress.PerFile[path] = "failed"
			continue
		}
		progress.Indexed++
		progress.PerFile[path] = "deleted"
	}

	maxChildren := input.MaxConcurrent
	if maxChildren <= 0 {
		maxChildren = 4
	}
	units := patchOut.Units
	for i := 0; i < len(units); i += maxChildren {
		end := i + maxChildren
		if end > len(units) {
			end = len(units)
		}
		batch := units[i:end]
		futures := make([]workflow.ChildWorkflowFuture, 0, len(batch))
		for _, u := range batch {
			progress.PerFile[u.RelPath] = "indexing"
			cwo := workflow.ChildWorkflowOptions{
				WorkflowID: "reindex-" + sanitizeID(u.RelPath) + "-" + workflow.GetInfo(ctx).WorkflowExecution.RunID,
			}
			futures = append(futures, workflow.ExecuteChildWorkflow(
				workflow.WithChildOptions(ctx, cwo), IndexFileWorkflow, IndexFileInput{
					Root:    input.Root,
					RelPath: u.RelPath,
					Force:   true,
				}))
		}
		for idx, f := range futures {
			var status string
			if err := f.Get(ctx, &status); err != nil {
				progress.Failed++
				progress.PerFile[batch[idx].RelPath] = "failed"
				continue
			}
			progress.Indexed++
			progress.PerFile[batch[idx].RelPath] = status
		}
	}
	return progress, nil
}

func sanitizeID(s string) string {
	r := strings.NewReplacer("/", "-", "\\", "-", " ", "-", ":", "-", "#", "-")
	return strings.Trim(r.Replace(s), "-")
}
