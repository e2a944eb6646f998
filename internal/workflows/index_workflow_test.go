package workflows

import (
	"context"
	"testing"

	"vigil/internal/activities"
	"vigil/internal/review"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func registerIndexActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ListSourceFilesActivity", func(context.Context, activities.ListSourceFilesInput) (activities.ListSourceFilesOutput, error) {
		return activities.ListSourceFilesOutput{}, nil
	})
	registerActivityName(env, "HashFileActivity", func(context.Context, activities.HashFileInput) (activities.HashFileOutput, error) {
		return activities.HashFileOutput{}, nil
	})
	registerActivityName(env, "GetFileStateActivity", func(context.Context, activities.FileStateInput) (activities.FileStateOutput, error) {
		return activities.FileStateOutput{}, nil
	})
	registerActivityName(env, "ChunkFileActivity", func(context.Context, activities.ChunkFileInput) (activities.ChunkFileOutput, error) {
		return activities.ChunkFileOutput{}, nil
	})
	registerActivityName(env, "EmbedChunksActivity", func(context.Context, activities.EmbedChunksInput) (activities.EmbedChunksOutput, error) {
		return activities.EmbedChunksOutput{}, nil
	})
	registerActivityName(env, "ReplaceFileChunksActivity", func(context.Context, activities.ReplaceFileChunksInput) error { return nil })
	registerActivityName(env, "DeleteFileActivity", func(context.Context, activities.DeleteFileInput) error { return nil })
	registerActivityName(env, "ParsePatchActivity", func(context.Context, activities.ParsePatchInput) (activities.ParsePatchOutput, error) {
		return activities.ParsePatchOutput{}, nil
	})
}

func TestIndexFileWorkflowSkipsUpToDate(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(IndexFileWorkflow)
	registerIndexActivities(env)

	env.OnActivity("HashFileActivity", mock.Anything, activities.HashFileInput{Path: "/repo/pkg/a.go"}).Return(activities.HashFileOutput{Hash: "h1"}, nil)
	env.OnActivity("GetFileStateActivity", mock.Anything, activities.FileStateInput{
		Category: "code", RelPath: "pkg/a.go", Hash: "h1",
	}).Return(activities.FileStateOutput{Indexed: true, UpToDate: true}, nil)

	env.ExecuteWorkflow(IndexFileWorkflow, IndexFileInput{Root: "/repo", RelPath: "pkg/a.go", Category: "code"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var status string
	require.NoError(t, env.GetWorkflowResult(&status))
	require.Equal(t, "skipped", status)
	env.AssertNotCalled(t, "EmbedChunksActivity", mock.Anything, mock.Anything)
}

func TestIndexFileWorkflowIndexesChangedFile(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(IndexFileWorkflow)
	registerIndexActivities(env)

	env.OnActivity("HashFileActivity", mock.Anything, mock.Anything).Return(activities.HashFileOutput{Hash: "h2"}, nil)
	env.OnActivity("GetFileStateActivity", mock.Anything, mock.Anything).Return(activities.FileStateOutput{Indexed: true, UpToDate: false}, nil)
	env.OnActivity("ChunkFileActivity", mock.Anything, mock.Anything).Return(activities.ChunkFileOutput{
		Category: "code", Hash: "h2", Chunks: []activities.ChunkItem{
			{Index: 0, StartLine: 0, EndLine: 40, Text: "first"},
			{Index: 1, StartLine: 25, EndLine: 45, Text: "second"},
		},
	}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.MatchedBy(func(in activities.EmbedChunksInput) bool {
		return in.Operation == "index_embed" && len(in.Texts) == 2
	})).Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.1}, {0.2}}, Provider: "mock", Model: "m"}, nil)
	env.OnActivity("ReplaceFileChunksActivity", mock.Anything, mock.MatchedBy(func(in activities.ReplaceFileChunksInput) bool {
		return in.Hash == "h2" && len(in.Chunks) == 2 && len(in.Vectors) == 2
	})).Return(nil)

	env.ExecuteWorkflow(IndexFileWorkflow, IndexFileInput{Root: "/repo", RelPath: "pkg/a.go", Category: "code"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var status string
	require.NoError(t, env.GetWorkflowResult(&status))
	require.Equal(t, "indexed", status)
}

func TestIndexFileWorkflowEmptyFileDropsIndexEntry(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(IndexFileWorkflow)
	registerIndexActivities(env)

	env.OnActivity("HashFileActivity", mock.Anything, mock.Anything).Return(activities.HashFileOutput{Hash: "h3"}, nil)
	env.OnActivity("ChunkFileActivity", mock.Anything, mock.Anything).Return(activities.ChunkFileOutput{Category: "docs", Hash: "h3"}, nil)
	env.OnActivity("DeleteFileActivity", mock.Anything, activities.DeleteFileInput{Category: "docs", RelPath: "notes.md"}).Return(nil)

	env.ExecuteWorkflow(IndexFileWorkflow, IndexFileInput{Root: "/repo", RelPath: "notes.md", Category: "docs", Force: true})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var status string
	require.NoError(t, env.GetWorkflowResult(&status))
	require.Equal(t, "empty", status)
}

func TestIndexCodebaseWorkflowCountsOutcomes(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(IndexCodebaseWorkflow)
	env.RegisterWorkflow(IndexFileWorkflow)
	registerIndexActivities(env)

	env.OnActivity("ListSourceFilesActivity", mock.Anything, mock.Anything).Return(activities.ListSourceFilesOutput{Files: []activities.SourceFile{
		{Path: "/repo/a.go", RelPath: "a.go", Category: "code"},
		{Path: "/repo/b.go", RelPath: "b.go", Category: "code"},
	}}, nil)
	env.OnActivity("HashFileActivity", mock.Anything, mock.Anything).Return(activities.HashFileOutput{Hash: "h"}, nil)
	env.OnActivity("GetFileStateActivity", mock.Anything, mock.MatchedBy(func(in activities.FileStateInput) bool {
		return in.RelPath == "a.go"
	})).Return(activities.FileStateOutput{Indexed: true, UpToDate: true}, nil)
	env.OnActivity("GetFileStateActivity", mock.Anything, mock.MatchedBy(func(in activities.FileStateInput) bool {
		return in.RelPath == "b.go"
	})).Return(activities.FileStateOutput{}, nil)
	env.OnActivity("ChunkFileActivity", mock.Anything, mock.Anything).Return(activities.ChunkFileOutput{
		Category: "code", Hash: "h", Chunks: []activities.ChunkItem{{Index: 0, EndLine: 1, Text: "x"}},
	}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.5}}}, nil)
	env.OnActivity("ReplaceFileChunksActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(IndexCodebaseWorkflow, IndexCodebaseInput{Root: "/repo"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var progress IndexProgress
	require.NoError(t, env.GetWorkflowResult(&progress))
	require.Equal(t, 2, progress.Total)
	require.Equal(t, 1, progress.Indexed)
	require.Equal(t, 1, progress.Skipped)
	require.Zero(t, progress.Failed)
}

func TestUpdateIndexWorkflowDeletesAndReindexes(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(UpdateIndexWorkflow)
	env.RegisterWorkflow(IndexFileWorkflow)
	registerIndexActivities(env)

	env.OnActivity("ParsePatchActivity", mock.Anything, mock.Anything).Return(activities.ParsePatchOutput{
		Units:   []review.Unit{{Mode: review.ModeChange, RelPath: "src/auth.c", Snippet: "+x", Patch: "+x"}},
		Deleted: []string{"src/old.c"},
	}, nil)
	env.OnActivity("DeleteFileActivity", mock.Anything, activities.DeleteFileInput{RelPath: "src/old.c"}).Return(nil)
	env.OnActivity("HashFileActivity", mock.Anything, activities.HashFileInput{Path: "/repo/src/auth.c"}).Return(activities.HashFileOutput{Hash: "h4"}, nil)
	env.OnActivity("ChunkFileActivity", mock.Anything, mock.Anything).Return(activities.ChunkFileOutput{
		Category: "code", Hash: "h4", Chunks: []activities.ChunkItem{{Index: 0, EndLine: 1, Text: "x"}},
	}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.5}}}, nil)
	env.OnActivity("ReplaceFileChunksActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(UpdateIndexWorkflow, UpdateIndexInput{Root: "/repo", PatchText: "diff"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var progress IndexProgress
	require.NoError(t, env.GetWorkflowResult(&progress))
	require.Equal(t, 2, progress.Total)
	require.Equal(t, 2, progress.Indexed)
	require.Equal(t, "deleted", progress.PerFile["src/old.c"])
	require.Equal(t, "indexed", progress.PerFile["src/auth.c"])
	env.AssertCalled(t, "DeleteFileActivity", mock.Anything, activities.DeleteFileInput{RelPath: "src/old.c"})
}
