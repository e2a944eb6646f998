package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListSourceFilesActivity)
	w.RegisterActivity(a.HashFileActivity)
	w.RegisterActivity(a.GetFileStateActivity)
	w.RegisterActivity(a.ChunkFileActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.ReplaceFileChunksActivity)
	w.RegisterActivity(a.DeleteFileActivity)
	w.RegisterActivity(a.LoadUnitActivity)
	w.RegisterActivity(a.ParsePatchActivity)
	w.RegisterActivity(a.RetrieveContextActivity)
	w.RegisterActivity(a.ChatActivity)
	w.RegisterActivity(a.BuildReviewPromptsActivity)
	w.RegisterActivity(a.BuildFixPromptActivity)
	w.RegisterActivity(a.StartRunActivity)
	w.RegisterActivity(a.FinishRunActivity)
	w.RegisterActivity(a.RecordUnitResultActivity)
	w.RegisterActivity(a.WriteRunArtifactsActivity)
}
