package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(IndexCodebaseWorkflow)
	w.RegisterWorkflow(IndexFileWorkflow)
	w.RegisterWorkflow(UpdateIndexWorkflow)
	w.RegisterWorkflow(ReviewRunWorkflow)
	w.RegisterWorkflow(ReviewUnitWorkflow)
	w.RegisterWorkflow(AskWorkflow)
}
