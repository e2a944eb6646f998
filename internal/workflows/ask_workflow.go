package workflows

import (
	"go.temporal.io/sdk/workflow"

	"vigil/internal/activities"
)

const askSystem = "You are a security-minded assistant answering questions about a codebase. Ground every claim in the retrieved context below; say so plainly when the context does not cover the question."

// AskWorkflow answers an ad-hoc question against the index. It shares the
// staleness re-embedding path with unit review and tolerates an empty index
// by answering from the question alone.
func AskWorkflow(ctx workflow.Context, input AskInput) (AskOutput, error) {
	ctx = reviewActivityOptions(ctx)

	retrieved, err := retrieveWithReindex(ctx, input.Root, activities.RetrieveContextInput{
		Snippet: input.Question,
	})
	if err != nil {
		return AskOutput{}, err
	}

	user := "QUESTION:\n" + input.Question
	if retrieved.ContextText != "" {
		user += "\n\nCONTEXT:\n" + retrieved.ContextText
	}
	var chatOut activities.ChatOutput
	if err := workflow.ExecuteActivity(ctx, "ChatActivity", activities.ChatInput{
		Operation: "ask",
		System:    askSystem,
		User:      user,
	}).Get(ctx, &chatOut); err != nil {
		return AskOutput{}, err
	}
	return AskOutput{Answer: chatOut.Text, ContextText: retrieved.ContextText}, nil
}
