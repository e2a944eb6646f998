package providers

import "context"

// ProviderInfo identifies which provider and model served a call. It is
// recorded in the LLM call audit alongside the payload.
type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type ChatRequest struct {
	Operation string `json:"operation"`
	System    string `json:"system"`
	User      string `json:"user"`
}

type ChatResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Model     string   `json:"model"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error)
}

type Embedder interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

// Capabilities groups the models one configured provider exposes. Code and
// docs embedders may be the same underlying model or differ per profile.
type Capabilities struct {
	Chat         ChatModel
	CodeEmbedder Embedder
	DocsEmbedder Embedder
}

// Settings carries the provider-facing slice of configuration so providers
// never read the environment themselves.
type Settings struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	CodeEmbedModel string
	DocsEmbedModel string
	EmbedDim       int
}
