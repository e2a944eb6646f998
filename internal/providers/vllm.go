package providers

import (
	"context"
	"fmt"
)

// VLLMProvider targets a vLLM server, which exposes the OpenAI-compatible
// API. Unlike the hosted provider there is no default endpoint, so the base
// URL is required.
type VLLMProvider struct {
	inner *OpenAIProvider
}

func NewVLLMProvider(s Settings) (*VLLMProvider, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("vllm provider requires a base URL")
	}
	if s.APIKey == "" {
		// vLLM accepts any bearer token unless --api-key is set.
		s.APIKey = "vllm"
	}
	return &VLLMProvider{inner: NewOpenAIProvider(s)}, nil
}

func (v *VLLMProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	resp, info, err := v.inner.Chat(ctx, req)
	info.Name = "vllm"
	return resp, info, err
}

func (v *VLLMProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	vecs, info, err := v.inner.Embed(ctx, req)
	info.Name = "vllm"
	return vecs, info, err
}
