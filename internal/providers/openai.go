package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider speaks the OpenAI REST API, or any compatible endpoint
// when a base URL is configured.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	chat    string
	embed   string
	client  *http.Client
}

func NewOpenAIProvider(s Settings) *OpenAIProvider {
	baseURL := strings.TrimRight(s.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	chat := s.ChatModel
	if chat == "" {
		chat = "gpt-4o-mini"
	}
	embed := s.CodeEmbedModel
	if embed == "" {
		embed = "text-embedding-3-small"
	}
	return &OpenAIProvider{
		baseURL: baseURL,
		apiKey:  s.APIKey,
		chat:    chat,
		embed:   embed,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.chat}
	if o.apiKey == "" {
		return ChatResponse{}, info, fmt.Errorf("openai key missing")
	}
	payload, _ := json.Marshal(map[string]any{
		"model": o.chat,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
	})
	body, err := o.post(ctx, "/chat/completions", payload)
	if err != nil {
		return ChatResponse{}, info, err
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ChatResponse{}, info, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return ChatResponse{}, info, fmt.Errorf("openai returned empty choices")
	}
	return ChatResponse{Text: parsed.Choices[0].Message.Content}, info, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	model := req.Model
	if model == "" {
		model = o.embed
	}
	info := ProviderInfo{Name: "openai", Model: model}
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing")
	}
	payload, _ := json.Marshal(map[string]any{"model": model, "input": req.Inputs})
	body, err := o.post(ctx, "/embeddings", payload)
	if err != nil {
		return nil, info, err
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode embedding response: %w", err)
	}
	out := make([][]float32, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

func (o *OpenAIProvider) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
