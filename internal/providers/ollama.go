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

// OllamaProvider runs against a local Ollama daemon. Embeddings go one
// input per request because the legacy embeddings endpoint is not batched.
type OllamaProvider struct {
	baseURL string
	chat    string
	embed   string
	client  *http.Client
}

func NewOllamaProvider(s Settings) *OllamaProvider {
	baseURL := strings.TrimRight(s.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	chat := s.ChatModel
	if chat == "" {
		chat = "llama3.1"
	}
	embed := s.CodeEmbedModel
	if embed == "" {
		embed = "nomic-embed-text"
	}
	return &OllamaProvider{
		baseURL: baseURL,
		chat:    chat,
		embed:   embed,
		client:  &http.Client{Timeout: 180 * time.Second},
	}
}

func (o *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.chat}
	payload, _ := json.Marshal(map[string]any{
		"model":  o.chat,
		"stream": false,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
	})
	body, err := o.post(ctx, "/api/chat", payload)
	if err != nil {
		return ChatResponse{}, info, err
	}
	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ChatResponse{}, info, fmt.Errorf("decode chat response: %w", err)
	}
	return ChatResponse{Text: parsed.Message.Content}, info, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	model := req.Model
	if model == "" {
		model = o.embed
	}
	info := ProviderInfo{Name: "ollama", Model: model}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	out := make([][]float32, 0, len(req.Inputs))
	for _, text := range req.Inputs {
		payload, _ := json.Marshal(map[string]any{"model": model, "prompt": text})
		body, err := o.post(ctx, "/api/embeddings", payload)
		if err != nil {
			return nil, info, err
		}
		var parsed struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, info, fmt.Errorf("decode embedding response: %w", err)
		}
		out = append(out, parsed.Embedding)
	}
	return out, info, nil
}

func (o *OllamaProvider) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
