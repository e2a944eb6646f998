package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// MockProvider serves deterministic embeddings and canned review JSON so
// the full pipeline runs offline with stable results.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

const mockReviewJSON = `{"reviews": [{"issue": "Hardcoded credential", "code_snippet": "password = \"hunter2\"", "reasoning": "A literal secret in source ends up in version control and binaries.", "mitigation": "Load the credential from the environment or a secret store.", "confidence": 0.8, "cwe": "CWE-798", "severity": "HIGH"}]}`

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-chat-v1", Key: "mock"}
	op := strings.ToLower(req.Operation)
	switch {
	case strings.Contains(op, "validation"):
		return ChatResponse{Text: mockReviewJSON}, info, nil
	case strings.Contains(op, "review"):
		return ChatResponse{Text: mockReviewJSON}, info, nil
	case strings.Contains(op, "fix"):
		return ChatResponse{Text: "Replace the literal secret with os.Getenv and fail startup when unset."}, info, nil
	case strings.Contains(op, "explain"):
		return ChatResponse{Text: "Deterministic summary: the change touches input handling and credential use."}, info, nil
	case strings.Contains(op, "summary"), strings.Contains(op, "ask"):
		return ChatResponse{Text: "Deterministic answer grounded in retrieved chunks."}, info, nil
	default:
		return ChatResponse{Text: "Mock response."}, info, nil
	}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(u%2000)/1000.0 - 1.0
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
