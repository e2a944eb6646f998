package providers

import (
	"context"
	"math"
	"testing"

	"vigil/internal/review"
)

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMockProvider(16)
	a, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"func main() {}"}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"func main() {}"}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != 1 || len(a[0]) != 16 {
		t.Fatalf("expected one 16-dim vector, got %d x %d", len(a), len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("same input produced different vectors at index %d", i)
		}
	}
	c, _, _ := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"different input"}})
	same := true
	for i := range a[0] {
		if a[0][i] != c[0][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different inputs produced identical vectors")
	}
}

func TestMockEmbedUnitLength(t *testing.T) {
	m := NewMockProvider(32)
	vecs, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"some chunk of code"}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var sum float64
	for _, x := range vecs[0] {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1.0) > 1e-5 {
		t.Fatalf("vector is not unit length: %v", norm)
	}
}

func TestMockEmbedDimensionOverride(t *testing.T) {
	m := NewMockProvider(16)
	vecs, info, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"x"}, Dimension: 4})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs[0]) != 4 {
		t.Fatalf("dimension override ignored: %d", len(vecs[0]))
	}
	if info.Model != "mock-embed-4" {
		t.Fatalf("unexpected model name %q", info.Model)
	}
}

func TestMockChatReviewParses(t *testing.T) {
	m := NewMockProvider(0)
	resp, info, err := m.Chat(context.Background(), ChatRequest{Operation: "security_review"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if info.Name != "mock" {
		t.Fatalf("unexpected provider name %q", info.Name)
	}
	findings, err := review.ParseFindings(resp.Text)
	if err != nil {
		t.Fatalf("mock review output must parse: %v", err)
	}
	if len(findings) != 1 || findings[0].CWE != "CWE-798" {
		t.Fatalf("unexpected canned finding: %+v", findings)
	}
}
