package providers

import (
	"strings"
	"testing"
)

func TestResolveMock(t *testing.T) {
	caps, err := Resolve("mock", Settings{EmbedDim: 8})
	if err != nil {
		t.Fatalf("resolve mock: %v", err)
	}
	if caps.Chat == nil || caps.CodeEmbedder == nil || caps.DocsEmbedder == nil {
		t.Fatalf("mock provider must serve all capabilities")
	}
}

func TestResolveUnknownListsNames(t *testing.T) {
	_, err := Resolve("no-such-provider", Settings{})
	if err == nil {
		t.Fatalf("unknown provider must fail")
	}
	if !strings.Contains(err.Error(), "mock") {
		t.Fatalf("error should list registered providers: %v", err)
	}
}

func TestResolveLazy(t *testing.T) {
	caps, err := Resolve("ollama", Settings{})
	if err != nil {
		t.Fatalf("resolve ollama: %v", err)
	}
	if caps.Chat == nil {
		t.Fatalf("lazy provider resolved without chat capability")
	}
	// The second resolve goes through the cached factory.
	if _, err := Resolve("ollama", Settings{}); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
}

func TestRegisterOverrides(t *testing.T) {
	Register("fake-for-test", func(s Settings) (Capabilities, error) {
		return Capabilities{Chat: NewMockProvider(4)}, nil
	})
	caps, err := Resolve("fake-for-test", Settings{})
	if err != nil || caps.Chat == nil {
		t.Fatalf("test fake not resolvable: %v", err)
	}
}

func TestResolveVLLMRequiresBaseURL(t *testing.T) {
	if _, err := Resolve("vllm", Settings{}); err == nil {
		t.Fatalf("vllm without base URL must fail")
	}
	caps, err := Resolve("vllm", Settings{BaseURL: "http://localhost:8000/v1"})
	if err != nil {
		t.Fatalf("resolve vllm: %v", err)
	}
	if caps.Chat == nil {
		t.Fatalf("vllm provider missing chat capability")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
