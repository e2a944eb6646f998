package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider's capabilities from settings.
type Factory func(Settings) (Capabilities, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
	lazy      = map[string]func() Factory{}
)

// Register installs a factory under a provider name. Later registrations
// for the same name win, which lets tests install fakes.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[name] = f
	delete(lazy, name)
}

// RegisterLazy defers constructing the factory until the provider is first
// resolved, so providers with heavy setup cost nothing unless selected.
func RegisterLazy(name string, load func() Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	lazy[name] = load
	delete(factories, name)
}

// Resolve looks up a named provider and builds its capabilities. Unknown
// names report the registered alternatives.
func Resolve(name string, s Settings) (Capabilities, error) {
	regMu.Lock()
	f, ok := factories[name]
	if !ok {
		if load, lok := lazy[name]; lok {
			f = load()
			factories[name] = f
			delete(lazy, name)
			ok = true
		}
	}
	regMu.Unlock()
	if !ok {
		return Capabilities{}, fmt.Errorf("unknown provider %q (registered: %v)", name, Names())
	}
	return f(s)
}

// Names lists registered provider names, sorted.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories)+len(lazy))
	for n := range factories {
		out = append(out, n)
	}
	for n := range lazy {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("mock", func(s Settings) (Capabilities, error) {
		m := NewMockProvider(s.EmbedDim)
		return Capabilities{Chat: m, CodeEmbedder: m, DocsEmbedder: m}, nil
	})
	Register("openai", func(s Settings) (Capabilities, error) {
		p := NewOpenAIProvider(s)
		return Capabilities{Chat: p, CodeEmbedder: p, DocsEmbedder: p}, nil
	})
	RegisterLazy("ollama", func() Factory {
		return func(s Settings) (Capabilities, error) {
			p := NewOllamaProvider(s)
			return Capabilities{Chat: p, CodeEmbedder: p, DocsEmbedder: p}, nil
		}
	})
	RegisterLazy("vllm", func() Factory {
		return func(s Settings) (Capabilities, error) {
			p, err := NewVLLMProvider(s)
			if err != nil {
				return Capabilities{}, err
			}
			return Capabilities{Chat: p, CodeEmbedder: p, DocsEmbedder: p}, nil
		}
	})
}
