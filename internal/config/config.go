package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the process-level configuration shared by the worker, the API
// and the CLI. Language profiles and prompt templates live in the plugins
// package; everything here is plain connection/tuning state.
type Config struct {
	APIAddr           string
	TemporalAddress   string
	TemporalTaskQueue string
	PostgresURL       string

	// CodebasePath is the root of the codebase being indexed and reviewed.
	CodebasePath string
	DataOutRoot  string

	// Provider selects the registered chat/embedding backend by name.
	Provider        string
	ProviderBaseURL string
	ProviderAPIKey  string
	ChatModel       string
	CodeEmbedModel  string
	DocsEmbedModel  string
	EmbedDim        int

	// VectorBackend is either "pgvector" or "chromem".
	VectorBackend string
	ChromemPath   string

	MaxWorkers     int
	SimilarityTopK int

	// ReviewInclude/ReviewExclude are gitignore-style globs gating which
	// files are actively reviewed. They never gate retrieval context.
	ReviewInclude []string
	ReviewExclude []string

	// SkipExplain drops the change-explanation stage to save chat calls.
	SkipExplain bool
	// ValidateFindings enables the second-pass validation stage.
	ValidateFindings bool
	// AttemptFix enables fix generation for change reviews with findings.
	AttemptFix bool

	// CustomGuidance is optional user prompt text prepended to review
	// system prompts under the precedence note.
	CustomGuidance string

	// ProfilesPath overrides the embedded language profile configuration.
	ProfilesPath string
}

func Load() Config {
	return Config{
		APIAddr:           getenv("VIGIL_API_ADDR", ":8080"),
		TemporalAddress:   getenv("VIGIL_TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue: getenv("VIGIL_TEMPORAL_TASK_QUEUE", "vigil"),
		PostgresURL:       getenv("VIGIL_POSTGRES_URL", ""),
		CodebasePath:      getenv("VIGIL_CODEBASE_PATH", "."),
		DataOutRoot:       getenv("VIGIL_DATA_OUT", "./data/out"),
		Provider:          getenv("VIGIL_PROVIDER", "mock"),
		ProviderBaseURL:   getenv("VIGIL_PROVIDER_BASE_URL", ""),
		ProviderAPIKey:    getenv("VIGIL_PROVIDER_API_KEY", os.Getenv("OPENAI_API_KEY")),
		ChatModel:         getenv("VIGIL_CHAT_MODEL", "gpt-4o-mini"),
		CodeEmbedModel:    getenv("VIGIL_CODE_EMBED_MODEL", "text-embedding-3-small"),
		DocsEmbedModel:    getenv("VIGIL_DOCS_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:          getenvInt("VIGIL_EMBED_DIM", 1536),
		VectorBackend:     getenv("VIGIL_VECTOR_BACKEND", "chromem"),
		ChromemPath:       getenv("VIGIL_CHROMEM_PATH", "./data/index"),
		MaxWorkers:        getenvInt("VIGIL_MAX_WORKERS", 4),
		SimilarityTopK:    getenvInt("VIGIL_SIMILARITY_TOP_K", 4),
		ReviewInclude:     getenvList("VIGIL_REVIEW_INCLUDE"),
		ReviewExclude:     getenvList("VIGIL_REVIEW_EXCLUDE"),
		SkipExplain:       getenvBool("VIGIL_SKIP_EXPLAIN", false),
		ValidateFindings:  getenvBool("VIGIL_VALIDATE", true),
		AttemptFix:        getenvBool("VIGIL_ATTEMPT_FIX", false),
		CustomGuidance:    getenv("VIGIL_CUSTOM_GUIDANCE", ""),
		ProfilesPath:      getenv("VIGIL_PROFILES_PATH", ""),
	}
}

// Validate rejects configurations that must fail before any pipeline work
// begins. Provider name resolution is checked separately by the provider
// registry at startup.
func (c Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.SimilarityTopK <= 0 {
		return fmt.Errorf("similarity_top_k must be positive, got %d", c.SimilarityTopK)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("embed_dim must be positive, got %d", c.EmbedDim)
	}
	switch c.VectorBackend {
	case "pgvector":
		if strings.TrimSpace(c.PostgresURL) == "" {
			return fmt.Errorf("vector backend pgvector requires VIGIL_POSTGRES_URL")
		}
	case "chromem":
	default:
		return fmt.Errorf("unknown vector backend: %s", c.VectorBackend)
	}
	return nil
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(k string, fallback bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvList(k string) []string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
