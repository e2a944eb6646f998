package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"vigil/internal/activities"
	"vigil/internal/config"
	"vigil/internal/plugins"
	"vigil/internal/providers"
	"vigil/internal/storage"
	"vigil/internal/vectorstore"
	"vigil/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env")
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "worker").Logger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	registry, err := plugins.Load(cfg.ProfilesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load language profiles")
	}
	caps, err := providers.Resolve(cfg.Provider, providers.Settings{
		BaseURL:        cfg.ProviderBaseURL,
		APIKey:         cfg.ProviderAPIKey,
		ChatModel:      cfg.ChatModel,
		CodeEmbedModel: cfg.CodeEmbedModel,
		DocsEmbedModel: cfg.DocsEmbedModel,
		EmbedDim:       cfg.EmbedDim,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("resolve provider")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store vectorstore.Store
	switch cfg.VectorBackend {
	case "pgvector":
		pg, err := vectorstore.NewPGStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("open pgvector store")
		}
		store = pg
	default:
		ch, err := vectorstore.NewChromemStore(cfg.ChromemPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open chromem store")
		}
		store = ch
	}
	defer store.Close()

	var db *storage.DB
	if cfg.PostgresURL != "" {
		db, err = storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		defer db.Close()
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal().Err(err).Msg("dial temporal")
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, registry, store, caps, db))

	log.Info().
		Str("temporal", cfg.TemporalAddress).
		Str("queue", cfg.TemporalTaskQueue).
		Str("provider", cfg.Provider).
		Str("backend", cfg.VectorBackend).
		Msg("worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
