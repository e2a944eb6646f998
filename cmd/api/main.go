package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"

	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/plugins"
)

func main() {
	_ = godotenv.Load(".env")
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "api").Logger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	registry, err := plugins.Load(cfg.ProfilesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load language profiles")
	}
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal().Err(err).Msg("dial temporal")
	}
	defer c.Close()

	srv := api.NewServer(cfg, registry, c, log)
	log.Info().Str("addr", cfg.APIAddr).Msg("api listening")
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		log.Fatal().Err(err).Msg("api stopped")
	}
}
