package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"polyglot-transcriber/backend/internal/apigateway"
	"polyglot-transcriber/backend/internal/config"
	"polyglot-transcriber/backend/internal/objectstore"
	"polyglot-transcriber/backend/internal/transcription"
)

func main() {
	// A missing .env file is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg)

	store, err := objectstore.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize object store")
	}

	transcription.InitHandlers(cfg, store)

	router := apigateway.SetupRouter(cfg)

	log.Info().
		Str("port", cfg.Port).
		Str("engine", cfg.Engine).
		Str("storage", cfg.StorageBackend).
		Msg("Starting server")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
