package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nireus79/Socrates-sub009/internal/api"
	"github.com/Nireus79/Socrates-sub009/internal/config"
	"github.com/Nireus79/Socrates-sub009/internal/event"
	"github.com/Nireus79/Socrates-sub009/internal/health"
	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
	"github.com/Nireus79/Socrates-sub009/internal/metrics"
	"github.com/Nireus79/Socrates-sub009/internal/orchestrator"
	"github.com/Nireus79/Socrates-sub009/internal/seed"
	"github.com/Nireus79/Socrates-sub009/internal/suggestion"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("store_path", cfg.StorePath).
		Bool("embedder_enabled", cfg.EmbedderEnabled()).
		Msg("starting socrates enrichment core")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.New()

	var embedder knowledge.Embedder = knowledge.NoopEmbedder{}
	if cfg.EmbedderEnabled() {
		remote := knowledge.NewRemoteEmbedder(knowledge.RemoteConfig{
			Endpoint:   cfg.EmbedderEndpoint,
			APIKey:     cfg.EmbedderAPIKey,
			Model:      cfg.EmbedderModel,
			Dimensions: cfg.EmbedderDimensions,
			Timeout:    cfg.EmbedderTimeout,
		})
		embedder = knowledge.NewCachedEmbedder(remote, cfg.EmbedderCacheSize)
	} else {
		logger.Warn().Msg("no embedder configured — similarity search falls back to recency order")
	}

	store, err := knowledge.Open(cfg.StorePath, embedder, logger, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open knowledge store")
	}
	defer store.Close()

	if cfg.SeedPath != "" {
		entries, err := seed.Load(cfg.SeedPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SeedPath).Msg("failed to load seed file")
		}
		seed.Apply(ctx, store, entries, logger)
	}

	bus := event.NewBus(logger, m)
	manager := suggestion.NewManager(store, bus, logger, m)

	orch := orchestrator.New(logger, m)
	orch.Register(manager)

	checker := health.NewChecker(logger)
	checker.Register("knowledge_store", func(ctx context.Context) health.Status {
		if err := store.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	server := api.NewServer(api.Config{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
	}, orch, checker, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server stopped")
		}
	}

	cancel()
	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	// Give in-flight store writes a moment before Close.
	time.Sleep(100 * time.Millisecond)
	logger.Info().Msg("stopped")
}
