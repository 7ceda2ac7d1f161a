package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yangjx/studymate/internal/config"
	"github.com/yangjx/studymate/internal/graph"
	"github.com/yangjx/studymate/internal/httpapi"
	"github.com/yangjx/studymate/internal/llm"
	"github.com/yangjx/studymate/internal/observability"
	"github.com/yangjx/studymate/internal/planstore"
	"github.com/yangjx/studymate/internal/retrieval"
	"github.com/yangjx/studymate/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	setupLogging(cfg.LogLevel)

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	checkpointer, err := session.NewCheckpointer(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("checkpoint store init failed")
	}
	if checkpointer != nil {
		defer checkpointer.Close()
		log.Info().Msg("durable session checkpoints: postgres")
	} else {
		log.Info().Msg("durable session checkpoints: disabled (in-memory only)")
	}
	sessions := session.NewManager(checkpointer)

	plans, err := planstore.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("plan store init failed")
	}
	defer plans.Close()

	index, err := retrieval.NewIndex(retrieval.Config{
		Mode:         cfg.RetrievalMode,
		DataDir:      cfg.VectorDataDir,
		EmbedBaseURL: cfg.EmbeddingBaseURL,
		EmbedAPIKey:  cfg.EmbeddingAPIKey,
		EmbedModel:   cfg.EmbeddingModel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("retrieval index init failed")
	}
	defer index.Close()

	completer, err := llm.NewCompleter(llm.Config{
		Mode:        cfg.CompleterMode,
		BaseURL:     cfg.CompletionBaseURL,
		APIKey:      cfg.CompletionAPIKey,
		Model:       cfg.CompletionModel,
		Temperature: cfg.CompletionTemperature,
		Timeout:     cfg.CompletionTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("completer init failed")
	}

	engine := graph.NewEngine(sessions, completer, index, plans, metrics, graph.Config{
		RetrievalK:         cfg.RetrievalK,
		RetrievalThreshold: float32(cfg.RetrievalThreshold),
	})

	api := httpapi.New(cfg, sessions, engine, metrics)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info().Msg("shutdown complete")
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
