package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calvaresi/intervista/internal/audio"
	"github.com/calvaresi/intervista/internal/config"
	"github.com/calvaresi/intervista/internal/httpapi"
	"github.com/calvaresi/intervista/internal/llm"
	"github.com/calvaresi/intervista/internal/observability"
	"github.com/calvaresi/intervista/internal/orchestrator"
	"github.com/calvaresi/intervista/internal/prompt"
	"github.com/calvaresi/intervista/internal/session"
	"github.com/calvaresi/intervista/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := session.NewStore(ctx, cfg.DatabaseURL, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("session store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("session store: postgres")
	} else {
		log.Printf("session store: in-memory")
	}

	adapter, err := llm.NewAdapter(llm.Config{
		Mode:    cfg.LLMMode,
		URL:     cfg.LLMURL,
		Model:   cfg.LLMModel,
		APIKey:  cfg.LLMAPIKey,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		log.Fatalf("generation adapter init failed: %v", err)
	}

	providers, err := voice.NewProviders(cfg.VoiceProvider, voice.LocalConfig{
		WhisperCLI:       cfg.WhisperCLI,
		WhisperModelPath: cfg.WhisperModelPath,
		WhisperLanguage:  cfg.WhisperLanguage,
		WhisperThreads:   cfg.WhisperThreads,
		SampleRate:       audio.DefaultSampleRate,
	})
	if err != nil {
		log.Fatalf("voice provider init failed: %v", err)
	}
	log.Printf("voice provider: %s", providers.Mode)

	orch := orchestrator.New(
		store,
		adapter,
		prompt.NewBuilder(cfg.HistoryTurns, cfg.HistoryMaxChars),
		cfg.StagePlan(),
		metrics,
		cfg.LLMTimeout,
	)

	api := httpapi.New(cfg, orch, metrics, providers)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	if j, ok := store.(session.Janitor); ok {
		j.StartJanitor(runCtx, 30*time.Second)
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
