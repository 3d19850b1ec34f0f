package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sparkpad/config"
	"sparkpad/config/civilmemory"
	"sparkpad/internal/ai"
	"sparkpad/pkg/logger"
	"sparkpad/router"
	"sparkpad/socket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	foundEnv := config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()
	if !foundEnv {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := civilmemory.Connect(ctx, cfg)
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to Civil Memory: %v", err)
	}

	// The Hub manages all clients and project rooms; its event loop runs
	// until ctx is cancelled.
	hub := socket.NewHub()
	go hub.Run(ctx)

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		logger.Sugar.Fatalf("Could not set up the AI provider: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(cfg, st, hub, ai.NewService(provider)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Sparkpad backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
	}
}

func newProvider(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	switch cfg.AIProvider {
	case config.AIProviderGemini:
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiURL, cfg.GeminiAPIVersion, cfg.GeminiModel, cfg.GeminiKey)
		if err != nil {
			return nil, err
		}
		logger.Sugar.Infof("AI assistant enabled (gemini, %s)", cfg.GeminiModel)
		return p, nil
	case config.AIProviderMock:
		logger.Sugar.Info("AI assistant enabled (mock)")
		return ai.NewMockProvider("This is a mock AI response."), nil
	default:
		logger.Sugar.Info("AI assistant disabled")
		return nil, nil
	}
}
