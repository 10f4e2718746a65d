package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whisperd/internal/api"
	"whisperd/internal/config"
	"whisperd/internal/fetch"
	"whisperd/internal/media"
	"whisperd/internal/stt"
	"whisperd/internal/stt/whispercpp"
	"whisperd/internal/transcribe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// The model loads before the listener starts, so /health answering at
	// all means the engine is ready.
	engine, err := buildEngine(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize transcription engine", "error", err)
		os.Exit(1)
	}
	if closer, ok := engine.(io.Closer); ok {
		defer closer.Close()
	}

	desc := engine.Describe()
	slog.Info("engine ready", "backend", desc.Backend, "model", desc.Model, "english_only", desc.EnglishOnly)

	converter := media.NewConverter(cfg.Media.FFmpegPath)
	if desc.RequiresPCM {
		if err := converter.Available(); err != nil {
			slog.Warn("ffmpeg not found, transcription requests will fail",
				"ffmpeg", cfg.Media.FFmpegPath, "error", err)
		}
	}

	fetcher := fetch.New(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
	svc := transcribe.NewService(fetcher, converter, engine, logger)

	handler := api.NewRouter(cfg, svc, logger).Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // inference on long clips is slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func buildEngine(ctx context.Context, cfg *config.Config) (stt.Engine, error) {
	switch cfg.STT.Backend {
	case "openai":
		return stt.NewOpenAIEngine(stt.OpenAIConfig{
			APIKey:  cfg.STT.OpenAIKey,
			BaseURL: cfg.STT.OpenAIBaseURL,
			Model:   cfg.STT.OpenAIModel,
		}), nil
	default:
		resolved, err := stt.EnsureModel(ctx, cfg.STT.Model, cfg.STT.ModelDir, cfg.STT.AutoDownload, slog.Default())
		if err != nil {
			return nil, err
		}
		return whispercpp.New(whispercpp.Config{
			ModelPath: resolved.Path,
			ModelName: resolved.Name,
			Threads:   cfg.STT.Threads,
		})
	}
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
