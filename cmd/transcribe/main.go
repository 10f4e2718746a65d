package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"whisperd/internal/cli"
	"whisperd/internal/config"
	"whisperd/internal/fetch"
	"whisperd/internal/media"
	"whisperd/internal/stt"
	"whisperd/internal/stt/whispercpp"
	"whisperd/internal/transcribe"
)

func main() {
	cmd, err := cli.NewRootCmd(buildService)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cli.Service, func(), error) {
	var (
		engine  stt.Engine
		cleanup = func() {}
	)

	switch cfg.STT.Backend {
	case "openai":
		engine = stt.NewOpenAIEngine(stt.OpenAIConfig{
			APIKey:  cfg.STT.OpenAIKey,
			BaseURL: cfg.STT.OpenAIBaseURL,
			Model:   cfg.STT.OpenAIModel,
		})
	default:
		resolved, err := stt.EnsureModel(ctx, cfg.STT.Model, cfg.STT.ModelDir, cfg.STT.AutoDownload, logger)
		if err != nil {
			return nil, nil, err
		}
		local, err := whispercpp.New(whispercpp.Config{
			ModelPath: resolved.Path,
			ModelName: resolved.Name,
			Threads:   cfg.STT.Threads,
		})
		if err != nil {
			return nil, nil, err
		}
		engine = local
		cleanup = func() { _ = local.Close() }
	}

	fetcher := fetch.New(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
	converter := media.NewConverter(cfg.Media.FFmpegPath)
	return transcribe.NewService(fetcher, converter, engine, logger), cleanup, nil
}
