// Package cli implements the whisperd command line front end. It drives the
// same pipeline as the HTTP server, without the server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"whisperd/internal/config"
	"whisperd/internal/stt"
)

// Service is the slice of the transcription pipeline the CLI drives.
type Service interface {
	Transcribe(ctx context.Context, rawURL string, opts stt.Options) (*stt.Result, error)
	TranscribeFile(ctx context.Context, path string, opts stt.Options) (*stt.Result, error)
	Engine() stt.Description
}

// BuildServiceFunc assembles the pipeline after flags have been applied to
// cfg. The returned func releases the engine.
type BuildServiceFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Service, func(), error)

type app struct {
	cfg   *config.Config
	build BuildServiceFunc

	language       string
	task           string
	wordTimestamps bool
	temperature    float64
	jsonOutput     bool
	verbose        bool
}

// NewRootCmd wires the transcribe command. Environment variables (and an
// optional .env file) provide the defaults; flags override them.
func NewRootCmd(build BuildServiceFunc) (*cobra.Command, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, build: build, task: stt.TaskTranscribe}

	cmd := &cobra.Command{
		Use:           "transcribe <url-or-file>",
		Short:         "Transcribe audio from a URL or a local file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.STT.Backend, "backend", cfg.STT.Backend, `Engine backend: "local" or "openai"`)
	f.StringVar(&cfg.STT.Model, "model", cfg.STT.Model, "Model name or path to a ggml file")
	f.StringVar(&cfg.STT.ModelDir, "model-dir", cfg.STT.ModelDir, "Directory where models are stored")
	f.BoolVar(&cfg.STT.AutoDownload, "auto-download", cfg.STT.AutoDownload, "Download missing models automatically")
	f.IntVar(&cfg.STT.Threads, "threads", cfg.STT.Threads, "Inference threads; 0 means one per CPU")
	f.StringVar(&a.language, "language", "auto", `Audio language code; "auto" detects it`)
	f.StringVar(&a.task, "task", a.task, `"transcribe" or "translate"`)
	f.BoolVar(&a.wordTimestamps, "word-timestamps", false, "Include per-word timings in segments")
	f.Float64Var(&a.temperature, "temperature", 0, "Decoder temperature between 0 and 1")
	f.BoolVar(&a.jsonOutput, "json", false, "Print the full result as JSON instead of plain text")
	f.BoolVar(&a.verbose, "verbose", false, "Enable debug logs")

	return cmd, nil
}

func (a *app) run(cmd *cobra.Command, source string) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	opts, err := a.options()
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, cleanup, err := a.build(ctx, a.cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if engine := svc.Engine(); engine.EnglishOnly && opts.Task == stt.TaskTranslate {
		return fmt.Errorf("model %s is English-only and cannot translate", engine.Model)
	}

	var result *stt.Result
	if isRemote(source) {
		result, err = svc.Transcribe(ctx, source, opts)
	} else {
		result, err = svc.TranscribeFile(ctx, source, opts)
	}
	if err != nil {
		return err
	}

	return a.print(cmd, result)
}

func (a *app) options() (stt.Options, error) {
	switch a.task {
	case stt.TaskTranscribe, stt.TaskTranslate:
	default:
		return stt.Options{}, fmt.Errorf("invalid task %q: must be \"transcribe\" or \"translate\"", a.task)
	}
	if a.temperature < 0 || a.temperature > 1 {
		return stt.Options{}, fmt.Errorf("temperature %v is out of range [0, 1]", a.temperature)
	}

	language := a.language
	if language == "auto" {
		language = ""
	}

	return stt.Options{
		Language:       language,
		Task:           a.task,
		WordTimestamps: a.wordTimestamps,
		Temperature:    a.temperature,
	}, nil
}

func (a *app) print(cmd *cobra.Command, result *stt.Result) error {
	if a.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(result.Text))
	return err
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
