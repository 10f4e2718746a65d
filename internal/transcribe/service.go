// Package transcribe owns the fetch -> normalize -> infer pipeline shared by
// the HTTP handler and the CLI.
package transcribe

import (
	"context"
	"log/slog"
	"os"
	"time"

	"whisperd/internal/stt"
)

// Fetcher downloads a remote resource into dir and returns the local path.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dir string) (string, error)
}

// Converter turns arbitrary media into the WAV layout the local engine reads.
type Converter interface {
	ToWAV(ctx context.Context, src string) (string, error)
}

// Service runs one transcription request end to end. It holds no per-request
// state; all scratch files live in a directory created and removed per call.
type Service struct {
	fetcher   Fetcher
	converter Converter
	engine    stt.Engine
	logger    *slog.Logger
}

func NewService(fetcher Fetcher, converter Converter, engine stt.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:   fetcher,
		converter: converter,
		engine:    engine,
		logger:    logger,
	}
}

// Engine exposes the configured engine's description for validation and
// status reporting.
func (s *Service) Engine() stt.Description {
	return s.engine.Describe()
}

// Transcribe fetches rawURL, normalizes it when the engine needs PCM, and
// runs inference. Failures carry the stage they happened in; scratch files
// are removed on every path.
func (s *Service) Transcribe(ctx context.Context, rawURL string, opts stt.Options) (*stt.Result, error) {
	scratch, err := os.MkdirTemp("", "whisperd-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			s.logger.Warn("scratch dir cleanup failed", "dir", scratch, "error", rmErr)
		}
	}()

	started := time.Now()

	audioPath, err := s.fetcher.Fetch(ctx, rawURL, scratch)
	if err != nil {
		return nil, s.fail(StageFetch, rawURL, err)
	}

	inputPath := audioPath
	if s.engine.Describe().RequiresPCM {
		wavPath, err := s.converter.ToWAV(ctx, audioPath)
		if err != nil {
			return nil, s.fail(StageDecode, rawURL, err)
		}
		inputPath = wavPath
	}

	result, err := s.engine.Transcribe(ctx, inputPath, opts)
	if err != nil {
		return nil, s.fail(StageTranscribe, rawURL, err)
	}

	s.logger.Info("transcription complete",
		"url", rawURL,
		"language", result.Language,
		"segments", len(result.Segments),
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return result, nil
}

// TranscribeFile runs the pipeline on a file already on disk, skipping the
// fetch stage. A normalized copy produced for the engine is removed afterwards;
// the source file is left alone.
func (s *Service) TranscribeFile(ctx context.Context, path string, opts stt.Options) (*stt.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, s.fail(StageFetch, path, err)
	}

	started := time.Now()

	inputPath := path
	if s.engine.Describe().RequiresPCM {
		wavPath, err := s.converter.ToWAV(ctx, path)
		if err != nil {
			return nil, s.fail(StageDecode, path, err)
		}
		if wavPath != path {
			defer os.Remove(wavPath)
		}
		inputPath = wavPath
	}

	result, err := s.engine.Transcribe(ctx, inputPath, opts)
	if err != nil {
		return nil, s.fail(StageTranscribe, path, err)
	}

	s.logger.Info("transcription complete",
		"file", path,
		"language", result.Language,
		"segments", len(result.Segments),
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return result, nil
}

func (s *Service) fail(stage Stage, source string, err error) error {
	s.logger.Warn("transcription failed", "stage", string(stage), "source", source, "error", err)
	return newError(stage, err)
}
