package stt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "whisper-1"
}

// OpenAIEngine transcribes audio through OpenAI's audio API or any compatible
// server. Files are uploaded as fetched; the remote service decodes them itself.
type OpenAIEngine struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAIEngine creates an OpenAIEngine with sensible defaults applied.
func NewOpenAIEngine(cfg OpenAIConfig) *OpenAIEngine {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 300 * time.Second}
	return &OpenAIEngine{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (e *OpenAIEngine) Describe() Description {
	// The hosted API accepts any whisper language and detects for itself,
	// so no enumeration is possible here.
	return Description{
		Backend: "openai",
		Model:   e.cfg.Model,
	}
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	req := openai.AudioRequest{
		Model:       e.cfg.Model,
		FilePath:    audioPath,
		Format:      openai.AudioResponseFormatVerboseJSON,
		Language:    opts.Language,
		Temperature: float32(opts.Temperature),
	}
	// The translations endpoint does not accept timestamp granularities.
	if opts.WordTimestamps && opts.Task != TaskTranslate {
		req.TimestampGranularities = []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		}
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	if opts.Task == TaskTranslate {
		resp, err = e.client.CreateTranslation(ctx, req)
	} else {
		resp, err = e.client.CreateTranscription(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("openai audio api: %w", err)
	}

	return mapAudioResponse(resp, opts), nil
}

func mapAudioResponse(resp openai.AudioResponse, opts Options) *Result {
	out := &Result{
		Text:     resp.Text,
		Language: resp.Language,
		Segments: make([]Segment, 0, len(resp.Segments)),
	}
	// A caller-declared language wins over whatever the API reports; the
	// hosted API returns full names ("english") rather than codes.
	if opts.Language != "" {
		out.Language = opts.Language
	}

	wi := 0
	for _, s := range resp.Segments {
		seg := Segment{
			ID:               s.ID,
			Start:            s.Start,
			End:              s.End,
			Text:             s.Text,
			Tokens:           s.Tokens,
			Temperature:      s.Temperature,
			AvgLogprob:       s.AvgLogprob,
			CompressionRatio: s.CompressionRatio,
			NoSpeechProb:     s.NoSpeechProb,
		}
		for wi < len(resp.Words) && resp.Words[wi].Start < s.End {
			w := resp.Words[wi]
			if w.End > s.Start {
				seg.Words = append(seg.Words, Word{
					Word:  w.Word,
					Start: w.Start,
					End:   w.End,
				})
			}
			wi++
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}
