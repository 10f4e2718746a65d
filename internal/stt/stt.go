// Package stt defines the transcription engine contract shared by the
// in-process whisper.cpp backend and the OpenAI-compatible API backend.
package stt

import "context"

const (
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"
)

// Options holds the per-request transcription parameters. Each field maps
// one-to-one onto a parameter of the underlying engine.
type Options struct {
	Language       string  // ISO 639-1 code; empty means auto-detect
	Task           string  // TaskTranscribe or TaskTranslate
	WordTimestamps bool
	Temperature    float64
}

// Result is the transcription outcome as returned to callers.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Segment is a contiguous time-bounded span of the transcript. Start and End
// are offsets in seconds from the beginning of the audio.
type Segment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	Words            []Word  `json:"words,omitempty"`
}

// Word is a per-word alignment, present only when word timestamps were requested.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Description identifies a configured engine.
type Description struct {
	Backend     string   // "whispercpp" or "openai"
	Model       string   // model name or file the engine runs
	Languages   []string // language codes the engine accepts; nil when it cannot enumerate them
	EnglishOnly bool
	RequiresPCM bool // engine consumes 16 kHz mono WAV rather than raw containers
}

// Engine is the interface transcription backends implement.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
	Describe() Description
}
