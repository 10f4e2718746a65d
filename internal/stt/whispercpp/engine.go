// Package whispercpp implements the stt.Engine contract over the whisper.cpp
// Go bindings, running inference in-process against ggml weights. Building it
// requires the whisper.cpp static libraries (see the Dockerfile).
package whispercpp

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"whisperd/internal/media"
	"whisperd/internal/stt"
)

// Config holds engine construction parameters.
type Config struct {
	ModelPath string
	ModelName string // display name; defaults to the path
	Threads   int    // 0 means one per CPU
}

// Engine runs whisper.cpp inference in-process. The loaded weights are
// read-only and shared; every request decodes on its own whisper context.
type Engine struct {
	model   whisper.Model
	name    string
	threads uint
}

// New loads the ggml weights at cfg.ModelPath once, to be shared by all
// subsequent Transcribe calls.
func New(cfg Config) (*Engine, error) {
	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", cfg.ModelPath, err)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	name := cfg.ModelName
	if name == "" {
		name = cfg.ModelPath
	}

	return &Engine{model: model, name: name, threads: uint(threads)}, nil
}

// Close releases the loaded model.
func (e *Engine) Close() error {
	return e.model.Close()
}

func (e *Engine) Describe() stt.Description {
	return stt.Description{
		Backend:     "whispercpp",
		Model:       e.name,
		Languages:   e.model.Languages(),
		EnglishOnly: !e.model.IsMultilingual(),
		RequiresPCM: true,
	}
}

func (e *Engine) Transcribe(ctx context.Context, audioPath string, opts stt.Options) (*stt.Result, error) {
	samples, err := media.ReadWAVMono16k(audioPath)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("no audio samples decoded")
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create whisper context: %w", err)
	}

	wctx.SetThreads(e.threads)
	wctx.SetTranslate(opts.Task == stt.TaskTranslate)
	wctx.SetTemperature(float32(opts.Temperature))
	if opts.WordTimestamps {
		wctx.SetTokenTimestamps(true)
		wctx.SetSplitOnWord(true)
	}
	// English-only models reject any language selection, including "auto".
	if e.model.IsMultilingual() {
		lang := opts.Language
		if lang == "" {
			lang = "auto"
		}
		if err := wctx.SetLanguage(lang); err != nil {
			return nil, fmt.Errorf("set language %q: %w", lang, err)
		}
	}

	// Aborting at the next encoder pass is the closest the bindings get to
	// honoring a canceled request context.
	encoderBegin := func() bool {
		return ctx.Err() == nil
	}
	if err := wctx.Process(samples, encoderBegin, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper process: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := &stt.Result{
		Language: e.resultLanguage(wctx, opts),
		Segments: []stt.Segment{},
	}
	var text strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		result.Segments = append(result.Segments, mapSegment(wctx, seg, opts))
		text.WriteString(seg.Text)
	}
	result.Text = strings.TrimSpace(text.String())

	return result, nil
}

func (e *Engine) resultLanguage(wctx whisper.Context, opts stt.Options) string {
	if opts.Language != "" {
		return opts.Language
	}
	if !e.model.IsMultilingual() {
		return "en"
	}
	return wctx.DetectedLanguage()
}

func mapSegment(wctx whisper.Context, seg whisper.Segment, opts stt.Options) stt.Segment {
	out := stt.Segment{
		ID:               seg.Num,
		Start:            seg.Start.Seconds(),
		End:              seg.End.Seconds(),
		Text:             seg.Text,
		Tokens:           make([]int, 0, len(seg.Tokens)),
		Temperature:      opts.Temperature,
		AvgLogprob:       avgLogprob(seg.Tokens),
		CompressionRatio: compressionRatio(seg.Text),
		// NoSpeechProb stays zero: the bindings do not expose it.
	}
	for _, tok := range seg.Tokens {
		out.Tokens = append(out.Tokens, tok.Id)
	}
	if opts.WordTimestamps {
		out.Words = buildWords(wctx, seg.Tokens)
	}
	return out
}

// buildWords turns token timestamps into word alignments. SetSplitOnWord
// keeps token boundaries on whitespace, so text tokens line up with words.
func buildWords(wctx whisper.Context, tokens []whisper.Token) []stt.Word {
	words := make([]stt.Word, 0, len(tokens))
	for _, tok := range tokens {
		if !wctx.IsText(tok) {
			continue
		}
		text := strings.TrimSpace(tok.Text)
		if text == "" {
			continue
		}
		words = append(words, stt.Word{
			Word:        text,
			Start:       tok.Start.Seconds(),
			End:         tok.End.Seconds(),
			Probability: float64(tok.P),
		})
	}
	return words
}

func avgLogprob(tokens []whisper.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range tokens {
		p := math.Max(float64(tok.P), 1e-10)
		sum += math.Log(p)
	}
	return sum / float64(len(tokens))
}

// compressionRatio mirrors how whisper itself scores repetitive output:
// byte length over zlib-compressed length.
func compressionRatio(text string) float64 {
	if text == "" {
		return 0
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write([]byte(text))
	_ = zw.Close()
	return float64(len(text)) / float64(buf.Len())
}
