package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verboseJSONFixture = `{
	"task": "transcribe",
	"language": "english",
	"duration": 3.84,
	"text": "Hello world. Goodbye.",
	"segments": [
		{"id": 0, "seek": 0, "start": 0.0, "end": 2.0, "text": " Hello world.",
		 "tokens": [50364, 2425, 1002, 13], "temperature": 0.0, "avg_logprob": -0.27,
		 "compression_ratio": 0.92, "no_speech_prob": 0.01},
		{"id": 1, "seek": 200, "start": 2.0, "end": 3.84, "text": " Goodbye.",
		 "tokens": [50464, 26842, 13], "temperature": 0.0, "avg_logprob": -0.31,
		 "compression_ratio": 0.88, "no_speech_prob": 0.02}
	],
	"words": [
		{"word": "Hello", "start": 0.0, "end": 0.9},
		{"word": "world", "start": 0.9, "end": 1.6},
		{"word": "Goodbye", "start": 2.1, "end": 3.2}
	]
}`

type recordedUpload struct {
	path     string
	form     map[string]string
	fileName string
}

func newFakeAudioAPI(t *testing.T, status int, body string) (*httptest.Server, *recordedUpload) {
	t.Helper()
	rec := &recordedUpload{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		rec.path = r.URL.Path
		rec.form = map[string]string{}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				rec.form[key] = vals[0]
			}
		}
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			rec.fileName = files[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func writeTestClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0o644))
	return path
}

func TestOpenAIEngineTranscribe(t *testing.T) {
	t.Parallel()

	srv, rec := newFakeAudioAPI(t, http.StatusOK, verboseJSONFixture)
	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})

	result, err := engine.Transcribe(context.Background(), writeTestClip(t), Options{
		Language:       "en",
		Task:           TaskTranscribe,
		WordTimestamps: true,
		Temperature:    0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "/audio/transcriptions", rec.path)
	assert.Equal(t, "whisper-1", rec.form["model"])
	assert.Equal(t, "verbose_json", rec.form["response_format"])
	assert.Equal(t, "en", rec.form["language"])
	assert.Equal(t, "clip.mp3", rec.fileName)

	assert.Equal(t, "Hello world. Goodbye.", result.Text)
	assert.Equal(t, "en", result.Language, "declared language wins over the API's name")

	require.Len(t, result.Segments, 2)
	first := result.Segments[0]
	assert.Equal(t, 0, first.ID)
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, 2.0, first.End)
	assert.Equal(t, " Hello world.", first.Text)
	assert.Equal(t, []int{50364, 2425, 1002, 13}, first.Tokens)
	assert.Equal(t, -0.27, first.AvgLogprob)
	assert.Equal(t, 0.92, first.CompressionRatio)
	assert.Equal(t, 0.01, first.NoSpeechProb)

	require.Len(t, first.Words, 2)
	assert.Equal(t, "Hello", first.Words[0].Word)
	assert.Equal(t, "world", first.Words[1].Word)
	require.Len(t, result.Segments[1].Words, 1)
	assert.Equal(t, "Goodbye", result.Segments[1].Words[0].Word)
}

func TestOpenAIEngineTranslateUsesTranslationsRoute(t *testing.T) {
	t.Parallel()

	srv, rec := newFakeAudioAPI(t, http.StatusOK, verboseJSONFixture)
	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})

	result, err := engine.Transcribe(context.Background(), writeTestClip(t), Options{Task: TaskTranslate})
	require.NoError(t, err)

	assert.Equal(t, "/audio/translations", rec.path)
	// No declared language, so the API's detected value passes through.
	assert.Equal(t, "english", result.Language)
}

func TestOpenAIEngineUncertainDetectionIsNotAnError(t *testing.T) {
	t.Parallel()

	srv, _ := newFakeAudioAPI(t, http.StatusOK, `{"task":"translate","language":"","text":"hi","segments":[]}`)
	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})

	result, err := engine.Transcribe(context.Background(), writeTestClip(t), Options{Task: TaskTranslate})
	require.NoError(t, err)
	assert.Empty(t, result.Language)
	assert.Equal(t, "hi", result.Text)
}

func TestOpenAIEngineSurfacesAPIError(t *testing.T) {
	t.Parallel()

	srv, _ := newFakeAudioAPI(t, http.StatusInternalServerError,
		`{"error": {"message": "engine overloaded", "type": "server_error"}}`)
	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})

	_, err := engine.Transcribe(context.Background(), writeTestClip(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai audio api")
}

func TestOpenAIEngineDescribe(t *testing.T) {
	t.Parallel()

	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "sk-test", Model: "distil-whisper"})
	desc := engine.Describe()
	assert.Equal(t, "openai", desc.Backend)
	assert.Equal(t, "distil-whisper", desc.Model)
	assert.Nil(t, desc.Languages)
	assert.False(t, desc.EnglishOnly)
}
