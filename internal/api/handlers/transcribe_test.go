package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperd/internal/stt"
	"whisperd/internal/transcribe"
)

type fakeService struct {
	desc    stt.Description
	result  *stt.Result
	err     error
	calls   int
	gotURL  string
	gotOpts stt.Options
}

func (f *fakeService) Transcribe(_ context.Context, audioURL string, opts stt.Options) (*stt.Result, error) {
	f.calls++
	f.gotURL = audioURL
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeService) Engine() stt.Description {
	return f.desc
}

func postTranscribe(t *testing.T, h *TranscribeHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.Transcribe(rr, req)
	return rr
}

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Message
}

func TestTranscribeSuccess(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		desc: stt.Description{Backend: "whispercpp", Model: "base"},
		result: &stt.Result{
			Text:     "hello world",
			Language: "en",
			Segments: []stt.Segment{{ID: 0, End: 1.5, Text: "hello world"}},
		},
	}
	h := NewTranscribeHandler(svc)

	rr := postTranscribe(t, h, `{
		"url": "https://example.com/clip.mp3",
		"language": "en",
		"word_timestamps": true,
		"temperature": 0.2
	}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result stt.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 1)

	assert.Equal(t, "https://example.com/clip.mp3", svc.gotURL)
	assert.Equal(t, stt.Options{
		Language:       "en",
		Task:           stt.TaskTranscribe, // defaulted
		WordTimestamps: true,
		Temperature:    0.2,
	}, svc.gotOpts)
}

func TestTranscribeRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	h := NewTranscribeHandler(svc)

	rr := postTranscribe(t, h, `{"url": `)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	code, _ := decodeErrorBody(t, rr)
	assert.Equal(t, "invalid_request", code)
	assert.Zero(t, svc.calls)
}

func TestTranscribeRequiresURL(t *testing.T) {
	t.Parallel()

	h := NewTranscribeHandler(&fakeService{})

	rr := postTranscribe(t, h, `{}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	code, message := decodeErrorBody(t, rr)
	assert.Equal(t, "invalid_request", code)
	assert.Contains(t, message, "url")
}

func TestTranscribeRejectsNonHTTPScheme(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	h := NewTranscribeHandler(svc)

	rr := postTranscribe(t, h, `{"url": "ftp://example.com/clip.mp3"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	_, message := decodeErrorBody(t, rr)
	assert.Contains(t, message, "http or https")
	assert.Zero(t, svc.calls, "no fetch may happen for a rejected request")
}

func TestTranscribeRejectsUnknownTask(t *testing.T) {
	t.Parallel()

	h := NewTranscribeHandler(&fakeService{})

	rr := postTranscribe(t, h, `{"url": "https://example.com/a.mp3", "task": "summarize"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	_, message := decodeErrorBody(t, rr)
	assert.Contains(t, message, "one of")
}

func TestTranscribeRejectsOutOfRangeTemperature(t *testing.T) {
	t.Parallel()

	h := NewTranscribeHandler(&fakeService{})

	rr := postTranscribe(t, h, `{"url": "https://example.com/a.mp3", "temperature": 1.5}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	_, message := decodeErrorBody(t, rr)
	assert.Contains(t, message, "temperature")
}

func TestTranscribeRejectsTranslateOnEnglishOnlyModel(t *testing.T) {
	t.Parallel()

	svc := &fakeService{desc: stt.Description{Model: "base.en", EnglishOnly: true}}
	h := NewTranscribeHandler(svc)

	rr := postTranscribe(t, h, `{"url": "https://example.com/a.mp3", "task": "translate"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	_, message := decodeErrorBody(t, rr)
	assert.Contains(t, message, "English-only")
	assert.Zero(t, svc.calls)
}

func TestTranscribeRejectsForeignLanguageOnEnglishOnlyModel(t *testing.T) {
	t.Parallel()

	svc := &fakeService{desc: stt.Description{Model: "tiny.en", EnglishOnly: true}}
	h := NewTranscribeHandler(svc)

	rr := postTranscribe(t, h, `{"url": "https://example.com/a.mp3", "language": "de"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	_, message := decodeErrorBody(t, rr)
	assert.Contains(t, message, "English-only")
}

func TestTranscribeRejectsLanguageOutsideEngineSet(t *testing.T) {
	t.Parallel()

	svc := &fakeService{desc: stt.Description{Model: "base", Languages: []string{"en", "de", "fr"}}}
	h := NewTranscribeHandler(svc)

	rr := postTranscribe(t, h, `{"url": "https://example.com/a.mp3", "language": "xx"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	_, message := decodeErrorBody(t, rr)
	assert.Contains(t, message, `"xx"`)
}

func TestTranscribeAcceptsAnyLanguageWhenEngineCannotEnumerate(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		desc:   stt.Description{Backend: "openai", Model: "whisper-1"},
		result: &stt.Result{Text: "bonjour", Language: "fr"},
	}
	h := NewTranscribeHandler(svc)

	rr := postTranscribe(t, h, `{"url": "https://example.com/a.mp3", "language": "fr"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fr", svc.gotOpts.Language)
}

func TestTranscribeMapsPipelineStagesToStatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "fetch failure is a bad gateway",
			err:        &transcribe.Error{Stage: transcribe.StageFetch, Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "fetch_failed",
		},
		{
			name:       "decode failure is unprocessable",
			err:        &transcribe.Error{Stage: transcribe.StageDecode, Err: errors.New("invalid data found")},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "decode_failed",
		},
		{
			name:       "inference failure is a server error",
			err:        &transcribe.Error{Stage: transcribe.StageTranscribe, Err: errors.New("model crashed")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "transcription_failed",
		},
		{
			name:       "unclassified failure stays generic",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewTranscribeHandler(&fakeService{err: tc.err})
			rr := postTranscribe(t, h, `{"url": "https://example.com/a.mp3"}`)

			require.Equal(t, tc.wantStatus, rr.Code)
			code, message := decodeErrorBody(t, rr)
			assert.Equal(t, tc.wantCode, code)
			assert.NotEmpty(t, message)
		})
	}
}
