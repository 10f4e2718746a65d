package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"whisperd/internal/stt"
	"whisperd/internal/transcribe"
)

// Transcriber is the slice of the pipeline service the handler depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string, opts stt.Options) (*stt.Result, error)
	Engine() stt.Description
}

type TranscribeHandler struct {
	svc Transcriber
}

func NewTranscribeHandler(svc Transcriber) *TranscribeHandler {
	return &TranscribeHandler{svc: svc}
}

type transcribeRequest struct {
	URL            string  `json:"url" validate:"required,url"`
	Language       string  `json:"language"`
	Task           string  `json:"task" validate:"omitempty,oneof=transcribe translate"`
	WordTimestamps bool    `json:"word_timestamps"`
	Temperature    float64 `json:"temperature" validate:"gte=0,lte=1"`
}

// Transcribe downloads the audio behind the requested URL and runs it
// through the configured engine.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if err := validateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if req.Task == "" {
		req.Task = stt.TaskTranscribe
	}

	if err := h.checkRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.svc.Transcribe(r.Context(), req.URL, stt.Options{
		Language:       req.Language,
		Task:           req.Task,
		WordTimestamps: req.WordTimestamps,
		Temperature:    req.Temperature,
	})
	if err != nil {
		writeStageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// checkRequest rejects inputs no amount of downloading or inference could
// satisfy, before any network or model work happens.
func (h *TranscribeHandler) checkRequest(req *transcribeRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("url must use http or https")
	}

	engine := h.svc.Engine()

	if engine.EnglishOnly {
		if req.Task == stt.TaskTranslate {
			return fmt.Errorf("model %s is English-only and cannot translate", engine.Model)
		}
		if req.Language != "" && req.Language != "en" {
			return fmt.Errorf("model %s is English-only and cannot transcribe %q", engine.Model, req.Language)
		}
	}

	if req.Language != "" && len(engine.Languages) > 0 && !slices.Contains(engine.Languages, req.Language) {
		return fmt.Errorf("language %q is not supported by model %s", req.Language, engine.Model)
	}

	return nil
}

// writeStageError maps a pipeline failure onto the HTTP error class for the
// stage that produced it.
func writeStageError(w http.ResponseWriter, err error) {
	var perr *transcribe.Error
	if !errors.As(err, &perr) {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	switch perr.Stage {
	case transcribe.StageFetch:
		writeError(w, http.StatusBadGateway, "fetch_failed", perr.Err.Error())
	case transcribe.StageDecode:
		writeError(w, http.StatusUnprocessableEntity, "decode_failed", perr.Err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "transcription_failed", perr.Err.Error())
	}
}
