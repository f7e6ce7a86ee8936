package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/model"
)

// idempotencyHeader carries the client request id for voice uploads.
const idempotencyHeader = "Idempotency-Key"

// AssistantDependencies defines the interface for the assistant and the
// voice-to-task pipeline.
type AssistantDependencies interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	AdjustTone(ctx context.Context, text, tone string) (string, error)
	Decompose(ctx context.Context, text string, level int, create bool) (service.DecomposeOutcome, error)
	SubmitVoice(ctx context.Context, requestID string, audio []byte, level int) (model.JobResult, bool, error)
	Job(ctx context.Context, id string) (model.JobResult, error)
}

// AssistantHandler handles assistant and voice capture requests.
type AssistantHandler struct {
	deps          AssistantDependencies
	maxAudioBytes int64
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(deps AssistantDependencies, maxAudioBytes int64) *AssistantHandler {
	if maxAudioBytes <= 0 {
		maxAudioBytes = defaultMaxAudioBytes
	}
	return &AssistantHandler{deps: deps, maxAudioBytes: maxAudioBytes}
}

type toneRequest struct {
	Text string `json:"text"`
	Tone string `json:"tone"`
}

type decomposeRequest struct {
	Text        string `json:"text"`
	Spiciness   int    `json:"spiciness"`
	CreateTasks bool   `json:"create_tasks"`
}

type textResponse struct {
	Text string `json:"text"`
}

type voiceResponse struct {
	Job       model.JobResult `json:"job"`
	Duplicate bool            `json:"duplicate"`
}

// HandleTranscribe handles POST /assistant/transcribe requests. The body is
// the raw audio.
func (h *AssistantHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	const op = "api.transcribe"
	audio, err := h.readAudio(w, r)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	text, err := h.deps.Transcribe(r.Context(), audio)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

// HandleTone handles POST /assistant/tone requests.
func (h *AssistantHandler) HandleTone(w http.ResponseWriter, r *http.Request) {
	const op = "api.adjust_tone"
	var req toneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	text, err := h.deps.AdjustTone(r.Context(), req.Text, req.Tone)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

// HandleDecompose handles POST /assistant/decompose requests. With
// create_tasks set, each step is added to the task list.
func (h *AssistantHandler) HandleDecompose(w http.ResponseWriter, r *http.Request) {
	const op = "api.decompose"
	var req decomposeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	out, err := h.deps.Decompose(r.Context(), req.Text, req.Spiciness, req.CreateTasks)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	status := http.StatusOK
	if len(out.Tasks) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

// HandleSubmitVoice handles POST /capture/voice requests. The body is the
// raw audio; the Idempotency-Key header (or request_id query parameter)
// makes retries safe and ?spiciness= selects the breakdown level.
func (h *AssistantHandler) HandleSubmitVoice(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_voice"
	level := 0
	if raw := r.URL.Query().Get("spiciness"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, op, fmt.Errorf("%w: spiciness must be a number", ErrBadRequest))
			return
		}
		level = n
	}
	requestID := r.Header.Get(idempotencyHeader)
	if requestID == "" {
		requestID = r.URL.Query().Get("request_id")
	}

	audio, err := h.readAudio(w, r)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	job, dup, err := h.deps.SubmitVoice(r.Context(), requestID, audio, level)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	status := http.StatusAccepted
	if dup {
		status = http.StatusOK
	}
	writeJSON(w, status, voiceResponse{Job: job, Duplicate: dup})
}

// HandleGetJob handles GET /capture/jobs/{id} requests.
func (h *AssistantHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	job, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *AssistantHandler) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxAudioBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: audio exceeds %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: read audio: %v", ErrBadRequest, err)
	}
	return audio, nil
}
