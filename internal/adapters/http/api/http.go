// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/assistant"
	"github.com/okian/anchor/internal/domain/economy"
)

// defaultMaxAudioBytes caps voice uploads when no limit is configured.
const defaultMaxAudioBytes = 10 << 20

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PlayerDependencies
	TaskDependencies
	HabitDependencies
	JournalDependencies
	ShopDependencies
	RoutineDependencies
	AssistantDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	playerHandler    *PlayerHandler
	tasksHandler     *TasksHandler
	habitsHandler    *HabitsHandler
	journalHandler   *JournalHandler
	shopHandler      *ShopHandler
	routinesHandler  *RoutinesHandler
	assistantHandler *AssistantHandler
}

// Option configures the Server.
type Option func(*options)

type options struct {
	maxAudioBytes int64
}

// WithMaxAudioBytes caps the size of uploaded voice notes.
func WithMaxAudioBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAudioBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{maxAudioBytes: defaultMaxAudioBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		playerHandler:    NewPlayerHandler(deps),
		tasksHandler:     NewTasksHandler(deps),
		habitsHandler:    NewHabitsHandler(deps),
		journalHandler:   NewJournalHandler(deps),
		shopHandler:      NewShopHandler(deps),
		routinesHandler:  NewRoutinesHandler(deps),
		assistantHandler: NewAssistantHandler(deps, o.maxAudioBytes),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)
	route("GET /player", "player", s.playerHandler.HandleGetPlayer)

	route("GET /tasks", "tasks", s.tasksHandler.HandleList)
	route("POST /tasks", "tasks", s.tasksHandler.HandleCreate)
	route("POST /tasks/{id}/complete", "task_complete", s.tasksHandler.HandleComplete)
	route("POST /tasks/{id}/uncomplete", "task_uncomplete", s.tasksHandler.HandleUncomplete)
	route("DELETE /tasks/{id}", "task_delete", s.tasksHandler.HandleDelete)

	route("GET /habits", "habits", s.habitsHandler.HandleList)
	route("POST /habits/sweep", "habit_sweep", s.habitsHandler.HandleSweep)
	route("POST /habits/{id}/toggle", "habit_toggle", s.habitsHandler.HandleToggle)

	route("GET /goals", "goals", s.journalHandler.HandleListGoals)
	route("PUT /goals/{id}", "goal_update", s.journalHandler.HandleSetGoal)
	route("GET /bigthree", "bigthree", s.journalHandler.HandleListBigThree)
	route("POST /bigthree", "bigthree", s.journalHandler.HandleAddBigThree)
	route("POST /bigthree/{id}/toggle", "bigthree_toggle", s.journalHandler.HandleToggleBigThree)
	route("DELETE /bigthree/{id}", "bigthree_delete", s.journalHandler.HandleDeleteBigThree)
	route("GET /captures", "captures", s.journalHandler.HandleListCaptures)
	route("POST /captures", "captures", s.journalHandler.HandleAddCapture)
	route("GET /braindump", "braindump", s.journalHandler.HandleListBrainDump)
	route("POST /braindump", "braindump", s.journalHandler.HandleAddBrainDump)
	route("DELETE /braindump", "braindump", s.journalHandler.HandleClearBrainDump)
	route("GET /focus", "focus", s.journalHandler.HandleGetFocus)
	route("PUT /focus", "focus", s.journalHandler.HandleSetFocus)
	route("GET /planner/brief", "planner_brief", s.journalHandler.HandleBrief)

	route("GET /shop", "shop", s.shopHandler.HandleCatalog)
	route("POST /shop/purchase", "shop_purchase", s.shopHandler.HandlePurchase)
	route("GET /shop/history", "shop_history", s.shopHandler.HandleHistory)

	route("GET /routines", "routines", s.routinesHandler.HandleList)
	route("GET /routines/session", "routine_session", s.routinesHandler.HandleSession)
	route("POST /routines/session", "routine_session", s.routinesHandler.HandleStart)
	route("POST /routines/session/pause", "routine_pause", s.routinesHandler.HandlePause)
	route("POST /routines/session/resume", "routine_resume", s.routinesHandler.HandleResume)
	route("POST /routines/session/skip", "routine_skip", s.routinesHandler.HandleSkip)
	route("POST /routines/session/reset", "routine_reset", s.routinesHandler.HandleReset)

	route("POST /assistant/transcribe", "assistant_transcribe", s.assistantHandler.HandleTranscribe)
	route("POST /assistant/tone", "assistant_tone", s.assistantHandler.HandleTone)
	route("POST /assistant/decompose", "assistant_decompose", s.assistantHandler.HandleDecompose)
	route("POST /capture/voice", "capture_voice", s.assistantHandler.HandleSubmitVoice)
	route("GET /capture/jobs/{id}", "capture_job", s.assistantHandler.HandleGetJob)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates a service error into a status and error code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, assistant.ErrEmptyInput),
		errors.Is(err, assistant.ErrInvalidInput),
		errors.Is(err, economy.ErrInvalidCost):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, economy.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, service.ErrBigThreeFull):
		return http.StatusConflict, "big_three_full"
	case errors.Is(err, service.ErrNoSession):
		return http.StatusConflict, "no_session"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, assistant.ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// textRequest is the body of endpoints that take a single piece of text.
type textRequest struct {
	Text string `json:"text"`
}
