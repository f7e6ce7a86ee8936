package api

import (
	"context"
	"net/http"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/model"
)

// RoutineDependencies defines the interface for focus routines.
type RoutineDependencies interface {
	Routines(ctx context.Context) []model.Routine
	StartRoutine(ctx context.Context, key string) (service.RoutineView, error)
	RoutineSession(ctx context.Context) (service.RoutineView, error)
	ResumeRoutine(ctx context.Context) (service.RoutineView, error)
	PauseRoutine(ctx context.Context) (service.RoutineView, error)
	SkipRoutineStep(ctx context.Context) (service.RoutineView, error)
	ResetRoutine(ctx context.Context) error
}

// RoutinesHandler handles focus routine requests.
type RoutinesHandler struct {
	deps RoutineDependencies
}

// NewRoutinesHandler creates a new routines handler.
func NewRoutinesHandler(deps RoutineDependencies) *RoutinesHandler {
	return &RoutinesHandler{deps: deps}
}

type startRoutineRequest struct {
	Routine string `json:"routine"`
}

// HandleList handles GET /routines requests.
func (h *RoutinesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Routines(r.Context()))
}

// HandleStart handles POST /routines/session requests. Any active session
// is replaced.
func (h *RoutinesHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_routine"
	var req startRoutineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	if req.Routine == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	view, err := h.deps.StartRoutine(r.Context(), req.Routine)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleSession handles GET /routines/session requests.
func (h *RoutinesHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.routine_session", h.deps.RoutineSession)
}

// HandlePause handles POST /routines/session/pause requests.
func (h *RoutinesHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.pause_routine", h.deps.PauseRoutine)
}

// HandleResume handles POST /routines/session/resume requests.
func (h *RoutinesHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.resume_routine", h.deps.ResumeRoutine)
}

// HandleSkip handles POST /routines/session/skip requests.
func (h *RoutinesHandler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.skip_routine_step", h.deps.SkipRoutineStep)
}

// HandleReset handles POST /routines/session/reset requests.
func (h *RoutinesHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_routine"
	if err := h.deps.ResetRoutine(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoutinesHandler) respond(w http.ResponseWriter, r *http.Request, op string,
	call func(context.Context) (service.RoutineView, error)) {
	view, err := call(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
