package api

import (
	"context"
	"net/http"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/model"
)

// PlayerDependencies defines the interface for reading the player.
type PlayerDependencies interface {
	Player(ctx context.Context) service.PlayerStats
}

// PlayerHandler handles player requests.
type PlayerHandler struct {
	deps PlayerDependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

// HandleGetPlayer handles GET /player requests.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Player(r.Context()))
}

// TaskDependencies defines the interface for task operations.
type TaskDependencies interface {
	Tasks(ctx context.Context) []model.Task
	CreateTask(ctx context.Context, title string) (model.Task, error)
	CompleteTask(ctx context.Context, id string) (service.TaskOutcome, error)
	UncompleteTask(ctx context.Context, id string) (service.TaskOutcome, error)
	DeleteTask(ctx context.Context, id string) error
}

// TasksHandler handles task requests.
type TasksHandler struct {
	deps TaskDependencies
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(deps TaskDependencies) *TasksHandler {
	return &TasksHandler{deps: deps}
}

type createTaskRequest struct {
	Title string `json:"title"`
}

// HandleList handles GET /tasks requests.
func (h *TasksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Tasks(r.Context()))
}

// HandleCreate handles POST /tasks requests.
func (h *TasksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_task"
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	task, err := h.deps.CreateTask(r.Context(), req.Title)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// HandleComplete handles POST /tasks/{id}/complete requests.
func (h *TasksHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete_task"
	out, err := h.deps.CompleteTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleUncomplete handles POST /tasks/{id}/uncomplete requests.
func (h *TasksHandler) HandleUncomplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.uncomplete_task"
	out, err := h.deps.UncompleteTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /tasks/{id} requests.
func (h *TasksHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_task"
	if err := h.deps.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
