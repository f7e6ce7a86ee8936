package api

import (
	"context"
	"net/http"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/model"
)

// HabitDependencies defines the interface for habit operations.
type HabitDependencies interface {
	Habits(ctx context.Context) []model.Habit
	ToggleHabit(ctx context.Context, id string) (service.HabitOutcome, error)
	SweepHabits(ctx context.Context) (service.SweepOutcome, error)
}

// HabitsHandler handles habit requests.
type HabitsHandler struct {
	deps HabitDependencies
}

// NewHabitsHandler creates a new habits handler.
func NewHabitsHandler(deps HabitDependencies) *HabitsHandler {
	return &HabitsHandler{deps: deps}
}

// HandleList handles GET /habits requests.
func (h *HabitsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Habits(r.Context()))
}

// HandleToggle handles POST /habits/{id}/toggle requests.
func (h *HabitsHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_habit"
	out, err := h.deps.ToggleHabit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSweep handles POST /habits/sweep requests. The sweep is idempotent
// within a calendar day.
func (h *HabitsHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	const op = "api.sweep_habits"
	out, err := h.deps.SweepHabits(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
