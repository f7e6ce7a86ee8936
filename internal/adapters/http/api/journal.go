package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/planner"
)

// JournalDependencies defines the interface for goals, the big three, the
// capture logs, the daily focus and the planner.
type JournalDependencies interface {
	Goals(ctx context.Context) []model.Goal
	SetGoal(ctx context.Context, id int, text string) (model.Goal, error)

	BigThree(ctx context.Context) []model.BigThreeItem
	AddBigThree(ctx context.Context, text string) (model.BigThreeItem, error)
	ToggleBigThree(ctx context.Context, id string) (model.BigThreeItem, error)
	DeleteBigThree(ctx context.Context, id string) error

	QuickCaptures(ctx context.Context) []model.Entry
	AddQuickCapture(ctx context.Context, text string) (model.Entry, error)
	BrainDump(ctx context.Context) []model.Entry
	AddBrainDump(ctx context.Context, text string) (model.Entry, error)
	ClearBrainDump(ctx context.Context) error

	DailyFocus(ctx context.Context) string
	SetDailyFocus(ctx context.Context, focus string) (string, error)
	MorningBrief(ctx context.Context) planner.Brief
}

// JournalHandler handles the planning and journaling requests.
type JournalHandler struct {
	deps JournalDependencies
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(deps JournalDependencies) *JournalHandler {
	return &JournalHandler{deps: deps}
}

type focusBody struct {
	Focus string `json:"focus"`
}

// HandleListGoals handles GET /goals requests.
func (h *JournalHandler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Goals(r.Context()))
}

// HandleSetGoal handles PUT /goals/{id} requests.
func (h *JournalHandler) HandleSetGoal(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_goal"
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, fmt.Errorf("%w: goal id must be a number", ErrBadRequest))
		return
	}
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	goal, err := h.deps.SetGoal(r.Context(), id, req.Text)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// HandleListBigThree handles GET /bigthree requests.
func (h *JournalHandler) HandleListBigThree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.BigThree(r.Context()))
}

// HandleAddBigThree handles POST /bigthree requests.
func (h *JournalHandler) HandleAddBigThree(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_big_three"
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	item, err := h.deps.AddBigThree(r.Context(), req.Text)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleToggleBigThree handles POST /bigthree/{id}/toggle requests.
func (h *JournalHandler) HandleToggleBigThree(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_big_three"
	item, err := h.deps.ToggleBigThree(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleDeleteBigThree handles DELETE /bigthree/{id} requests.
func (h *JournalHandler) HandleDeleteBigThree(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_big_three"
	if err := h.deps.DeleteBigThree(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListCaptures handles GET /captures requests.
func (h *JournalHandler) HandleListCaptures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.QuickCaptures(r.Context()))
}

// HandleAddCapture handles POST /captures requests.
func (h *JournalHandler) HandleAddCapture(w http.ResponseWriter, r *http.Request) {
	h.addEntry(w, r, "api.add_capture", h.deps.AddQuickCapture)
}

// HandleListBrainDump handles GET /braindump requests.
func (h *JournalHandler) HandleListBrainDump(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.BrainDump(r.Context()))
}

// HandleAddBrainDump handles POST /braindump requests.
func (h *JournalHandler) HandleAddBrainDump(w http.ResponseWriter, r *http.Request) {
	h.addEntry(w, r, "api.add_brain_dump", h.deps.AddBrainDump)
}

// HandleClearBrainDump handles DELETE /braindump requests.
func (h *JournalHandler) HandleClearBrainDump(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_brain_dump"
	if err := h.deps.ClearBrainDump(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JournalHandler) addEntry(w http.ResponseWriter, r *http.Request, op string,
	add func(context.Context, string) (model.Entry, error)) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	entry, err := add(r.Context(), req.Text)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleGetFocus handles GET /focus requests.
func (h *JournalHandler) HandleGetFocus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, focusBody{Focus: h.deps.DailyFocus(r.Context())})
}

// HandleSetFocus handles PUT /focus requests.
func (h *JournalHandler) HandleSetFocus(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_focus"
	var req focusBody
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	focus, err := h.deps.SetDailyFocus(r.Context(), req.Focus)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, focusBody{Focus: focus})
}

// HandleBrief handles GET /planner/brief requests.
func (h *JournalHandler) HandleBrief(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.MorningBrief(r.Context()))
}
