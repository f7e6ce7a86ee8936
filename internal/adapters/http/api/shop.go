package api

import (
	"context"
	"net/http"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/model"
)

// ShopDependencies defines the interface for the reward shop.
type ShopDependencies interface {
	Shop(ctx context.Context) []model.Reward
	Purchase(ctx context.Context, rewardID string) (service.PurchaseOutcome, error)
	PurchaseHistory(ctx context.Context) []model.Purchase
}

// ShopHandler handles shop requests.
type ShopHandler struct {
	deps ShopDependencies
}

// NewShopHandler creates a new shop handler.
func NewShopHandler(deps ShopDependencies) *ShopHandler {
	return &ShopHandler{deps: deps}
}

type purchaseRequest struct {
	RewardID string `json:"reward_id"`
}

// HandleCatalog handles GET /shop requests.
func (h *ShopHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Shop(r.Context()))
}

// HandlePurchase handles POST /shop/purchase requests. Too little gold
// answers 402 and leaves the player untouched.
func (h *ShopHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	const op = "api.purchase"
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	if req.RewardID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	out, err := h.deps.Purchase(r.Context(), req.RewardID)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHistory handles GET /shop/history requests.
func (h *ShopHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.PurchaseHistory(r.Context()))
}
