package membership

import (
	"errors"
	"net/http"

	"numa-sim/internal/httputil"
	"numa-sim/internal/ledger"
	"numa-sim/internal/types"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Catalog lists the purchasable tiers with their prices per duration.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	type offer struct {
		Months int    `json:"months"`
		Price  string `json:"price"`
	}
	catalog := map[types.Tier][]offer{}
	for _, tier := range []types.Tier{types.TierPlus, types.TierVip} {
		for _, months := range Durations() {
			price, _ := Price(tier, months)
			catalog[tier] = append(catalog[tier], offer{Months: months, Price: price.String()})
		}
	}
	httputil.WriteJSON(w, http.StatusOK, catalog)
}

type purchaseRequest struct {
	Tier   types.Tier `json:"tier"`
	Months int        `json:"months"`
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request, accountID string) {
	var req purchaseRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	acc, err := h.svc.Purchase(accountID, req.Tier, req.Months)
	if err != nil {
		writePurchaseError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acc)
}

type externalRequest struct {
	AccountID string     `json:"account_id"`
	Tier      types.Tier `json:"tier"`
	Months    int        `json:"months"`
	Reference string     `json:"reference"`
}

// ApplyExternal is the internal endpoint the payment collaborator calls once
// a real-money purchase settles.
func (h *Handler) ApplyExternal(w http.ResponseWriter, r *http.Request) {
	var req externalRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	acc, err := h.svc.ApplyExternal(req.AccountID, req.Tier, req.Months, req.Reference)
	if err != nil {
		writePurchaseError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acc)
}

func writePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidTier), errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ledger.ErrInsufficientBalance):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrAccountNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
	}
}
