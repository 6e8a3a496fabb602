package accounts

import (
	"errors"
	"net/http"

	"numa-sim/internal/httputil"
	"numa-sim/internal/ledger"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type referralRequest struct {
	ReferrerID string `json:"referrer_id"`
	ReferredID string `json:"referred_id"`
	Reward     string `json:"reward"`
}

// Referral is the internal endpoint the referral collaborator calls when a
// referred account completes verification.
func (h *Handler) Referral(w http.ResponseWriter, r *http.Request) {
	var req referralRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	reward, err := decimal.NewFromString(req.Reward)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid reward"})
		return
	}
	if err := h.svc.ReferralReward(req.ReferrerID, req.ReferredID, reward); err != nil {
		switch {
		case errors.Is(err, ErrInvalidReward):
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		case errors.Is(err, ledger.ErrAccountNotFound):
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
		default:
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "credited"})
}
