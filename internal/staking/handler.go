package staking

import (
	"errors"
	"net/http"

	"numa-sim/internal/httputil"
	"numa-sim/internal/ledger"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request, accountID string) {
	st, err := h.svc.Status(accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) Claim(w http.ResponseWriter, r *http.Request, accountID string) {
	acc, reward, err := h.svc.Claim(accountID)
	if err != nil {
		switch {
		case errors.Is(err, ErrClaimNotReady):
			httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "claim window not elapsed"})
		case errors.Is(err, ledger.ErrAccountNotFound):
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
		default:
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"reward":  reward,
		"account": acc,
	})
}
