package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"numa-sim/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request, accountID string) {
	acc, err := h.svc.Get(accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acc)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request, accountID string) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	if limit > 200 {
		limit = 200
	}
	txs, err := h.svc.Transactions(accountID, limit)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}
