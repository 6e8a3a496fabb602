package auth

import (
	"errors"
	"net/http"

	"numa-sim/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var proof Proof
	if err := httputil.ReadJSON(r, &proof); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	token, acc, created, err := h.svc.Verify(proof)
	if err != nil {
		if errors.Is(err, ErrInvalidProof) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, map[string]any{
		"token":   token,
		"account": acc,
	})
}
