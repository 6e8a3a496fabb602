package positions

import (
	"errors"
	"net/http"

	"numa-sim/internal/httputil"
	"numa-sim/internal/ledger"
	"numa-sim/internal/marketdata"
	"numa-sim/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type openRequest struct {
	Pair     string `json:"pair"`
	Side     string `json:"side"`
	Amount   string `json:"amount"`
	Leverage int    `json:"leverage"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request, accountID string) {
	var req openRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	pos, err := h.svc.Open(accountID, req.Pair, types.Side(req.Side), amount, req.Leverage)
	if err != nil {
		writeOpenError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pos)
}

func writeOpenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketdata.ErrPairNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "pair not found"})
	case errors.Is(err, ErrLeverageExceeded),
		errors.Is(err, ErrInvalidLeverage),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidSide),
		errors.Is(err, ledger.ErrInsufficientBalance):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
	}
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, accountID string) {
	positionID := chi.URLParam(r, "positionID")
	pos, err := h.svc.Close(accountID, positionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPositionNotFound):
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "position not found"})
		case errors.Is(err, ErrAlreadyClosed):
			httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "position already closed"})
		default:
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pos)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, accountID string) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"positions": h.svc.List(accountID)})
}
