package pioneer

import (
	"errors"
	"net/http"
	"strconv"

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

type stakeRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request, accountID string) {
	var req stakeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	capital, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	p, err := h.svc.Join(accountID, capital)
	if err != nil {
		writeStakeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) AddCapital(w http.ResponseWriter, r *http.Request, accountID string) {
	var req stakeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	extra, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	p, err := h.svc.AddCapital(accountID, extra)
	if err != nil {
		writeStakeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func writeStakeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBelowMinStake),
		errors.Is(err, ErrBelowMinAdd),
		errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ledger.ErrInsufficientBalance):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotMember):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
	}
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request, accountID string) {
	payout, err := h.svc.Withdraw(accountID)
	if err != nil {
		writeStakeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"payout": payout})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, accountID string) {
	p, ok := h.svc.Member(accountID)
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account is not a pioneer"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"pioneer":    p,
		"top_ranked": p.Rank <= TopN,
	})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := TopN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"pioneers": h.svc.Leaderboard(limit),
		"total":    h.svc.Size(),
	})
}
