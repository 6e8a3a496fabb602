package marketdata

import (
	"net/http"
	"strconv"

	"numa-sim/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	feed *Feed
}

func NewHandler(feed *Feed) *Handler {
	return &Handler{feed: feed}
}

// Pairs lists the tradeable pairs and their trading parameters.
func (h *Handler) Pairs(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, Specs())
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	price, err := h.feed.Current(symbol)
	if err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"price":  price,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	ticks, err := h.feed.History(symbol, limit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ticks)
}
