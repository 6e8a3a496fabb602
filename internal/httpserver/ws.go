package httpserver

import (
	"net/http"
	"strings"
	"time"

	"numa-sim/internal/auth"
	"numa-sim/internal/ledger"
	"numa-sim/internal/marketdata"
	"numa-sim/internal/metrics"
	"numa-sim/internal/positions"
	"numa-sim/internal/types"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// WSHandler streams quote ticks to a connected client and, on each quote, a
// throttled snapshot of the client's balances and open positions.
type WSHandler struct {
	bus      *marketdata.Bus
	authSvc  *auth.Service
	ledger   *ledger.Service
	posSvc   *positions.Service
	origin   string
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *marketdata.Bus, authSvc *auth.Service, ledgerSvc *ledger.Service, posSvc *positions.Service, origin string) *WSHandler {
	return &WSHandler{
		bus:     bus,
		authSvc: authSvc,
		ledger:  ledgerSvc,
		posSvc:  posSvc,
		origin:  origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

type accountSnapshotWS struct {
	BalanceNuma string `json:"balance_numa"`
	BalanceWld  string `json:"balance_wld"`
	OpenCount   int    `json:"open_count"`
	PnL         string `json:"pnl"`
	TS          int64  `json:"ts"`
}

func (h *WSHandler) snapshot(accountID string) (accountSnapshotWS, error) {
	acc, err := h.ledger.Get(accountID)
	if err != nil {
		return accountSnapshotWS{}, err
	}
	pnl := decimal.Zero
	open := 0
	for _, p := range h.posSvc.List(accountID) {
		if p.Status != types.PositionStatusOpen {
			continue
		}
		open++
		pnl = pnl.Add(p.PnL)
	}
	return accountSnapshotWS{
		BalanceNuma: acc.BalanceNuma.String(),
		BalanceWld:  acc.BalanceWld.String(),
		OpenCount:   open,
		PnL:         pnl.String(),
		TS:          time.Now().UnixMilli(),
	}, nil
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	// Allow both localhost and 127.0.0.1 variants for development
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browser WS clients cannot set headers; the token rides the query.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	accountID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	metrics.WebSocketClients.Inc()
	defer metrics.WebSocketClients.Dec()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	lastSnapshotAt := time.Time{}
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Type != "quote" {
				continue
			}
			if !lastSnapshotAt.IsZero() && time.Since(lastSnapshotAt) < 200*time.Millisecond {
				continue
			}
			snap, err := h.snapshot(accountID)
			if err != nil {
				continue
			}
			if err := conn.WriteJSON(marketdata.Event{Type: "account_snapshot", Data: snap}); err != nil {
				return
			}
			lastSnapshotAt = time.Now()
		case <-done:
			return
		}
	}
}
