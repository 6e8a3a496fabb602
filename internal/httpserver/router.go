package httpserver

import (
	"net/http"

	"numa-sim/internal/accounts"
	"numa-sim/internal/auth"
	"numa-sim/internal/httputil"
	"numa-sim/internal/ledger"
	"numa-sim/internal/marketdata"
	"numa-sim/internal/membership"
	"numa-sim/internal/metrics"
	"numa-sim/internal/pioneer"
	"numa-sim/internal/positions"
	"numa-sim/internal/staking"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler       *auth.Handler
	AccountsHandler   *accounts.Handler
	LedgerHandler     *ledger.Handler
	PositionHandler   *positions.Handler
	StakingHandler    *staking.Handler
	PioneerHandler    *pioneer.Handler
	MembershipHandler *membership.Handler
	MarketHandler     *marketdata.Handler
	AuthService       *auth.Service
	InternalTokenHash string
	WSHandler         http.Handler
}

// withAccount adapts a handler that needs the caller's account id. Must run
// under WithAuth.
func withAccount(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := AccountID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		fn(w, r, accountID)
	}
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/verify", d.AuthHandler.Verify)

		r.Get("/ws", d.WSHandler.ServeHTTP)

		r.Get("/market/pairs", d.MarketHandler.Pairs)
		r.Get("/market/quote/{symbol}", d.MarketHandler.Quote)
		r.Get("/market/history/{symbol}", d.MarketHandler.History)

		r.Get("/membership/catalog", d.MembershipHandler.Catalog)
		r.Get("/pioneer/leaderboard", d.PioneerHandler.Leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))

			r.Get("/account", withAccount(d.LedgerHandler.Account))
			r.Get("/account/transactions", withAccount(d.LedgerHandler.Transactions))

			r.Post("/positions", withAccount(d.PositionHandler.Open))
			r.Get("/positions", withAccount(d.PositionHandler.List))
			r.Post("/positions/{positionID}/close", withAccount(d.PositionHandler.Close))

			r.Get("/staking", withAccount(d.StakingHandler.Status))
			r.Post("/staking/claim", withAccount(d.StakingHandler.Claim))

			r.Get("/pioneer/me", withAccount(d.PioneerHandler.Me))
			r.Post("/pioneer/join", withAccount(d.PioneerHandler.Join))
			r.Post("/pioneer/add", withAccount(d.PioneerHandler.AddCapital))
			r.Post("/pioneer/withdraw", withAccount(d.PioneerHandler.Withdraw))

			r.Post("/membership/purchase", withAccount(d.MembershipHandler.Purchase))
		})

		r.Group(func(r chi.Router) {
			r.Use(InternalAuth(d.InternalTokenHash))
			r.Post("/internal/referrals", d.AccountsHandler.Referral)
			r.Post("/internal/payments", d.MembershipHandler.ApplyExternal)
		})
	})

	return r
}
