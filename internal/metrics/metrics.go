// Package metrics provides Prometheus instrumentation for the engines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PositionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numa_positions_opened_total",
		Help: "Positions opened, by pair",
	}, []string{"pair"})

	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numa_positions_closed_total",
		Help: "Positions closed voluntarily, by pair",
	}, []string{"pair"})

	PositionsLiquidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numa_positions_liquidated_total",
		Help: "Positions force-closed by the liquidation check, by pair",
	}, []string{"pair"})

	RewardClaims = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numa_reward_claims_total",
		Help: "Successful staking reward claims",
	})

	PioneerJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numa_pioneer_joins_total",
		Help: "Pioneer pool joins",
	})

	PioneerWithdrawals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numa_pioneer_withdrawals_total",
		Help: "Pioneer pool withdrawals",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "numa_price_tick_duration_seconds",
		Help:    "Duration of one price tick including liquidation checks",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numa_websocket_clients",
		Help: "Connected quote stream clients",
	})

	OutboxPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numa_outbox_pending",
		Help: "Change events waiting for persistence sync",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
