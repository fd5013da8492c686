// Package monitor exposes Prometheus metrics, operator alerts and the trade journal.
//
// Metrics registered in init() and served at /metrics:
//   - tradecontrol_signals_received_total
//   - tradecontrol_signals_denied_total{reason}
//   - tradecontrol_ai_score_requests_total{outcome}
//   - tradecontrol_trades_total{result}
//   - tradecontrol_orders_total{side,status}
//   - tradecontrol_open_positions
//   - tradecontrol_pending_orders
//   - tradecontrol_daily_pnl_sol
//   - tradecontrol_circuit_breaker_trips_total
//   - tradecontrol_stream_reconnects_total
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mtxSignalsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradecontrol_signals_received_total",
			Help: "Mint events received from the market stream",
		},
	)

	mtxSignalsDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecontrol_signals_denied_total",
			Help: "Signals dropped before execution, by stage",
		},
		[]string{"reason"}, // filter|strategy|risk|campaign|capacity
	)

	mtxAIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecontrol_ai_score_requests_total",
			Help: "Analyzer lookups by outcome",
		},
		[]string{"outcome"}, // scored|unavailable
	)

	mtxTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecontrol_trades_total",
			Help: "Closed trades by result",
		},
		[]string{"result"}, // win|loss
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecontrol_orders_total",
			Help: "Orders leaving the pending ledger",
		},
		[]string{"side", "status"},
	)

	mtxOpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradecontrol_open_positions",
			Help: "Currently open positions",
		},
	)

	mtxPendingOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradecontrol_pending_orders",
			Help: "Orders awaiting completion",
		},
	)

	mtxDailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradecontrol_daily_pnl_sol",
			Help: "Realized PnL for the current UTC day in SOL",
		},
	)

	mtxBreakerTrips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradecontrol_circuit_breaker_trips_total",
			Help: "Times the circuit breaker moved to open",
		},
	)

	mtxStreamReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradecontrol_stream_reconnects_total",
			Help: "Market stream reconnection attempts",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxSignalsReceived, mtxSignalsDenied, mtxAIRequests)
	prometheus.MustRegister(mtxTrades, mtxOrders)
	prometheus.MustRegister(mtxOpenPositions, mtxPendingOrders, mtxDailyPnL)
	prometheus.MustRegister(mtxBreakerTrips, mtxStreamReconnects)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func SignalReceived() { mtxSignalsReceived.Inc() }

func SignalDenied(reason string) { mtxSignalsDenied.WithLabelValues(reason).Inc() }

// AIScoreRequest counts an analyzer lookup; scored is false when no verdict came back
func AIScoreRequest(scored bool) {
	outcome := "scored"
	if !scored {
		outcome = "unavailable"
	}
	mtxAIRequests.WithLabelValues(outcome).Inc()
}

// TradeClosed counts a closed trade as a win (pnl >= 0) or loss
func TradeClosed(pnlSOL float64) {
	result := "win"
	if pnlSOL < 0 {
		result = "loss"
	}
	mtxTrades.WithLabelValues(result).Inc()
}

func OrderCompleted(side, status string) { mtxOrders.WithLabelValues(side, status).Inc() }

func SetOpenPositions(n int) { mtxOpenPositions.Set(float64(n)) }

func SetPendingOrders(n int) { mtxPendingOrders.Set(float64(n)) }

func SetDailyPnL(sol float64) { mtxDailyPnL.Set(sol) }

func BreakerTripped() { mtxBreakerTrips.Inc() }

func StreamReconnected() { mtxStreamReconnects.Inc() }
