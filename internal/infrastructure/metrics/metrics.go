// Package metrics exposes Prometheus counters and gauges the bot updates
// during operation:
//   - bot_orders_total{mode,side}  orders placed (mode: paper|live)
//   - bot_fills_total{side}        fills applied during reconciliation
//   - bot_cycles_total{symbol}     evaluation cycles completed
//   - bot_cycle_errors_total{symbol} cycles aborted by an error or panic
//   - bot_stop_exits_total{symbol} stop-loss liquidations
//   - bot_position_usd{symbol}     current position cost basis (gauge)
//   - bot_rsi{symbol}              last computed RSI (gauge)
//   - bot_realized_pnl_usd         cumulative realized P&L (gauge)
//
// Registered in init() and served at /metrics by the web server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders placed",
		},
		[]string{"mode", "side"},
	)

	mtxFills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_fills_total",
			Help: "Order fills applied during reconciliation",
		},
		[]string{"side"},
	)

	mtxCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Evaluation cycles completed",
		},
		[]string{"symbol"},
	)

	mtxCycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_cycle_errors_total",
			Help: "Evaluation cycles aborted by an error or panic",
		},
		[]string{"symbol"},
	)

	mtxStopExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_stop_exits_total",
			Help: "Stop-loss liquidations",
		},
		[]string{"symbol"},
	)

	mtxPositionUSD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_position_usd",
			Help: "Current position cost basis in USD",
		},
		[]string{"symbol"},
	)

	mtxRSI = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_rsi",
			Help: "Last computed RSI value",
		},
		[]string{"symbol"},
	)

	mtxRealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_realized_pnl_usd",
			Help: "Cumulative realized P&L in USD",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxOrders, mtxFills)
	prometheus.MustRegister(mtxCycles, mtxCycleErrors, mtxStopExits)
	prometheus.MustRegister(mtxPositionUSD, mtxRSI, mtxRealizedPnL)
}

func IncOrderPlaced(mode, side string) { mtxOrders.WithLabelValues(mode, side).Inc() }
func IncFill(side string)              { mtxFills.WithLabelValues(side).Inc() }
func IncCycle(symbol string)           { mtxCycles.WithLabelValues(symbol).Inc() }
func IncCycleError(symbol string)      { mtxCycleErrors.WithLabelValues(symbol).Inc() }
func IncStopExit(symbol string)        { mtxStopExits.WithLabelValues(symbol).Inc() }

func SetPositionUSD(symbol string, v float64) { mtxPositionUSD.WithLabelValues(symbol).Set(v) }
func SetRSI(symbol string, v float64)         { mtxRSI.WithLabelValues(symbol).Set(v) }
func AddRealizedPnL(v float64)                { mtxRealizedPnL.Add(v) }
