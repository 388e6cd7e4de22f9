package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xiinko_cycles_total",
			Help: "Total number of completed trading cycles",
		},
	)

	signalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xiinko_signals_total",
			Help: "Signals produced per direction",
		},
		[]string{"direction"},
	)

	tradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xiinko_trades_total",
			Help: "Executed trades",
		},
		[]string{"inst", "side"},
	)

	orderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xiinko_order_failures_total",
			Help: "Order placement failures by error kind",
		},
		[]string{"kind"},
	)

	orderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xiinko_order_duration_seconds",
			Help:    "Market order round-trip duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		},
	)

	openPositions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xiinko_open_positions",
			Help: "Number of open positions",
		},
	)

	wsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xiinko_websocket_connected",
			Help: "Market data websocket status (0=down, 1=up)",
		},
	)
)

func RecordCycle()                         { cyclesTotal.Inc() }
func RecordSignal(direction string)        { signalsTotal.WithLabelValues(direction).Inc() }
func RecordTrade(inst, side string)        { tradesTotal.WithLabelValues(inst, side).Inc() }
func RecordOrderFailure(kind string)       { orderFailuresTotal.WithLabelValues(kind).Inc() }
func ObserveOrderDuration(d time.Duration) { orderDuration.Observe(d.Seconds()) }
func SetOpenPositions(n int)               { openPositions.Set(float64(n)) }

func SetWSConnected(up bool) {
	if up {
		wsConnected.Set(1)
		return
	}
	wsConnected.Set(0)
}
