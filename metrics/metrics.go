// Package metrics exposes the coordinator's Prometheus instrumentation
// (spec.md §5's ambient observability concerns, not excluded by spec.md's
// feature Non-goals), grounded on degeri-dcrlnd's own direct dependency on
// github.com/prometheus/client_golang for its monitoring surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SwapsByStatus tracks how many swaps currently sit in each status,
	// set by swapmonitor on every tick.
	SwapsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "otc",
		Name:      "swaps_by_status",
		Help:      "Number of swaps currently in each status.",
	}, []string{"status"})

	// MonitorTickDuration measures how long one swapmonitor tick takes
	// across all live swaps.
	MonitorTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "otc",
		Name:      "monitor_tick_duration_seconds",
		Help:      "Duration of a single swap-monitoring tick.",
		Buckets:   prometheus.DefBuckets,
	})

	// BroadcastQueueDepth tracks how many requests are currently queued in
	// the EVM broadcaster.
	BroadcastQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "otc",
		Name:      "broadcast_queue_depth",
		Help:      "Number of EVM broadcast requests currently queued.",
	})

	// BroadcastOutcomes counts terminal broadcast results by success/failure.
	BroadcastOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otc",
		Name:      "broadcast_outcomes_total",
		Help:      "Terminal EVM broadcast outcomes.",
	}, []string{"result"})

	// RFQRequestsTotal counts RFQ solicitations by outcome.
	RFQRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otc",
		Name:      "rfq_requests_total",
		Help:      "RFQ solicitations by outcome.",
	}, []string{"outcome"})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
