// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for a ledger node.
type Metrics struct {
	// Transaction metrics
	TxSubmitted *prometheus.CounterVec
	TxRejected  prometheus.Counter
	TxExecuted  *prometheus.CounterVec
	TxApplyTime prometheus.Histogram

	// Registry metrics
	TokensMinted  prometheus.Counter
	TokensBurned  prometheus.Counter
	EventsEmitted *prometheus.CounterVec

	// Feed metrics
	WSClients       prometheus.Gauge
	WSEventsDropped prometheus.Counter

	// Queue metrics
	ApplyQueueDepth prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tweetstamp"
	}

	return &Metrics{
		TxSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "tx_submitted_total",
			Help:      "Total number of accepted transactions by kind",
		}, []string{"kind"}),
		TxRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "tx_rejected_total",
			Help:      "Total number of transactions rejected at submission",
		}),
		TxExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "tx_executed_total",
			Help:      "Total number of executed transactions by terminal status",
		}, []string{"status"}),
		TxApplyTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "tx_apply_seconds",
			Help:      "Transaction apply duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 10, 7),
		}),
		TokensMinted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_minted_total",
			Help:      "Total number of tokens minted",
		}),
		TokensBurned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_burned_total",
			Help:      "Total number of tokens burned",
		}),
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "events_emitted_total",
			Help:      "Total number of emitted registry events by name",
		}, []string{"name"}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ws_clients",
			Help:      "Number of connected websocket event feed clients",
		}),
		WSEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ws_events_dropped_total",
			Help:      "Total number of events dropped on stalled feed clients",
		}),
		ApplyQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "apply_queue_depth",
			Help:      "Number of transactions waiting to be applied",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
