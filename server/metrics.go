package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's prometheus instruments.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	SessionsActive prometheus.Gauge
	MessagesTotal  prometheus.Counter
}

// NewMetrics registers the server instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "genstack_runs_total",
			Help: "Workflow execution runs by outcome.",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "genstack_run_duration_seconds",
			Help:    "Wall-clock duration of workflow execution runs.",
			Buckets: prometheus.DefBuckets,
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "genstack_sessions_active",
			Help: "Currently attached chat sessions.",
		}),
		MessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "genstack_chat_messages_total",
			Help: "User messages accepted over chat sessions.",
		}),
	}
}
