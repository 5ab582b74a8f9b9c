package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway metrics - Track RPC traffic to the contract gateway
var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustlens_gateway_requests_total",
			Help: "Total number of RPC requests issued to the contract gateway by method",
		},
		[]string{"method"},
	)

	GatewayRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trustlens_gateway_retries_total",
		Help: "Total number of gateway attempts that were retried",
	})

	GatewayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustlens_gateway_failures_total",
			Help: "Total number of gateway calls that failed after all attempts, by error kind",
		},
		[]string{"kind"},
	)

	GatewayCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trustlens_gateway_call_duration_seconds",
		Help:    "End-to-end duration of gateway calls including retries",
		Buckets: prometheus.DefBuckets,
	})
)

// Domain metrics - Track first-party trust data
var (
	AttestationsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trustlens_attestations_saved_total",
		Help: "Total number of attestations persisted",
	})

	ReputationsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trustlens_reputations_computed_total",
		Help: "Total number of reputation score computations",
	})

	DisputesOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trustlens_disputes_open",
		Help: "Number of disputes currently open",
	})
)

// API metrics - Track HTTP traffic
var (
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustlens_api_requests_total",
			Help: "Total number of HTTP API requests by route and status",
		},
		[]string{"route", "status"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustlens_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component"},
	)
)
