package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transfer outcomes used as the "outcome" label.
const (
	OutcomeCompleted         = "completed"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeInvalidRequest    = "invalid_request"
	OutcomeRecipientNotFound = "recipient_not_found"
	OutcomeAccountNotFound   = "account_not_found"
	OutcomeSelfTransfer      = "self_transfer"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeFailed            = "failed"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)
	HandlerPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_handler_panics_total",
			Help: "Panics recovered in HTTP handlers",
		},
		[]string{"route"},
	)

	// Transfers
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Transfer attempts by outcome",
		},
		[]string{"outcome"},
	)
	TransferDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transfer_duration_seconds",
			Help:    "Time spent in the transfer orchestrator, authorization included.",
			Buckets: prometheus.DefBuckets,
		},
	)
	OneTimeTokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "one_time_tokens_issued_total",
			Help: "One-time transfer tokens issued",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	WorkerRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_rejected_total",
			Help: "Jobs refused because the worker queue was full",
		},
	)
	WorkerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_panics_total",
			Help: "Jobs that panicked on a worker",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDuration,
			RequestsInFlight,
			HandlerPanics,
			TransfersTotal,
			TransferDuration,
			OneTimeTokensIssued,
			WorkerQueueDepth,
			WorkerRejected,
			WorkerPanics,
		)
	})
}
