package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// notificationsTotal counts notification attempts.
	// Labels:
	// - kind:    template kind such as "order_confirmation"
	// - outcome: "sent", "failed" or "skipped"
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phonemailer",
			Subsystem: "notify",
			Name:      "attempts_total",
			Help:      "Number of notification attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// gatewayDuration tracks gateway round trips.
	// Labels:
	// - endpoint: "messages" or "accounts"
	// - status:   "success" or "failure"
	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phonemailer",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of messaging gateway requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	// emailGenerations counts synthetic email operations.
	// Labels:
	// - operation: "generate", "regenerate" or "login"
	// - outcome:   "generated", "unchanged" or "invalid"
	emailGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phonemailer",
			Subsystem: "identity",
			Name:      "email_operations_total",
			Help:      "Number of synthetic email operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// workerEvents counts events handled by the worker.
	// Labels:
	// - type:   event type
	// - status: published status
	workerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phonemailer",
			Subsystem: "worker",
			Name:      "events_total",
			Help:      "Number of business events handled by the worker",
		},
		[]string{"type", "status"},
	)
)

// IncNotification increments the notification counter.
func IncNotification(kind, outcome string) {
	notificationsTotal.WithLabelValues(orUnknown(kind), orUnknown(outcome)).Inc()
}

// ObserveGatewayDuration records a gateway round trip in seconds.
func ObserveGatewayDuration(endpoint, status string, seconds float64) {
	gatewayDuration.WithLabelValues(orUnknown(endpoint), orUnknown(status)).Observe(seconds)
}

// IncEmailOperation increments the synthetic email counter.
func IncEmailOperation(operation, outcome string) {
	emailGenerations.WithLabelValues(orUnknown(operation), orUnknown(outcome)).Inc()
}

// IncWorkerEvent increments the worker event counter.
func IncWorkerEvent(eventType, status string) {
	workerEvents.WithLabelValues(orUnknown(eventType), orUnknown(status)).Inc()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
