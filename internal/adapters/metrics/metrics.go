package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CampaignsDispatched counts provider dispatches by source and mode.
	CampaignsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_campaigns_dispatched_total",
			Help: "Campaign dispatches by source (manual, schedule), mode (single, batch) and result",
		},
		[]string{"source", "mode", "result"},
	)

	// RecipientsDispatched counts addresses handed to the provider.
	RecipientsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_recipients_dispatched_total",
			Help: "Recipient addresses handed to the email provider",
		},
		[]string{"source"},
	)

	// SchedulesProcessed counts schedule outcomes.
	SchedulesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_schedules_processed_total",
			Help: "Scheduled sends by terminal status, or skipped when claimed elsewhere",
		},
		[]string{"status"},
	)

	// WebhookEvents counts engagement events by kind and outcome.
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_webhook_events_total",
			Help: "Provider engagement events by event kind and outcome",
		},
		[]string{"event", "outcome"},
	)

	// OutboxPublished counts outbox relay attempts.
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_outbox_publish_total",
			Help: "Outbox publish attempts by topic and result",
		},
		[]string{"topic", "result"},
	)

	// HTTPRequestDuration observes request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// DBQueryDuration observes query latency.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)
)

// RecordDispatch records one provider dispatch.
func RecordDispatch(source, mode string, recipients int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CampaignsDispatched.WithLabelValues(source, mode, result).Inc()
	if err == nil {
		RecipientsDispatched.WithLabelValues(source).Add(float64(recipients))
	}
}

// RecordSchedule records a schedule outcome.
func RecordSchedule(status string) {
	SchedulesProcessed.WithLabelValues(status).Inc()
}

// RecordWebhookEvent records how one engagement event was handled.
func RecordWebhookEvent(event, outcome string) {
	WebhookEvents.WithLabelValues(event, outcome).Inc()
}

// RecordOutboxPublish records one relay attempt.
func RecordOutboxPublish(topic string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OutboxPublished.WithLabelValues(topic, result).Inc()
}

// RecordHTTPRequestDuration records request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records query latency.
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
