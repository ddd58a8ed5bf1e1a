// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PartnerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_requests_total",
			Help: "Total outbound requests per partner",
		},
		[]string{"partner", "operation"},
	)

	PartnerRequestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_request_failures_total",
			Help: "Total failed outbound requests per partner",
		},
		[]string{"partner", "operation", "error_code"},
	)

	PartnerRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_request_retries_total",
			Help: "Total retry attempts per partner",
		},
		[]string{"partner"},
	)

	OffersCompared = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_compared_total",
			Help: "Offers flowing through the comparison pipeline",
		},
		[]string{"partner"},
	)

	ComparisonDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "comparison_duration_seconds",
			Help: "End-to-end duration of an offer comparison",
		},
		[]string{"product"},
	)

	WebhooksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_processed_total",
			Help: "Webhook deliveries by partner and outcome",
		},
		[]string{"partner", "outcome"},
	)
)
