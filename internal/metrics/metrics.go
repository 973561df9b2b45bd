// Package metrics holds Prometheus instruments used across the service.
// All collectors are registered with the global registry, so mounting
// promhttp.Handler() in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by the counters below.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	SubscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_subscriptions_total",
			Help: "Subscription submissions by terminal outcome.",
		}, []string{"outcome"})

	ConfirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_confirmations_total",
			Help: "Confirmation requests by terminal outcome.",
		}, []string{"outcome"})

	EmailDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_email_deliveries_total",
			Help: "Calls to the email provider by result (sent, rejected, error).",
		}, []string{"result"})

	EmailDeliverySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsletter_email_delivery_seconds",
			Help:    "Wall-clock duration of email provider calls.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		})
)

func init() {
	prometheus.MustRegister(
		SubscriptionsTotal,
		ConfirmationsTotal,
		EmailDeliveriesTotal,
		EmailDeliverySeconds,
	)
}
