package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout initiation outcomes and latency.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	success  prometheus.Counter
	failure  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout initiations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_success",
		Help: "Successful checkout initiations.",
	})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure",
		Help: "Failed checkout initiations.",
	}, []string{"reason"})
	reg.MustRegister(duration, success, failure)
	return &CheckoutMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records checkout latency for the given outcome.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncSuccess increments the successful checkout counter.
func (c *CheckoutMetrics) IncSuccess() {
	if c == nil || c.success == nil {
		return
	}
	c.success.Inc()
}

// IncFailure increments the failed checkout counter for the given reason.
func (c *CheckoutMetrics) IncFailure(reason string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// WebhookMetrics counts received webhook events by type and outcome.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events received, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

// IncEvent increments the webhook counter for the given event type and outcome.
func (w *WebhookMetrics) IncEvent(eventType, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// NotifierMetrics counts email delivery attempts by outcome.
type NotifierMetrics struct {
	emails *prometheus.CounterVec
}

// NewNotifierMetrics registers the notifier metrics on the provided registerer.
func NewNotifierMetrics(reg prometheus.Registerer) *NotifierMetrics {
	if reg == nil {
		return &NotifierMetrics{}
	}
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_emails_total",
		Help: "Confirmation emails attempted, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(emails)
	return &NotifierMetrics{emails: emails}
}

// IncEmail increments the email counter for the given outcome.
func (n *NotifierMetrics) IncEmail(outcome string) {
	if n == nil || n.emails == nil {
		return
	}
	n.emails.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
