package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// emailSendTotal counts per-recipient delivery attempts.
	// Labels:
	// - mode: bulk | test
	// - status: sent | failed
	emailSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "email",
			Name:      "send_total",
			Help:      "Email delivery attempts by mode and status.",
		},
		[]string{"mode", "status"},
	)

	// emailSendSeconds observes transport latency for a single send.
	emailSendSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mailer",
			Subsystem: "email",
			Name:      "send_seconds",
			Help:      "Mail transport latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	attachmentsMissingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mailer",
		Subsystem: "email",
		Name:      "attachments_missing_total",
		Help:      "Template attachments skipped because the file was not on disk.",
	})

	recipientsImportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "recipients",
			Name:      "imported_total",
			Help:      "Recipients processed by bulk create and spreadsheet import.",
		},
		[]string{"result"},
	)
)

// IncEmailSend increments the delivery attempt counter.
func IncEmailSend(mode, status string) {
	if mode == "" {
		mode = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	emailSendTotal.WithLabelValues(mode, status).Inc()
}

func ObserveEmailSend(provider string, seconds float64) {
	if provider == "" {
		provider = "unknown"
	}
	emailSendSeconds.WithLabelValues(provider).Observe(seconds)
}

func IncAttachmentMissing() { attachmentsMissingTotal.Inc() }

// AddRecipientsImported records created and skipped rows of one import.
func AddRecipientsImported(created, skipped int) {
	recipientsImportedTotal.WithLabelValues("created").Add(float64(created))
	recipientsImportedTotal.WithLabelValues("skipped").Add(float64(skipped))
}
