package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loginOutcomesTotal counts login attempts by result.
	// Labels:
	// - result: success | failure | throttled
	loginOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "auth",
			Name:      "login_outcomes_total",
			Help:      "Login outcomes by result.",
		},
		[]string{"result"},
	)

	// gateRejectionsTotal counts requests rejected by the session or token gate.
	// Labels:
	// - gate: session | token
	gateRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "auth",
			Name:      "gate_rejections_total",
			Help:      "Requests rejected as unauthorized by gate type.",
		},
		[]string{"gate"},
	)
)

// IncLoginOutcome increments the login outcome counter.
func IncLoginOutcome(result string) {
	if result == "" {
		result = "unknown"
	}
	loginOutcomesTotal.WithLabelValues(result).Inc()
}

func IncGateRejection(gate string) {
	if gate == "" {
		gate = "unknown"
	}
	gateRejectionsTotal.WithLabelValues(gate).Inc()
}

// rateLimitExceeded counts HTTP 429 responses.
// Labels:
// - endpoint: short name like "auth:login"
var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mailer",
		Subsystem: "http",
		Name:      "rate_limit_exceeded_total",
		Help:      "Number of requests rejected due to rate limiting (HTTP 429)",
	},
	[]string{"endpoint"},
)

func IncRateLimitExceeded(endpoint string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	rateLimitExceeded.WithLabelValues(endpoint).Inc()
}
