package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dependency names a backing service probed by /healthz.
type Dependency string

const (
	DependencyDB    Dependency = "db"
	DependencyRedis Dependency = "redis"
)

type probe struct {
	up      prometheus.Gauge
	latency prometheus.Histogram
}

func newProbe(dep Dependency, what string) probe {
	return probe{
		up: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "mailer",
			Subsystem: string(dep),
			Name:      "up",
			Help:      what + " availability at the last health check (1=up, 0=down).",
		}),
		latency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mailer",
			Subsystem: string(dep),
			Name:      "ping_seconds",
			Help:      what + " ping latency in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5}, // health check budget is 500ms
		}),
	}
}

var probes = map[Dependency]probe{
	DependencyDB:    newProbe(DependencyDB, "Postgres"),
	DependencyRedis: newProbe(DependencyRedis, "Redis session store"),
}

// ObservePing records one health probe; a nil err marks dep as up.
func ObservePing(dep Dependency, elapsed time.Duration, err error) {
	p, ok := probes[dep]
	if !ok {
		return
	}
	p.latency.Observe(elapsed.Seconds())
	if err != nil {
		p.up.Set(0)
		return
	}
	p.up.Set(1)
}
