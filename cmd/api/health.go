package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/harel159/email-automation-system/internal/metrics"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler reports database and cache reachability. The cache is
// "disabled" when no Redis client is configured. The endpoint always
// answers 200 so that load balancers can read the body.
func healthHandler(pg pinger, rc *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		dbStatus := ping(metrics.DependencyDB, func() error { return pg.Ping(ctx) })

		cacheStatus := "disabled"
		if rc != nil {
			cacheStatus = ping(metrics.DependencyRedis, func() error { return rc.Ping(ctx).Err() })
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
			"db":     dbStatus,
			"cache":  cacheStatus,
		})
	}
}

func ping(dep metrics.Dependency, fn func() error) string {
	start := time.Now()
	err := fn()
	metrics.ObservePing(dep, time.Since(start), err)
	if err != nil {
		return "down"
	}
	return "ok"
}
