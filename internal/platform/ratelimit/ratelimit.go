package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harel159/email-automation-system/internal/metrics"
)

// Policy defines a fixed-window rate limit: at most Limit requests within
// Window per derived key.
type Policy struct {
	// Name is a short identifier used for logging and metrics (e.g. "auth:login").
	Name   string
	Window time.Duration
	Limit  int
	// Key builds the bucket key for this request.
	Key func(echo.Context) string
}

// Store is a fixed-window counter store. When allowed is false, retryAfterSec
// holds the seconds until the window resets.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfterSec int, err error)
}

// Middleware enforces p against s. Store errors fail open.
func Middleware(p Policy, s Store) echo.MiddlewareFunc {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Limit <= 0 {
		p.Limit = 60
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "global"
			if p.Key != nil {
				key = p.Key(c)
			}
			allowed, retryAfter, err := s.Allow(c.Request().Context(), p.Name+":"+key, p.Limit, p.Window)
			if err != nil || allowed {
				return next(c)
			}
			metrics.IncRateLimitExceeded(p.Name)
			c.Logger().Warnf("rate limit exceeded: endpoint=%s key=%s limit=%d window=%s retry_after=%ds", p.Name, key, p.Limit, p.Window, retryAfter)
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many attempts, try again later"})
		}
	}
}

// KeyIP buckets by client address.
func KeyIP(c echo.Context) string { return "ip:" + c.RealIP() }

// memoryStore is process-local; use the Redis store when more than one
// instance serves the API.
type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

func NewMemoryStore() Store {
	return &memoryStore{now: time.Now, buckets: make(map[string]*bucket)}
}

func (m *memoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		m.buckets[key] = &bucket{start: now, count: 1}
		return true, 0, nil
	}
	if b.count < limit {
		b.count++
		return true, 0, nil
	}
	remaining := window - now.Sub(b.start)
	return false, int((remaining + time.Second - 1) / time.Second), nil
}
