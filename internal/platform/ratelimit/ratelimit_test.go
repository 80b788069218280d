package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_FixedWindow(t *testing.T) {
	s := NewMemoryStore().(*memoryStore)
	base := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return base }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := s.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retry, err := s.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 60, retry)

	s.now = func() time.Time { return base.Add(time.Minute) }
	ok, _, _ = s.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, ok)
}

func TestRedisStore_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	s := NewRedisStore(rc)
	ctx := context.Background()

	ok, _, err := s.Allow(ctx, "login", 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, retry, err := s.Allow(ctx, "login", 1, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 30, retry)

	mr.FastForward(31 * time.Second)
	ok, _, err = s.Allow(ctx, "login", 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMiddleware_Returns429WithRetryAfter(t *testing.T) {
	e := echo.New()
	mw := Middleware(Policy{Name: "auth:login", Limit: 1, Window: time.Minute, Key: KeyIP}, NewMemoryStore())
	e.POST("/api/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, assert.AnError
}

func TestMiddleware_FailsOpenOnStoreError(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Middleware(Policy{Name: "x", Limit: 1}, failingStore{}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
