package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mapRepo struct {
	m   map[string]string
	err error
}

func (r *mapRepo) Get(_ context.Context, key string) (string, bool, error) {
	if r.err != nil {
		return "", false, r.err
	}
	v, ok := r.m[key]
	return v, ok, nil
}

func (r *mapRepo) Upsert(_ context.Context, key, value string, _ bool) error {
	r.m[key] = value
	return nil
}

func TestService_TypedGetters(t *testing.T) {
	ctx := context.Background()
	s := New(&mapRepo{m: map[string]string{
		"email.from_name": "  Road Ops ",
		"blank":           "   ",
		"ttl":             "90s",
		"bad_ttl":         "soon",
		"n":               "7",
		"bad_n":           "seven",
	}})

	v, err := s.GetString(ctx, "email.from_name", "Road")
	assert.NoError(t, err)
	assert.Equal(t, "Road Ops", v)

	v, _ = s.GetString(ctx, "blank", "Road")
	assert.Equal(t, "Road", v)
	v, _ = s.GetString(ctx, "missing", "Road")
	assert.Equal(t, "Road", v)

	d, _ := s.GetDuration(ctx, "ttl", time.Second)
	assert.Equal(t, 90*time.Second, d)
	d, _ = s.GetDuration(ctx, "bad_ttl", time.Second)
	assert.Equal(t, time.Second, d)

	n, _ := s.GetInt(ctx, "n", 1)
	assert.Equal(t, 7, n)
	n, _ = s.GetInt(ctx, "bad_n", 1)
	assert.Equal(t, 1, n)
}

func TestService_RepoErrorReturnsDefault(t *testing.T) {
	s := New(&mapRepo{err: errors.New("db down")})
	v, err := s.GetString(context.Background(), "email.provider", "smtp")
	assert.Error(t, err)
	assert.Equal(t, "smtp", v)
}
