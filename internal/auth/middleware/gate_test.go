package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/harel159/email-automation-system/internal/auth/domain"
)

type resolverFunc func(ctx context.Context, token string) (domain.Session, error)

func (f resolverFunc) Resolve(ctx context.Context, token string) (domain.Session, error) {
	return f(ctx, token)
}

func whoami(c echo.Context) error {
	email, _ := UserEmail(c)
	return c.String(http.StatusOK, email)
}

func TestRequireSession(t *testing.T) {
	r := resolverFunc(func(_ context.Context, token string) (domain.Session, error) {
		if token == "good" {
			return domain.Session{ID: "1", Email: "ops@example.com"}, nil
		}
		return domain.Session{}, domain.ErrSessionNotFound
	})
	e := echo.New()
	e.GET("/api/clients", whoami, RequireSession(r, "sid"))

	cases := []struct {
		name   string
		cookie *http.Cookie
		code   int
		body   string
	}{
		{"no cookie", nil, http.StatusUnauthorized, ""},
		{"unknown session", &http.Cookie{Name: "sid", Value: "bad"}, http.StatusUnauthorized, ""},
		{"wrong cookie name", &http.Cookie{Name: "other", Value: "good"}, http.StatusUnauthorized, ""},
		{"valid", &http.Cookie{Name: "sid", Value: "good"}, http.StatusOK, "ops@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestRequireAPIToken(t *testing.T) {
	e := echo.New()
	e.POST("/send", whoami, RequireAPIToken("s3cret"))

	cases := map[string]int{
		"":                 http.StatusUnauthorized,
		"s3cret":           http.StatusUnauthorized,
		"Bearer wrong":     http.StatusUnauthorized,
		"Basic s3cret":     http.StatusUnauthorized,
		"Bearer s3cret":    http.StatusOK,
		"Bearer  s3cret  ": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/send", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "header %q", header)
		if want == http.StatusOK {
			assert.Equal(t, APITokenActor, rec.Body.String())
		}
	}
}

func TestRequireAPIToken_EmptySecretRejectsAll(t *testing.T) {
	e := echo.New()
	e.POST("/send", whoami, RequireAPIToken(""))
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer ")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
