package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/harel159/email-automation-system/internal/auth/domain"
	"github.com/harel159/email-automation-system/internal/metrics"
)

const (
	ctxUserEmailKey = "auth_user_email"
	ctxSessionKey   = "auth_session"

	// APITokenActor identifies requests authenticated by the static bearer token.
	APITokenActor = "api-token"
)

// RequireSession rejects requests without a live session cookie and stores
// the operator's email in the context.
func RequireSession(r domain.Resolver, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				metrics.IncGateRejection("session")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			sess, err := r.Resolve(c.Request().Context(), cookie.Value)
			if err != nil {
				metrics.IncGateRejection("session")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			c.Set(ctxSessionKey, sess)
			c.Set(ctxUserEmailKey, sess.Email)
			return next(c)
		}
	}
}

// RequireAPIToken compares "Authorization: Bearer <token>" against the
// configured secret. An empty secret rejects every request.
func RequireAPIToken(token string) echo.MiddlewareFunc {
	want := []byte(token)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			got, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || len(want) == 0 || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
				metrics.IncGateRejection("token")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			c.Set(ctxUserEmailKey, APITokenActor)
			return next(c)
		}
	}
}

// UserEmail returns the authenticated operator (or APITokenActor) from context.
func UserEmail(c echo.Context) (string, bool) {
	v, ok := c.Get(ctxUserEmailKey).(string)
	return v, ok && v != ""
}

// CurrentSession returns the session loaded by RequireSession.
func CurrentSession(c echo.Context) (domain.Session, bool) {
	s, ok := c.Get(ctxSessionKey).(domain.Session)
	return s, ok
}
