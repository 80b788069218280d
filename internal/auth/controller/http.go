package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harel159/email-automation-system/internal/auth/domain"
	amw "github.com/harel159/email-automation-system/internal/auth/middleware"
	"github.com/harel159/email-automation-system/internal/config"
	"github.com/harel159/email-automation-system/internal/platform/ratelimit"
	"github.com/harel159/email-automation-system/internal/platform/validation"
)

type Controller struct {
	svc domain.Service
	cfg config.Config
	rl  ratelimit.Store
}

func New(svc domain.Service, cfg config.Config) *Controller {
	return &Controller{svc: svc, cfg: cfg}
}

// WithRateLimit throttles login attempts per client address.
func (h *Controller) WithRateLimit(store ratelimit.Store) *Controller {
	h.rl = store
	return h
}

// Register mounts /api/login, /api/logout and /api/check-auth.
func (h *Controller) Register(e *echo.Echo) {
	loginMW := []echo.MiddlewareFunc{}
	if h.rl != nil {
		loginMW = append(loginMW, ratelimit.Middleware(ratelimit.Policy{
			Name:   "auth:login",
			Limit:  h.cfg.LoginRateLimit,
			Window: h.cfg.LoginRateWindow,
			Key:    ratelimit.KeyIP,
		}, h.rl))
	}
	e.POST("/api/login", h.login, loginMW...)
	e.POST("/api/logout", h.logout)
	e.GET("/api/check-auth", h.checkAuth)
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"` // CryptoJS ciphertext
}

type userResp struct {
	Email string `json:"email"`
}

type checkAuthResp struct {
	Authenticated bool      `json:"authenticated"`
	User          *userResp `json:"user,omitempty"`
}

// login godoc
// @Summary  Operator login
// @Accept   json
// @Produce  json
// @Param    body  body  loginReq  true  "email and encrypted password"
// @Success  200  {object}  checkAuthResp
// @Failure  400  {object}  map[string]string
// @Failure  401  {object}  map[string]string
// @Failure  429  {object}  map[string]string
// @Router   /api/login [post]
func (h *Controller) login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	sess, err := h.svc.Login(c.Request().Context(), domain.LoginInput{
		Email:             req.Email,
		EncryptedPassword: req.Password,
		IP:                c.RealIP(),
		UserAgent:         c.Request().UserAgent(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		c.Logger().Errorf("login: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
	}
	c.SetCookie(h.cookie(sess.Token, sess.ExpiresAt))
	return c.JSON(http.StatusOK, checkAuthResp{Authenticated: true, User: &userResp{Email: sess.Email}})
}

func (h *Controller) logout(c echo.Context) error {
	if ck, err := c.Cookie(h.cfg.SessionCookieName); err == nil && ck.Value != "" {
		if err := h.svc.Logout(c.Request().Context(), ck.Value); err != nil {
			c.Logger().Errorf("logout: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "logout failed"})
		}
	}
	expired := h.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	c.SetCookie(expired)
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Controller) checkAuth(c echo.Context) error {
	ck, err := c.Cookie(h.cfg.SessionCookieName)
	if err != nil || ck.Value == "" {
		return c.JSON(http.StatusUnauthorized, checkAuthResp{})
	}
	sess, err := h.svc.Resolve(c.Request().Context(), ck.Value)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, checkAuthResp{})
	}
	return c.JSON(http.StatusOK, checkAuthResp{Authenticated: true, User: &userResp{Email: sess.Email}})
}

func (h *Controller) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	}
}

// RequireSession is the gate for operator routes backed by this controller's service.
func (h *Controller) RequireSession() echo.MiddlewareFunc {
	return amw.RequireSession(h.svc, h.cfg.SessionCookieName)
}
