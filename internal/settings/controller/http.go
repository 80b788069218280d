package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	amw "github.com/harel159/email-automation-system/internal/auth/middleware"
	evdomain "github.com/harel159/email-automation-system/internal/events/domain"
	"github.com/harel159/email-automation-system/internal/platform/ratelimit"
	"github.com/harel159/email-automation-system/internal/platform/validation"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
)

// Defaults are the process-level values shown when a key was never set.
type Defaults struct {
	Provider string
	FromName string
	ReplyTo  string
}

// Controller exposes the runtime email settings. Only a whitelist of keys
// is accepted.
type Controller struct {
	repo     sdomain.Repository
	service  sdomain.Service
	defaults Defaults

	authMW  echo.MiddlewareFunc
	rlStore ratelimit.Store
	pub     evdomain.Publisher
}

func New(repo sdomain.Repository, service sdomain.Service, defaults Defaults) *Controller {
	return &Controller{repo: repo, service: service, defaults: defaults}
}

// WithAuth injects the session middleware for these endpoints.
func (h *Controller) WithAuth(mw echo.MiddlewareFunc) *Controller { h.authMW = mw; return h }

// WithRateLimit throttles writes through a shared Store.
func (h *Controller) WithRateLimit(store ratelimit.Store) *Controller { h.rlStore = store; return h }

// WithPublisher injects an audit event publisher.
func (h *Controller) WithPublisher(p evdomain.Publisher) *Controller { h.pub = p; return h }

// Register mounts the settings endpoints. PUT is limited to 10/min per operator.
func (h *Controller) Register(e *echo.Echo) {
	var getMW, putMW []echo.MiddlewareFunc
	if h.authMW != nil {
		getMW = append(getMW, h.authMW)
		putMW = append(putMW, h.authMW)
	}
	if h.rlStore != nil {
		putMW = append(putMW, ratelimit.Middleware(ratelimit.Policy{
			Name:   "settings:put",
			Window: time.Minute,
			Limit:  10,
			Key: func(c echo.Context) string {
				if u, ok := amw.UserEmail(c); ok {
					return "user:" + u
				}
				return ratelimit.KeyIP(c)
			},
		}, h.rlStore))
	}
	e.GET("/api/settings/email", h.getEmailSettings, getMW...)
	e.PUT("/api/settings/email", h.putEmailSettings, putMW...)
}

type settingsResponse struct {
	Provider    string `json:"provider"`
	FromName    string `json:"from_name"`
	ReplyTo     string `json:"reply_to"`
	BrevoAPIKey  string `json:"brevo_api_key,omitempty"`  // masked
	ResendAPIKey string `json:"resend_api_key,omitempty"` // masked
}

type putSettingsRequest struct {
	Provider     *string `json:"provider" validate:"omitempty,oneof=smtp brevo resend"`
	FromName     *string `json:"from_name" validate:"omitempty,max=120"`
	ReplyTo      *string `json:"reply_to" validate:"omitempty,email"`
	BrevoAPIKey  *string `json:"brevo_api_key"`
	ResendAPIKey *string `json:"resend_api_key"`
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// Get Email Settings godoc
// @Summary      Get runtime email settings
// @Description  Stored values, falling back to process config. The Brevo key is masked.
// @Tags         settings
// @Produce      json
// @Success      200  {object}  settingsResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/settings/email [get]
func (h *Controller) getEmailSettings(c echo.Context) error {
	ctx := c.Request().Context()
	prov, err := h.service.GetString(ctx, sdomain.KeyEmailProvider, h.defaults.Provider)
	if err != nil {
		c.Logger().Errorf("settings: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	from, _ := h.service.GetString(ctx, sdomain.KeyFromName, h.defaults.FromName)
	reply, _ := h.service.GetString(ctx, sdomain.KeyReplyTo, h.defaults.ReplyTo)
	brevoKey, _ := h.service.GetString(ctx, sdomain.KeyBrevoAPIKey, "")
	resendKey, _ := h.service.GetString(ctx, sdomain.KeyResendAPIKey, "")
	return c.JSON(http.StatusOK, settingsResponse{
		Provider:     prov,
		FromName:     from,
		ReplyTo:      reply,
		BrevoAPIKey:  mask(brevoKey),
		ResendAPIKey: mask(resendKey),
	})
}

// Put Email Settings godoc
// @Summary      Upsert runtime email settings
// @Description  Only the fields present in the body are written.
// @Tags         settings
// @Accept       json
// @Param        body  body  putSettingsRequest  true  "settings"
// @Success      204
// @Failure      400  {object}  validation.ErrorBody
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /api/settings/email [put]
func (h *Controller) putEmailSettings(c echo.Context) error {
	var req putSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if req.Provider != nil {
		v := strings.ToLower(strings.TrimSpace(*req.Provider))
		req.Provider = &v
	}
	if req.ReplyTo != nil {
		v := strings.TrimSpace(*req.ReplyTo)
		req.ReplyTo = &v
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}

	ctx := c.Request().Context()
	type kv struct {
		key    string
		val    *string
		secret bool
	}
	changed := make([]string, 0, 5)
	for _, f := range []kv{
		{sdomain.KeyEmailProvider, req.Provider, false},
		{sdomain.KeyFromName, req.FromName, false},
		{sdomain.KeyReplyTo, req.ReplyTo, false},
		{sdomain.KeyBrevoAPIKey, req.BrevoAPIKey, true},
		{sdomain.KeyResendAPIKey, req.ResendAPIKey, true},
	} {
		if f.val == nil {
			continue
		}
		if err := h.repo.Upsert(ctx, f.key, *f.val, f.secret); err != nil {
			c.Logger().Errorf("settings upsert %s: %v", f.key, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		changed = append(changed, f.key)
	}

	if h.pub != nil && len(changed) > 0 {
		meta := map[string]string{"changed": strings.Join(changed, ",")}
		if req.Provider != nil {
			meta[sdomain.KeyEmailProvider] = *req.Provider
		}
		if req.BrevoAPIKey != nil {
			meta[sdomain.KeyBrevoAPIKey] = "redacted"
		}
		if req.ResendAPIKey != nil {
			meta[sdomain.KeyResendAPIKey] = "redacted"
		}
		actor, _ := amw.UserEmail(c)
		_ = h.pub.Publish(ctx, evdomain.Event{Type: "settings.update.success", Actor: actor, Meta: meta, Time: time.Now()})
	}
	return c.NoContent(http.StatusNoContent)
}
