package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ctrl "github.com/harel159/email-automation-system/internal/auth/controller"
	"github.com/harel159/email-automation-system/internal/auth/domain"
	amw "github.com/harel159/email-automation-system/internal/auth/middleware"
	svc "github.com/harel159/email-automation-system/internal/auth/service"
	"github.com/harel159/email-automation-system/internal/auth/session"
	"github.com/harel159/email-automation-system/internal/config"
	evdomain "github.com/harel159/email-automation-system/internal/events/domain"
	rl "github.com/harel159/email-automation-system/internal/platform/ratelimit"
)

// Registrar owns the auth routes and hands out the two gates used by the
// other slices.
type Registrar struct {
	ctrl *ctrl.Controller

	Session echo.MiddlewareFunc
	Token   echo.MiddlewareFunc
	// Limiter is shared with other slices that throttle writes.
	Limiter rl.Store
}

// NewRegistrar wires sessions and login throttling on Redis when rc is
// non-nil, in memory otherwise.
func NewRegistrar(cfg config.Config, rc *redis.Client, pub evdomain.Publisher, log zerolog.Logger) *Registrar {
	var (
		store   domain.SessionStore
		rlStore rl.Store
	)
	if rc != nil {
		store = session.NewRedisStore(rc)
		rlStore = rl.NewRedisStore(rc)
	} else {
		store = session.NewMemoryStore()
		rlStore = rl.NewMemoryStore()
	}
	authSvc := svc.New(cfg, store, pub, log)
	c := ctrl.New(authSvc, cfg).WithRateLimit(rlStore)
	return &Registrar{
		ctrl:    c,
		Session: c.RequireSession(),
		Token:   amw.RequireAPIToken(cfg.EmailAPIToken),
		Limiter: rlStore,
	}
}

func (r *Registrar) Register(e *echo.Echo) {
	r.ctrl.Register(e)
}
