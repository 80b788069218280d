package settings

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/harel159/email-automation-system/internal/config"
	evdomain "github.com/harel159/email-automation-system/internal/events/domain"
	rl "github.com/harel159/email-automation-system/internal/platform/ratelimit"
	ctrl "github.com/harel159/email-automation-system/internal/settings/controller"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
	repo "github.com/harel159/email-automation-system/internal/settings/repository"
	svc "github.com/harel159/email-automation-system/internal/settings/service"
)

// Register wires the settings module, registers HTTP routes and returns the
// typed reader used by the email slice.
func Register(e *echo.Echo, pg *pgxpool.Pool, cfg config.Config, auth echo.MiddlewareFunc, store rl.Store, pub evdomain.Publisher) sdomain.Service {
	r := repo.New(pg)
	s := svc.New(r)
	ctrl.New(r, s, ctrl.Defaults{
		Provider: cfg.EmailProvider,
		FromName: cfg.MailFromName,
	}).WithAuth(auth).WithRateLimit(store).WithPublisher(pub).Register(e)
	return s
}
