package email

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/harel159/email-automation-system/internal/config"
	ctrl "github.com/harel159/email-automation-system/internal/email/controller"
	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	repo "github.com/harel159/email-automation-system/internal/email/repository"
	svc "github.com/harel159/email-automation-system/internal/email/service"
	evdomain "github.com/harel159/email-automation-system/internal/events/domain"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
)

// Deps are the collaborators owned by other slices.
type Deps struct {
	Authorities edomain.AuthorityLookup
	Templates   edomain.TemplateSource
	Files       edomain.FileResolver
	Settings    sdomain.Service
	Publisher   evdomain.Publisher
	Session     echo.MiddlewareFunc
	Token       echo.MiddlewareFunc
}

// Register wires the email module and registers HTTP routes.
func Register(e *echo.Echo, pg *pgxpool.Pool, cfg config.Config, d Deps, log zerolog.Logger) {
	sender := svc.NewRouter(d.Settings, cfg, log)
	dispatcher := svc.NewDispatcher(sender, repo.New(pg), d.Authorities, d.Templates, d.Files, log).
		WithPublisher(d.Publisher)
	ctrl.New(dispatcher).WithAuth(d.Session).WithToken(d.Token).Register(e)
}
