package templates

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/harel159/email-automation-system/internal/storage"
	ctrl "github.com/harel159/email-automation-system/internal/templates/controller"
	repo "github.com/harel159/email-automation-system/internal/templates/repository"
	svc "github.com/harel159/email-automation-system/internal/templates/service"
)

// Register wires the templates module and registers HTTP routes. The
// service is returned so the email module can read the current template.
func Register(e *echo.Echo, pg *pgxpool.Pool, files *storage.Local, auth echo.MiddlewareFunc, log zerolog.Logger) *svc.Service {
	s := svc.New(repo.New(pg), files, log)
	ctrl.New(s, files).WithAuth(auth).Register(e)
	return s
}
