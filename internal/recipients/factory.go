package recipients

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	ctrl "github.com/harel159/email-automation-system/internal/recipients/controller"
	repo "github.com/harel159/email-automation-system/internal/recipients/repository"
	svc "github.com/harel159/email-automation-system/internal/recipients/service"
)

// Register wires the recipients module and registers HTTP routes. The
// returned repository doubles as the authority lookup for the email module.
func Register(e *echo.Echo, pg *pgxpool.Pool, auth echo.MiddlewareFunc) *repo.Repository {
	r := repo.New(pg)
	s := svc.New(r)
	ctrl.New(s).WithAuth(auth).Register(e)
	return r
}
