package repository

import (
	"context"

	"github.com/harel159/email-automation-system/internal/db"
	edomain "github.com/harel159/email-automation-system/internal/email/domain"
)

// Repository appends rows to email_logs. Rows are never updated.
type Repository struct{ db db.DBTX }

func New(pg db.DBTX) *Repository { return &Repository{db: pg} }

func (r *Repository) Insert(ctx context.Context, e edomain.LogEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_logs (authority_id, email, template_id, status, error)
		VALUES ($1, $2, $3, $4, $5)`,
		e.AuthorityID, e.Email, e.TemplateID, e.Status, e.Error)
	return err
}
