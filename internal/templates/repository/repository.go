package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/harel159/email-automation-system/internal/db"
	"github.com/harel159/email-automation-system/internal/templates/domain"
)

type Repository struct{ db db.DBTX }

func New(pg db.DBTX) *Repository { return &Repository{db: pg} }

const templateCols = `id, title, subject, body_html, created_at, updated_at`

func scanTemplate(row pgx.Row) (domain.Template, error) {
	var t domain.Template
	err := row.Scan(&t.ID, &t.Title, &t.Subject, &t.BodyHTML, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Template{}, domain.ErrNotFound
	}
	return t, err
}

func (r *Repository) Current(ctx context.Context) (domain.Template, error) {
	return scanTemplate(r.db.QueryRow(ctx, `SELECT `+templateCols+` FROM email_templates ORDER BY id LIMIT 1`))
}

// EnsureCurrent inserts an empty row only when the table is empty. Two racing
// callers may both insert; Current still resolves to the lowest id.
func (r *Repository) EnsureCurrent(ctx context.Context) (domain.Template, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_templates (title, subject, body_html)
		SELECT '', '', ''
		WHERE NOT EXISTS (SELECT 1 FROM email_templates)`)
	if err != nil {
		return domain.Template{}, err
	}
	return r.Current(ctx)
}

func (r *Repository) InsertTemplate(ctx context.Context, in domain.TemplateInput) (domain.Template, error) {
	return scanTemplate(r.db.QueryRow(ctx, `
		INSERT INTO email_templates (title, subject, body_html)
		VALUES ($1, $2, $3)
		RETURNING `+templateCols, in.Title, in.Subject, in.BodyHTML))
}

func (r *Repository) UpdateTemplate(ctx context.Context, id int64, in domain.TemplateInput) (domain.Template, error) {
	return scanTemplate(r.db.QueryRow(ctx, `
		UPDATE email_templates
		SET title = $2, subject = $3, body_html = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+templateCols, id, in.Title, in.Subject, in.BodyHTML))
}

const attachmentCols = `id, template_id, file_name, file_url, created_at`

func scanAttachment(row pgx.Row) (domain.Attachment, error) {
	var a domain.Attachment
	err := row.Scan(&a.ID, &a.TemplateID, &a.FileName, &a.FileURL, &a.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.Attachment{}, domain.ErrNotFound
	case db.IsForeignKeyViolation(err):
		return domain.Attachment{}, domain.ErrNotFound
	}
	return a, err
}

func (r *Repository) ListAttachments(ctx context.Context, templateID int64) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+attachmentCols+` FROM attachments WHERE template_id = $1 ORDER BY id`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddAttachment maps a missing template (FK violation) to ErrNotFound.
func (r *Repository) AddAttachment(ctx context.Context, in domain.NewAttachment) (domain.Attachment, error) {
	return scanAttachment(r.db.QueryRow(ctx, `
		INSERT INTO attachments (template_id, file_name, file_url)
		VALUES ($1, $2, $3)
		RETURNING `+attachmentCols, in.TemplateID, in.FileName, in.FileURL))
}

func (r *Repository) GetAttachment(ctx context.Context, id int64) (domain.Attachment, error) {
	return scanAttachment(r.db.QueryRow(ctx, `SELECT `+attachmentCols+` FROM attachments WHERE id = $1`, id))
}

func (r *Repository) DeleteAttachment(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CountAttachmentsByURL(ctx context.Context, fileURL string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM attachments WHERE file_url = $1`, fileURL).Scan(&n)
	return n, err
}
