package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/harel159/email-automation-system/internal/db"
	"github.com/harel159/email-automation-system/internal/recipients/domain"
)

type Repository struct{ db db.DBTX }

func New(pg db.DBTX) *Repository { return &Repository{db: pg} }

const authorityCols = `a.id, a.name, a.email, a.active, a.created_at`

func scanAuthority(row pgx.Row, withLastSent bool) (domain.Authority, error) {
	var a domain.Authority
	dest := []any{&a.ID, &a.Name, &a.Email, &a.Active, &a.CreatedAt}
	if withLastSent {
		dest = append(dest, &a.LastEmailSent)
	}
	err := row.Scan(dest...)
	return a, err
}

// mapErr converts store errors into domain errors.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case db.IsUniqueViolation(err):
		return domain.ErrConflict
	default:
		return err
	}
}

func (r *Repository) ListAuthorities(ctx context.Context, onlyActive bool) ([]domain.Authority, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+authorityCols+`,
       MAX(l.created_at) FILTER (WHERE l.status = 'sent') AS last_email_sent
FROM authorities a
LEFT JOIN email_logs l ON l.authority_id = a.id
WHERE ($1::bool = FALSE OR a.active)
GROUP BY a.id
ORDER BY a.name, a.id`, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Authority{}
	for rows.Next() {
		a, err := scanAuthority(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) CreateAuthority(ctx context.Context, in domain.NewAuthority) (domain.Authority, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO authorities AS a (name, email, active)
VALUES ($1, $2, $3)
RETURNING `+authorityCols, in.Name, in.Email, in.Active)
	a, err := scanAuthority(row, false)
	return a, mapErr(err)
}

func (r *Repository) UpdateAuthority(ctx context.Context, id int64, p domain.AuthorityPatch) (domain.Authority, error) {
	row := r.db.QueryRow(ctx, `
UPDATE authorities AS a
SET name   = COALESCE($2::text, a.name),
    email  = COALESCE($3::text, a.email),
    active = COALESCE($4::bool, a.active)
WHERE a.id = $1
RETURNING `+authorityCols, id, p.Name, p.Email, p.Active)
	a, err := scanAuthority(row, false)
	return a, mapErr(err)
}

func (r *Repository) DeleteAuthority(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM authorities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) InsertAuthoritiesIgnoringDuplicates(ctx context.Context, in []domain.NewAuthority) ([]domain.Authority, error) {
	if len(in) == 0 {
		return []domain.Authority{}, nil
	}
	names := make([]string, len(in))
	emails := make([]string, len(in))
	actives := make([]bool, len(in))
	for i, a := range in {
		names[i], emails[i], actives[i] = a.Name, a.Email, a.Active
	}
	rows, err := r.db.Query(ctx, `
INSERT INTO authorities AS a (name, email, active)
SELECT n, e, act FROM unnest($1::text[], $2::text[], $3::bool[]) AS t(n, e, act)
ON CONFLICT (email) DO NOTHING
RETURNING `+authorityCols, names, emails, actives)
	if err != nil {
		return nil, fmt.Errorf("bulk insert authorities: %w", err)
	}
	defer rows.Close()
	out := []domain.Authority{}
	for rows.Next() {
		a, err := scanAuthority(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LookupAuthorityIDs resolves lower-cased emails to authority ids in one query.
func (r *Repository) LookupAuthorityIDs(ctx context.Context, emails []string) (map[string]int64, error) {
	out := make(map[string]int64, len(emails))
	if len(emails) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, lower(email) FROM authorities WHERE lower(email) = ANY($1::text[])`, emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    int64
			email string
		)
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		out[email] = id
	}
	return out, rows.Err()
}

const customerCols = `id, name, email, phone, active, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Active, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) ListCustomers(ctx context.Context, includeInactive bool) ([]domain.Customer, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+customerCols+`
FROM customers
WHERE ($1::bool OR active)
ORDER BY name, id`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CreateCustomer(ctx context.Context, in domain.NewCustomer) (domain.Customer, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO customers (name, email, phone, notes, active)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+customerCols, in.Name, in.Email, in.Phone, in.Notes, in.Active)
	c, err := scanCustomer(row)
	return c, mapErr(err)
}

func (r *Repository) UpdateCustomer(ctx context.Context, id int64, p domain.CustomerPatch) (domain.Customer, error) {
	row := r.db.QueryRow(ctx, `
UPDATE customers
SET name       = COALESCE($2::text, name),
    email      = COALESCE($3::text, email),
    phone      = COALESCE($4::text, phone),
    notes      = COALESCE($5::text, notes),
    active     = COALESCE($6::bool, active),
    updated_at = NOW()
WHERE id = $1
RETURNING `+customerCols, id, p.Name, p.Email, p.Phone, p.Notes, p.Active)
	c, err := scanCustomer(row)
	return c, mapErr(err)
}

func (r *Repository) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
