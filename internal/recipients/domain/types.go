package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("email already exists")
	ErrInvalid  = errors.New("invalid input")
)

// Authority is a recipient managed from the clients screen. LastEmailSent is
// the newest successful EmailLog for it, nil when never mailed.
type Authority struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastEmailSent *time.Time `json:"last_email_sent"`
}

type NewAuthority struct {
	Name   string
	Email  string
	Active bool
}

// AuthorityPatch fields left nil keep their stored value.
type AuthorityPatch struct {
	Name   *string
	Email  *string
	Active *bool
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewCustomer struct {
	Name   string
	Email  string
	Phone  string
	Notes  string
	Active bool
}

type CustomerPatch struct {
	Name   *string
	Email  *string
	Phone  *string
	Notes  *string
	Active *bool
}

// ImportResult summarises a bulk create or spreadsheet import.
type ImportResult struct {
	Created []Authority `json:"created"`
	Skipped int         `json:"skipped"`
}

type Repository interface {
	ListAuthorities(ctx context.Context, onlyActive bool) ([]Authority, error)
	CreateAuthority(ctx context.Context, in NewAuthority) (Authority, error)
	UpdateAuthority(ctx context.Context, id int64, p AuthorityPatch) (Authority, error)
	DeleteAuthority(ctx context.Context, id int64) error
	// InsertAuthoritiesIgnoringDuplicates returns only the rows actually inserted.
	InsertAuthoritiesIgnoringDuplicates(ctx context.Context, in []NewAuthority) ([]Authority, error)

	ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error)
	CreateCustomer(ctx context.Context, in NewCustomer) (Customer, error)
	UpdateCustomer(ctx context.Context, id int64, p CustomerPatch) (Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

type Service interface {
	ListAuthorities(ctx context.Context, onlyActive bool) ([]Authority, error)
	CreateAuthority(ctx context.Context, in NewAuthority) (Authority, error)
	UpdateAuthority(ctx context.Context, id int64, p AuthorityPatch) (Authority, error)
	DeleteAuthority(ctx context.Context, id int64) error
	BulkCreate(ctx context.Context, in []NewAuthority) (ImportResult, error)
	ImportSpreadsheet(ctx context.Context, r io.Reader) (ImportResult, error)

	ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error)
	CreateCustomer(ctx context.Context, in NewCustomer) (Customer, error)
	UpdateCustomer(ctx context.Context, id int64, p CustomerPatch) (Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}
