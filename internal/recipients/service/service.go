package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/harel159/email-automation-system/internal/metrics"
	"github.com/harel159/email-automation-system/internal/recipients/domain"
)

type Service struct {
	repo domain.Repository
}

func New(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var validate = validator.New()

func validEmail(s string) bool { return validate.Var(s, "required,email") == nil }

func requireNameEmail(name, email string) error {
	if name == "" || email == "" {
		return fmt.Errorf("%w: name and email are required", domain.ErrInvalid)
	}
	if !validEmail(email) {
		return fmt.Errorf("%w: invalid email", domain.ErrInvalid)
	}
	return nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func (s *Service) ListAuthorities(ctx context.Context, onlyActive bool) ([]domain.Authority, error) {
	return s.repo.ListAuthorities(ctx, onlyActive)
}

func (s *Service) CreateAuthority(ctx context.Context, in domain.NewAuthority) (domain.Authority, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := requireNameEmail(in.Name, in.Email); err != nil {
		return domain.Authority{}, err
	}
	return s.repo.CreateAuthority(ctx, in)
}

func (s *Service) UpdateAuthority(ctx context.Context, id int64, p domain.AuthorityPatch) (domain.Authority, error) {
	p.Name = trimPtr(p.Name)
	if p.Email != nil {
		e := normalizeEmail(*p.Email)
		p.Email = &e
	}
	if (p.Name != nil && *p.Name == "") || (p.Email != nil && !validEmail(*p.Email)) {
		return domain.Authority{}, fmt.Errorf("%w: name and email cannot be blank", domain.ErrInvalid)
	}
	return s.repo.UpdateAuthority(ctx, id, p)
}

func (s *Service) DeleteAuthority(ctx context.Context, id int64) error {
	return s.repo.DeleteAuthority(ctx, id)
}

// BulkCreate drops entries without a usable name/email and duplicates within
// the payload, then inserts the rest. Emails already stored are skipped by
// the repository; Skipped counts every entry that did not become a row.
func (s *Service) BulkCreate(ctx context.Context, in []domain.NewAuthority) (domain.ImportResult, error) {
	seen := make(map[string]struct{}, len(in))
	batch := make([]domain.NewAuthority, 0, len(in))
	for _, a := range in {
		a.Name = strings.TrimSpace(a.Name)
		a.Email = normalizeEmail(a.Email)
		if a.Name == "" {
			a.Name = a.Email
		}
		if requireNameEmail(a.Name, a.Email) != nil {
			continue
		}
		if _, dup := seen[a.Email]; dup {
			continue
		}
		seen[a.Email] = struct{}{}
		batch = append(batch, a)
	}
	created, err := s.repo.InsertAuthoritiesIgnoringDuplicates(ctx, batch)
	if err != nil {
		return domain.ImportResult{}, err
	}
	res := domain.ImportResult{Created: created, Skipped: len(in) - len(created)}
	metrics.AddRecipientsImported(len(created), res.Skipped)
	return res, nil
}

// ImportSpreadsheet reads authorities from the first sheet of an .xlsx file
// and bulk-creates them.
func (s *Service) ImportSpreadsheet(ctx context.Context, r io.Reader) (domain.ImportResult, error) {
	rows, err := ParseSpreadsheet(r)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	return s.BulkCreate(ctx, rows)
}

func (s *Service) ListCustomers(ctx context.Context, includeInactive bool) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, includeInactive)
}

func (s *Service) CreateCustomer(ctx context.Context, in domain.NewCustomer) (domain.Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := requireNameEmail(in.Name, in.Email); err != nil {
		return domain.Customer{}, err
	}
	return s.repo.CreateCustomer(ctx, in)
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, p domain.CustomerPatch) (domain.Customer, error) {
	p.Name = trimPtr(p.Name)
	p.Phone = trimPtr(p.Phone)
	p.Notes = trimPtr(p.Notes)
	if p.Email != nil {
		e := normalizeEmail(*p.Email)
		p.Email = &e
	}
	if (p.Name != nil && *p.Name == "") || (p.Email != nil && !validEmail(*p.Email)) {
		return domain.Customer{}, fmt.Errorf("%w: name and email cannot be blank", domain.ErrInvalid)
	}
	return s.repo.UpdateCustomer(ctx, id, p)
}

func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.repo.DeleteCustomer(ctx, id)
}
