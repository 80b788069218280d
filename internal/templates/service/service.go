package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harel159/email-automation-system/internal/storage"
	"github.com/harel159/email-automation-system/internal/templates/domain"
)

type Service struct {
	repo  domain.Repository
	files domain.FileStore
	log   zerolog.Logger
}

func New(repo domain.Repository, files domain.FileStore, log zerolog.Logger) *Service {
	return &Service{repo: repo, files: files, log: log}
}

func (s *Service) Current(ctx context.Context) (domain.Template, bool, error) {
	t, err := s.repo.Current(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Template{Attachments: []domain.Attachment{}}, false, nil
	}
	if err != nil {
		return domain.Template{}, false, err
	}
	if t.Attachments, err = s.repo.ListAttachments(ctx, t.ID); err != nil {
		return domain.Template{}, false, err
	}
	return t, true, nil
}

func (s *Service) Save(ctx context.Context, id *int64, in domain.TemplateInput) (domain.Template, error) {
	in.Title = strings.TrimSpace(in.Title)
	var missing []string
	if strings.TrimSpace(in.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(in.BodyHTML) == "" {
		missing = append(missing, "body_html")
	}
	if len(missing) > 0 {
		return domain.Template{}, fmt.Errorf("%w: %s required", domain.ErrInvalid, strings.Join(missing, ", "))
	}

	var (
		t   domain.Template
		err error
	)
	switch {
	case id != nil:
		t, err = s.repo.UpdateTemplate(ctx, *id, in)
	default:
		// Only one template is ever used; a save without id targets it.
		cur, cerr := s.repo.Current(ctx)
		switch {
		case errors.Is(cerr, domain.ErrNotFound):
			t, err = s.repo.InsertTemplate(ctx, in)
		case cerr != nil:
			return domain.Template{}, cerr
		default:
			t, err = s.repo.UpdateTemplate(ctx, cur.ID, in)
		}
	}
	if err != nil {
		return domain.Template{}, err
	}
	if t.Attachments, err = s.repo.ListAttachments(ctx, t.ID); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}

// AddAttachment refuses metadata for a file that was never uploaded.
func (s *Service) AddAttachment(ctx context.Context, in domain.NewAttachment) (domain.Attachment, error) {
	in.FileName = strings.TrimSpace(in.FileName)
	in.FileURL = strings.TrimSpace(in.FileURL)
	if in.TemplateID <= 0 || in.FileName == "" || in.FileURL == "" {
		return domain.Attachment{}, fmt.Errorf("%w: template_id, file_name and file_url are required", domain.ErrInvalid)
	}
	name, err := storage.NameFromURL(in.FileURL)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: bad file_url", domain.ErrInvalid)
	}
	if !s.files.Exists(name) {
		return domain.Attachment{}, domain.ErrFileMissing
	}
	in.FileURL = storage.URLPrefix + name
	return s.repo.AddAttachment(ctx, in)
}

// DeleteAttachment removes the row and, when asked, the file once no other
// row points at it. After the row is gone a file that cannot be removed is
// logged and reported as file_deleted=false, never as a failure.
func (s *Service) DeleteAttachment(ctx context.Context, id int64, alsoDeleteFile bool) (domain.DeleteResult, error) {
	a, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if err := s.repo.DeleteAttachment(ctx, id); err != nil {
		return domain.DeleteResult{}, err
	}
	res := domain.DeleteResult{ID: id}
	if !alsoDeleteFile {
		return res, nil
	}
	refs, err := s.repo.CountAttachmentsByURL(ctx, a.FileURL)
	if err != nil {
		s.log.Warn().Err(err).Str("file_url", a.FileURL).Msg("count attachment refs failed, keeping file")
		return res, nil
	}
	if refs > 0 {
		s.log.Info().Str("file_url", a.FileURL).Int("refs", refs).Msg("attachment file still referenced, keeping it")
		return res, nil
	}
	switch err := s.files.Remove(a.FileURL); {
	case err == nil:
		res.FileDeleted = true
	case errors.Is(err, storage.ErrNotFound):
		s.log.Warn().Str("file_url", a.FileURL).Msg("attachment file already missing")
	default:
		s.log.Error().Err(err).Str("file_url", a.FileURL).Msg("remove attachment file")
	}
	return res, nil
}

func (s *Service) ListFiles(context.Context) ([]storage.FileInfo, error) {
	return s.files.List()
}
