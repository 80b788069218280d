package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harel159/email-automation-system/internal/storage"
	"github.com/harel159/email-automation-system/internal/templates/domain"
)

type memRepo struct {
	templates   []domain.Template
	attachments map[int64]domain.Attachment
	nextAtt     int64
}

func newMemRepo() *memRepo { return &memRepo{attachments: map[int64]domain.Attachment{}} }

func (m *memRepo) Current(context.Context) (domain.Template, error) {
	if len(m.templates) == 0 {
		return domain.Template{}, domain.ErrNotFound
	}
	return m.templates[0], nil
}

func (m *memRepo) EnsureCurrent(ctx context.Context) (domain.Template, error) {
	if len(m.templates) == 0 {
		return m.InsertTemplate(ctx, domain.TemplateInput{})
	}
	return m.templates[0], nil
}

func (m *memRepo) InsertTemplate(_ context.Context, in domain.TemplateInput) (domain.Template, error) {
	t := domain.Template{ID: int64(len(m.templates) + 1), Title: in.Title, Subject: in.Subject, BodyHTML: in.BodyHTML}
	m.templates = append(m.templates, t)
	return t, nil
}

func (m *memRepo) UpdateTemplate(_ context.Context, id int64, in domain.TemplateInput) (domain.Template, error) {
	for i := range m.templates {
		if m.templates[i].ID == id {
			m.templates[i].Title, m.templates[i].Subject, m.templates[i].BodyHTML = in.Title, in.Subject, in.BodyHTML
			return m.templates[i], nil
		}
	}
	return domain.Template{}, domain.ErrNotFound
}

func (m *memRepo) ListAttachments(_ context.Context, templateID int64) ([]domain.Attachment, error) {
	out := []domain.Attachment{}
	for id := int64(1); id <= m.nextAtt; id++ {
		if a, ok := m.attachments[id]; ok && a.TemplateID == templateID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) AddAttachment(_ context.Context, in domain.NewAttachment) (domain.Attachment, error) {
	if in.TemplateID > int64(len(m.templates)) {
		return domain.Attachment{}, domain.ErrNotFound
	}
	m.nextAtt++
	a := domain.Attachment{ID: m.nextAtt, TemplateID: in.TemplateID, FileName: in.FileName, FileURL: in.FileURL}
	m.attachments[a.ID] = a
	return a, nil
}

func (m *memRepo) GetAttachment(_ context.Context, id int64) (domain.Attachment, error) {
	a, ok := m.attachments[id]
	if !ok {
		return domain.Attachment{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memRepo) DeleteAttachment(_ context.Context, id int64) error {
	if _, ok := m.attachments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.attachments, id)
	return nil
}

func (m *memRepo) CountAttachmentsByURL(_ context.Context, url string) (int, error) {
	n := 0
	for _, a := range m.attachments {
		if a.FileURL == url {
			n++
		}
	}
	return n, nil
}

func newLocal(t *testing.T, files ...string) *storage.Local {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("%PDF-1.4"), 0o644))
	}
	l, err := storage.NewLocal(dir)
	require.NoError(t, err)
	return l
}

func TestCurrent_EmptyStoreIsNotAnError(t *testing.T) {
	s := New(newMemRepo(), newLocal(t), zerolog.Nop())
	tpl, ok, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotNil(t, tpl.Attachments)
	assert.Empty(t, tpl.Attachments)
}

func TestSave_ValidatesAndTargetsSingleton(t *testing.T) {
	repo := newMemRepo()
	s := New(repo, newLocal(t), zerolog.Nop())
	ctx := context.Background()

	_, err := s.Save(ctx, nil, domain.TemplateInput{Subject: " ", BodyHTML: ""})
	require.ErrorIs(t, err, domain.ErrInvalid)
	assert.Contains(t, err.Error(), "subject")
	assert.Contains(t, err.Error(), "body_html")

	first, err := s.Save(ctx, nil, domain.TemplateInput{Title: "t", Subject: "s1", BodyHTML: "<p>1</p>"})
	require.NoError(t, err)
	second, err := s.Save(ctx, nil, domain.TemplateInput{Title: "t", Subject: "s2", BodyHTML: "<p>2</p>"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.templates, 1)
	assert.Equal(t, "s2", repo.templates[0].Subject)

	missing := int64(42)
	_, err = s.Save(ctx, &missing, domain.TemplateInput{Subject: "s", BodyHTML: "b"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddAttachment_RequiresFileOnDisk(t *testing.T) {
	repo := newMemRepo()
	files := newLocal(t, "present.pdf")
	s := New(repo, files, zerolog.Nop())
	ctx := context.Background()
	tpl, err := repo.EnsureCurrent(ctx)
	require.NoError(t, err)

	_, err = s.AddAttachment(ctx, domain.NewAttachment{TemplateID: tpl.ID, FileName: "ghost.pdf", FileURL: "/attachments/ghost.pdf"})
	assert.ErrorIs(t, err, domain.ErrFileMissing)
	assert.Empty(t, repo.attachments, "no orphan metadata")

	_, err = s.AddAttachment(ctx, domain.NewAttachment{TemplateID: tpl.ID, FileName: "x", FileURL: "/attachments/../etc/passwd"})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	a, err := s.AddAttachment(ctx, domain.NewAttachment{TemplateID: tpl.ID, FileName: "דוח.pdf", FileURL: "present.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "/attachments/present.pdf", a.FileURL)

	_, err = s.AddAttachment(ctx, domain.NewAttachment{TemplateID: 99, FileName: "x", FileURL: "present.pdf"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteAttachment_ReferenceCounted(t *testing.T) {
	repo := newMemRepo()
	files := newLocal(t, "shared.pdf")
	s := New(repo, files, zerolog.Nop())
	ctx := context.Background()
	tpl, _ := repo.EnsureCurrent(ctx)

	a1, err := s.AddAttachment(ctx, domain.NewAttachment{TemplateID: tpl.ID, FileName: "a", FileURL: "/attachments/shared.pdf"})
	require.NoError(t, err)
	a2, err := s.AddAttachment(ctx, domain.NewAttachment{TemplateID: tpl.ID, FileName: "b", FileURL: "/attachments/shared.pdf"})
	require.NoError(t, err)

	res, err := s.DeleteAttachment(ctx, a1.ID, true)
	require.NoError(t, err)
	assert.False(t, res.FileDeleted, "still referenced by a2")
	assert.True(t, files.Exists("shared.pdf"))

	res, err = s.DeleteAttachment(ctx, a2.ID, true)
	require.NoError(t, err)
	assert.True(t, res.FileDeleted)
	assert.False(t, files.Exists("shared.pdf"))

	_, err = s.DeleteAttachment(ctx, a2.ID, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteAttachment_KeepsFileUnlessAsked(t *testing.T) {
	repo := newMemRepo()
	files := newLocal(t, "keep.pdf")
	s := New(repo, files, zerolog.Nop())
	ctx := context.Background()
	tpl, _ := repo.EnsureCurrent(ctx)
	a, err := s.AddAttachment(ctx, domain.NewAttachment{TemplateID: tpl.ID, FileName: "k", FileURL: "/attachments/keep.pdf"})
	require.NoError(t, err)

	res, err := s.DeleteAttachment(ctx, a.ID, false)
	require.NoError(t, err)
	assert.False(t, res.FileDeleted)
	assert.True(t, files.Exists("keep.pdf"))
}

type brokenRemove struct{ *storage.Local }

func (brokenRemove) Remove(string) error { return errors.New("permission denied") }

func TestDeleteAttachment_FileRemoveFailureStillDeletesRow(t *testing.T) {
	repo := newMemRepo()
	files := newLocal(t, "locked.pdf")
	s := New(repo, brokenRemove{files}, zerolog.Nop())
	ctx := context.Background()
	tpl, _ := repo.EnsureCurrent(ctx)
	a, err := s.AddAttachment(ctx, domain.NewAttachment{TemplateID: tpl.ID, FileName: "l", FileURL: "/attachments/locked.pdf"})
	require.NoError(t, err)

	res, err := s.DeleteAttachment(ctx, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.ID)
	assert.False(t, res.FileDeleted)
	assert.True(t, files.Exists("locked.pdf"))

	_, err = repo.GetAttachment(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
