package domain

import (
	"context"
	"errors"
	"time"

	"github.com/harel159/email-automation-system/internal/storage"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid input")
	ErrFileMissing = errors.New("file does not exist on server, upload it first")
)

// Template is the single stored subject/body pair used by bulk sends.
type Template struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Subject     string       `json:"subject"`
	BodyHTML    string       `json:"body_html"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is metadata for a file in the attachments directory. FileURL
// has the public form "/attachments/<saved name>".
type Attachment struct {
	ID         int64     `json:"id"`
	TemplateID int64     `json:"template_id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type TemplateInput struct {
	Title    string
	Subject  string
	BodyHTML string
}

type NewAttachment struct {
	TemplateID int64
	FileName   string
	FileURL    string
}

// DeleteResult reports whether the physical file went away with the row.
type DeleteResult struct {
	ID          int64
	FileDeleted bool
}

type Repository interface {
	// Current returns the lowest-id template, ErrNotFound when none exists.
	Current(ctx context.Context) (Template, error)
	// EnsureCurrent creates an empty template when none exists yet.
	EnsureCurrent(ctx context.Context) (Template, error)
	InsertTemplate(ctx context.Context, in TemplateInput) (Template, error)
	UpdateTemplate(ctx context.Context, id int64, in TemplateInput) (Template, error)

	ListAttachments(ctx context.Context, templateID int64) ([]Attachment, error)
	AddAttachment(ctx context.Context, in NewAttachment) (Attachment, error)
	GetAttachment(ctx context.Context, id int64) (Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error
	CountAttachmentsByURL(ctx context.Context, fileURL string) (int, error)
}

// FileStore is the slice of the attachments directory this module needs.
type FileStore interface {
	Exists(nameOrURL string) bool
	Remove(nameOrURL string) error
	List() ([]storage.FileInfo, error)
}

type Service interface {
	// Current never fails on an empty store: it returns a zero template with
	// no attachments and ok=false.
	Current(ctx context.Context) (t Template, ok bool, err error)
	// Save updates id when non-nil, otherwise updates the existing template
	// or inserts the first one.
	Save(ctx context.Context, id *int64, in TemplateInput) (Template, error)

	AddAttachment(ctx context.Context, in NewAttachment) (Attachment, error)
	DeleteAttachment(ctx context.Context, id int64, alsoDeleteFile bool) (DeleteResult, error)
	ListFiles(ctx context.Context) ([]storage.FileInfo, error)
}
