package domain

import (
	"context"
	"errors"

	tdomain "github.com/harel159/email-automation-system/internal/templates/domain"
)

var ErrInvalid = errors.New("invalid send request")

// Attachment is either in-memory content (one-time uploads) or a path to a
// file on disk (template attachments). Path wins when both are set.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
	Path        string
}

// Message is one transport call. To may hold several addresses, which all
// end up in a single To header.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	FromName    string
	ReplyTo     string
	Attachments []Attachment
}

// Sender is a pluggable mail transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Recipient struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// SendRequest is the normalized bulk-send input, whether it arrived as JSON
// or as multipart with one-time files.
type SendRequest struct {
	To                 []Recipient  `json:"to" validate:"required,min=1,dive"`
	Subject            string       `json:"subject" validate:"required"`
	Body               string       `json:"body" validate:"required"`
	FromName           string       `json:"from_name"`
	ReplyTo            string       `json:"reply_to" validate:"omitempty,email"`
	IncludeAttachments *bool        `json:"include_attachments"`
	Attachments        []Attachment `json:"-"`
}

// IncludeTemplateAttachments defaults to true when the flag is absent.
func (r SendRequest) IncludeTemplateAttachments() bool {
	return r.IncludeAttachments == nil || *r.IncludeAttachments
}

// TestSendRequest is a single non-personalized send to every address at once.
type TestSendRequest struct {
	To       []string `json:"to" validate:"required,min=1,dive,email"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	FromName string   `json:"from_name"`
	ReplyTo  string   `json:"reply_to" validate:"omitempty,email"`
}

type Result struct {
	To      string `json:"to"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// LogEntry is one row of the append-only send log.
type LogEntry struct {
	AuthorityID *int64
	Email       string
	TemplateID  *int64
	Status      string
	Error       *string
}

type LogRepository interface {
	Insert(ctx context.Context, e LogEntry) error
}

// AuthorityLookup maps lower-cased emails to authority ids in one query.
type AuthorityLookup interface {
	LookupAuthorityIDs(ctx context.Context, emails []string) (map[string]int64, error)
}

// TemplateSource yields the current template with its attachment rows.
type TemplateSource interface {
	Current(ctx context.Context) (tdomain.Template, bool, error)
}

// FileResolver locates template attachment files on disk.
type FileResolver interface {
	Exists(nameOrURL string) bool
	Path(nameOrURL string) (string, error)
}

type Service interface {
	SendAll(ctx context.Context, req SendRequest, actor string) ([]Result, error)
	TestSend(ctx context.Context, req TestSendRequest, actor string) error
}
