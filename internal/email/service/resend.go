package service

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/resend/resend-go/v3"

	"github.com/harel159/email-automation-system/internal/config"
	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
)

var _ edomain.Sender = (*Resend)(nil)

// Resend sends through the Resend API. The key is read on every send so a
// settings change applies without a restart.
type Resend struct {
	cfg      config.Config
	settings sdomain.Service
	http     *http.Client
}

func NewResend(settings sdomain.Service, cfg config.Config, client *http.Client) *Resend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Resend{settings: settings, cfg: cfg, http: client}
}

func (s *Resend) Send(ctx context.Context, msg edomain.Message) error {
	apiKey, _ := s.settings.GetString(ctx, sdomain.KeyResendAPIKey, s.cfg.ResendAPIKey)
	if apiKey == "" || s.cfg.SMTPFrom == "" {
		return fmt.Errorf("resend not configured")
	}
	from := s.cfg.SMTPFrom
	if msg.FromName != "" {
		from = mime.QEncoding.Encode("utf-8", msg.FromName) + " <" + s.cfg.SMTPFrom + ">"
	}
	req := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}
	for _, a := range msg.Attachments {
		content := a.Content
		if a.Path != "" {
			raw, err := os.ReadFile(a.Path)
			if err != nil {
				return fmt.Errorf("resend attachment %s: %w", a.Filename, err)
			}
			content = raw
		}
		name := a.Filename
		if name == "" {
			name = filepath.Base(a.Path)
		}
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    name,
			Content:     content,
			ContentType: a.ContentType,
		})
	}

	client := resend.NewCustomClient(s.http, apiKey)
	if _, err := client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}
