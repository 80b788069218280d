package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/harel159/email-automation-system/internal/config"
	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
)

// Ensure Brevo implements domain.Sender
var _ edomain.Sender = (*Brevo)(nil)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type Brevo struct {
	cfg      config.Config
	settings sdomain.Service
	http     *http.Client
	endpoint string
}

// NewBrevo uses client when non-nil so tests can intercept the transport.
func NewBrevo(settings sdomain.Service, cfg config.Config, client *http.Client) *Brevo {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Brevo{settings: settings, cfg: cfg, http: client, endpoint: brevoEndpoint}
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type brevoEmail struct {
	Sender      brevoAddress      `json:"sender"`
	To          []brevoAddress    `json:"to"`
	ReplyTo     *brevoAddress     `json:"replyTo,omitempty"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	TextContent string            `json:"textContent,omitempty"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

func (b *Brevo) Send(ctx context.Context, msg edomain.Message) error {
	apiKey, _ := b.settings.GetString(ctx, sdomain.KeyBrevoAPIKey, b.cfg.BrevoAPIKey)
	if apiKey == "" || b.cfg.SMTPFrom == "" {
		return fmt.Errorf("brevo not configured")
	}
	payload := brevoEmail{
		Sender:      brevoAddress{Email: b.cfg.SMTPFrom, Name: msg.FromName},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}
	for _, to := range msg.To {
		payload.To = append(payload.To, brevoAddress{Email: to})
	}
	if msg.ReplyTo != "" {
		payload.ReplyTo = &brevoAddress{Email: msg.ReplyTo}
	}
	for _, a := range msg.Attachments {
		content := a.Content
		if a.Path != "" {
			raw, err := os.ReadFile(a.Path)
			if err != nil {
				return fmt.Errorf("brevo attachment %s: %w", a.Filename, err)
			}
			content = raw
		}
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Name:    a.Filename,
			Content: base64.StdEncoding.EncodeToString(content),
		})
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", apiKey)
	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo send failed: %s %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}
