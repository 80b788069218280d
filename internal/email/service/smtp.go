package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/harel159/email-automation-system/internal/config"
	edomain "github.com/harel159/email-automation-system/internal/email/domain"
)

// Ensure SMTP implements domain.Sender
var _ edomain.Sender = (*SMTP)(nil)

type SMTP struct {
	cfg         config.Config
	dialAndSend func(d *gomail.Dialer, m ...*gomail.Message) error
}

func NewSMTP(cfg config.Config) *SMTP {
	return &SMTP{cfg: cfg, dialAndSend: (*gomail.Dialer).DialAndSend}
}

func (s *SMTP) Send(ctx context.Context, msg edomain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("smtp: no recipients")
	}
	d := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUsername, s.cfg.SMTPPassword)
	d.TLSConfig = &tls.Config{ServerName: s.cfg.SMTPHost, InsecureSkipVerify: s.cfg.SMTPInsecureTLS} //nolint:gosec // opt-in for dev relays
	if err := s.dialAndSend(d, s.buildMessage(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMessage renders msg as multipart/alternative (text then HTML) with
// attachments. File attachments are opened at write time.
func (s *SMTP) buildMessage(msg edomain.Message) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetAddressHeader("From", s.cfg.SMTPFrom, msg.FromName)
	m.SetHeader("To", msg.To...)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)

	text := msg.Text
	if strings.TrimSpace(text) == "" {
		text = PlainText(msg.HTML)
	}
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", msg.HTML)

	for _, a := range msg.Attachments {
		settings := []gomail.FileSetting{gomail.Rename(a.Filename)}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		if a.Path != "" {
			m.Attach(a.Path, settings...)
			continue
		}
		content := a.Content
		settings = append(settings, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
		m.Attach(a.Filename, settings...)
	}
	return m
}
