package service

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	evdomain "github.com/harel159/email-automation-system/internal/events/domain"
	"github.com/harel159/email-automation-system/internal/metrics"
	"github.com/harel159/email-automation-system/internal/platform/validation"
	tdomain "github.com/harel159/email-automation-system/internal/templates/domain"
)

const (
	maxLoggedError  = 500
	testSubject     = "No subject"
	testBody        = "<p>No content provided.</p>"
	modeBulk        = "bulk"
	modeTest        = "test"
	defaultMimeType = "application/octet-stream"
)

// Ensure Dispatcher implements domain.Service
var _ edomain.Service = (*Dispatcher)(nil)

// Dispatcher runs bulk and test sends. Recipients of a bulk send are handled
// one after another; a failed recipient is logged and never aborts the batch.
type Dispatcher struct {
	sender      edomain.Sender
	logs        edomain.LogRepository
	authorities edomain.AuthorityLookup
	templates   edomain.TemplateSource
	files       edomain.FileResolver
	pub         evdomain.Publisher
	validate    echo.Validator
	log         zerolog.Logger
}

func NewDispatcher(sender edomain.Sender, logs edomain.LogRepository, authorities edomain.AuthorityLookup,
	templates edomain.TemplateSource, files edomain.FileResolver, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:      sender,
		logs:        logs,
		authorities: authorities,
		templates:   templates,
		files:       files,
		validate:    validation.New(),
		log:         log,
	}
}

func (d *Dispatcher) WithPublisher(p evdomain.Publisher) *Dispatcher {
	d.pub = p
	return d
}

func (d *Dispatcher) SendAll(ctx context.Context, req edomain.SendRequest, actor string) ([]edomain.Result, error) {
	if err := d.validate.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", edomain.ErrInvalid, err)
	}

	tpl, hasTpl, err := d.templates.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	var templateID *int64
	if hasTpl {
		id := tpl.ID
		templateID = &id
	}

	ids, err := d.authorities.LookupAuthorityIDs(ctx, uniqueLower(req.To))
	if err != nil {
		return nil, fmt.Errorf("lookup authorities: %w", err)
	}

	atts := req.Attachments
	if len(atts) == 0 && req.IncludeTemplateAttachments() && hasTpl {
		atts = d.templateAttachments(tpl)
	}

	// Log rows outlive a client that hangs up mid-batch.
	logCtx := context.WithoutCancel(ctx)
	results := make([]edomain.Result, 0, len(req.To))
	sent := 0
	for _, rcpt := range req.To {
		vars := RecipientVars(rcpt)
		msg := edomain.Message{
			To:          []string{rcpt.Email},
			Subject:     Render(req.Subject, vars),
			HTML:        WrapRTL(Render(req.Body, vars)),
			FromName:    req.FromName,
			ReplyTo:     req.ReplyTo,
			Attachments: atts,
		}
		entry := edomain.LogEntry{Email: rcpt.Email, TemplateID: templateID}
		if id, ok := ids[strings.ToLower(rcpt.Email)]; ok {
			entry.AuthorityID = &id
		}

		res := edomain.Result{To: rcpt.Email}
		if err := d.sender.Send(ctx, msg); err != nil {
			reason := truncateRunes(err.Error(), maxLoggedError)
			entry.Status, entry.Error = edomain.StatusFailed, &reason
			res.Error = reason
			d.log.Warn().Err(err).Str("email", rcpt.Email).Interface("template_id", templateID).Msg("send failed")
		} else {
			entry.Status = edomain.StatusSent
			res.Success = true
			sent++
		}
		metrics.IncEmailSend(modeBulk, entry.Status)
		if err := d.logs.Insert(logCtx, entry); err != nil {
			d.log.Error().Err(err).Str("email", rcpt.Email).Str("status", entry.Status).Msg("write email log")
		}
		results = append(results, res)
	}

	d.publish(ctx, evdomain.Event{
		Type:  "email.bulk.completed",
		Actor: actor,
		Meta: map[string]string{
			"total":       strconv.Itoa(len(results)),
			"sent":        strconv.Itoa(sent),
			"failed":      strconv.Itoa(len(results) - sent),
			"attachments": strconv.Itoa(len(atts)),
		},
	})
	return results, nil
}

// TestSend sends the raw subject and body once, with every address in the
// To header and the template's attachments. Nothing is logged per recipient.
func (d *Dispatcher) TestSend(ctx context.Context, req edomain.TestSendRequest, actor string) error {
	if err := d.validate.Validate(req); err != nil {
		return fmt.Errorf("%w: %w", edomain.ErrInvalid, err)
	}
	subject, body := req.Subject, req.Body
	if strings.TrimSpace(subject) == "" {
		subject = testSubject
	}
	if strings.TrimSpace(body) == "" {
		body = testBody
	}
	tpl, hasTpl, err := d.templates.Current(ctx)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	var atts []edomain.Attachment
	if hasTpl {
		atts = d.templateAttachments(tpl)
	}

	err = d.sender.Send(ctx, edomain.Message{
		To:          req.To,
		Subject:     subject,
		HTML:        WrapRTL(body),
		FromName:    req.FromName,
		ReplyTo:     req.ReplyTo,
		Attachments: atts,
	})
	status := edomain.StatusSent
	if err != nil {
		status = edomain.StatusFailed
	}
	metrics.IncEmailSend(modeTest, status)
	d.publish(ctx, evdomain.Event{
		Type:  "email.test." + status,
		Actor: actor,
		Meta:  map[string]string{"to": strings.Join(req.To, ",")},
	})
	return err
}

// templateAttachments drops rows whose file is gone from disk. When every
// expected file is missing the send still goes out, without attachments.
func (d *Dispatcher) templateAttachments(tpl tdomain.Template) []edomain.Attachment {
	out := make([]edomain.Attachment, 0, len(tpl.Attachments))
	for _, a := range tpl.Attachments {
		path, err := d.files.Path(a.FileURL)
		if err != nil || !d.files.Exists(a.FileURL) {
			metrics.IncAttachmentMissing()
			d.log.Warn().Int64("template_id", tpl.ID).Int64("attachment_id", a.ID).Str("file_url", a.FileURL).Msg("attachment file missing, skipping")
			continue
		}
		ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(a.FileName)))
		if ct == "" {
			ct = defaultMimeType
		}
		out = append(out, edomain.Attachment{Filename: a.FileName, ContentType: ct, Path: path})
	}
	if len(tpl.Attachments) > 0 && len(out) == 0 {
		d.log.Warn().Int64("template_id", tpl.ID).Int("expected", len(tpl.Attachments)).Msg("all template attachments missing, sending without attachments")
	}
	return out
}

func (d *Dispatcher) publish(ctx context.Context, e evdomain.Event) {
	if d.pub == nil {
		return
	}
	if err := d.pub.Publish(ctx, e); err != nil {
		d.log.Warn().Err(err).Str("type", e.Type).Msg("publish event")
	}
}

func uniqueLower(rs []edomain.Recipient) []string {
	seen := make(map[string]struct{}, len(rs))
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		e := strings.ToLower(strings.TrimSpace(r.Email))
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
