package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harel159/email-automation-system/internal/config"
	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	"github.com/harel159/email-automation-system/internal/metrics"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
)

// Ensure Router implements domain.Sender
var _ edomain.Sender = (*Router)(nil)

// Router picks the transport from runtime settings on every send and fills
// the sender name and reply-to defaults.
type Router struct {
	cfg      config.Config
	settings sdomain.Service
	smtp     edomain.Sender
	brevo    edomain.Sender
	resend   edomain.Sender
}

// NewRouter shares one settings reader with every transport. A failed read
// falls back to process config and is logged at warn level.
func NewRouter(settings sdomain.Service, cfg config.Config, log zerolog.Logger) *Router {
	settings = warnSettings{Service: settings, log: log}
	return &Router{
		cfg:      cfg,
		settings: settings,
		smtp:     NewSMTP(cfg),
		brevo:    NewBrevo(settings, cfg, nil),
		resend:   NewResend(settings, cfg, nil),
	}
}

func (r *Router) Send(ctx context.Context, msg edomain.Message) error {
	if msg.FromName == "" {
		msg.FromName, _ = r.settings.GetString(ctx, sdomain.KeyFromName, r.cfg.MailFromName)
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo, _ = r.settings.GetString(ctx, sdomain.KeyReplyTo, "")
	}
	if msg.Text == "" {
		msg.Text = PlainText(msg.HTML)
	}
	if r.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SendTimeout)
		defer cancel()
	}

	prov, _ := r.settings.GetString(ctx, sdomain.KeyEmailProvider, r.cfg.EmailProvider)
	var sender edomain.Sender
	switch prov = strings.ToLower(prov); prov {
	case "brevo":
		sender = r.brevo
	case "resend":
		sender = r.resend
	default:
		prov, sender = "smtp", r.smtp
	}
	start := time.Now()
	err := sender.Send(ctx, msg)
	metrics.ObserveEmailSend(prov, time.Since(start).Seconds())
	return err
}

type warnSettings struct {
	sdomain.Service
	log zerolog.Logger
}

func (w warnSettings) GetString(ctx context.Context, key, def string) (string, error) {
	v, err := w.Service.GetString(ctx, key, def)
	if err != nil {
		w.log.Warn().Err(err).Str("key", key).Msg("read setting, using config default")
	}
	return v, err
}
