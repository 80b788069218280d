package domain

import (
	"context"
	"time"
)

// Service provides typed access to runtime settings, falling back to def
// when a key is unset or blank.
type Service interface {
	GetString(ctx context.Context, key string, def string) (string, error)
	GetDuration(ctx context.Context, key string, def time.Duration) (time.Duration, error)
	GetInt(ctx context.Context, key string, def int) (int, error)
}

// Repository abstracts storage of app settings.
type Repository interface {
	// Get returns (value, found, err) for an exact key.
	Get(ctx context.Context, key string) (string, bool, error)
	Upsert(ctx context.Context, key string, value string, secret bool) error
}

// Keys editable at runtime. Anything unset falls back to the process config.
const (
	KeyEmailProvider = "email.provider" // smtp | brevo | resend
	KeyFromName      = "email.from_name"
	KeyReplyTo       = "email.reply_to"
	KeyBrevoAPIKey   = "email.brevo.api_key"
	KeyResendAPIKey  = "email.resend.api_key"
)
