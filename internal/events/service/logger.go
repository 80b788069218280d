package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/harel159/email-automation-system/internal/events/domain"
)

// Logger is a Publisher that writes events to the audit log stream.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("stream", "audit").Logger()}
}

func (l *Logger) Publish(_ context.Context, e domain.Event) error {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	ev := l.log.Info().Str("type", e.Type).Time("ts", ts)
	if e.Actor != "" {
		ev = ev.Str("actor", e.Actor)
	}
	if len(e.Meta) > 0 {
		ev = ev.Interface("meta", e.Meta)
	}
	ev.Msg("event")
	return nil
}
