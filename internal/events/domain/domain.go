package domain

import (
	"context"
	"time"
)

// Event is an audit record of an operator action.
// Type examples: "auth.login.success", "email.bulk.completed", "recipients.imported".
type Event struct {
	Type  string
	Actor string // operator email, "api-token", or "" when unauthenticated
	Meta  map[string]string
	Time  time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
