// Package notify publishes user-facing notification events, such as
// password reset links, to the message broker for the mailer workers to
// pick up. Publishing is best-effort; callers log and carry on when it
// fails.
package notify

import "context"

// Event kinds consumed by the mailer workers.
const (
	KindPasswordReset   = "password_reset"
	KindMFAEnrolled     = "mfa_enrolled"
	KindMFAReset        = "mfa_reset"
	KindAccountCreated  = "account_created"
	KindAccountDisabled = "account_disabled"
)

// Event is a single notification to be delivered to a user.
type Event struct {
	Kind  string            `json:"kind"`
	Email string            `json:"email"`
	Data  map[string]string `json:"data,omitempty"`
}

type Notifier interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards all events. Used in tests and when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
