package domain

import "time"

// PasswordResetToken is the stored record of a reset request. Only the
// fingerprint of the opaque token is persisted; ConsumedAt marks single use.
type PasswordResetToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Consumed reports whether the token has already been redeemed.
func (t PasswordResetToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Expired reports whether the token is past its expiry at the given time.
func (t PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
