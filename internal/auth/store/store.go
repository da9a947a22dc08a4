package store

import (
	"context"
	"errors"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories keep concerns tidy and make
// it obvious when a caller is about to nest transactions.
type Store interface {
	Users() Users
	MFACredentials() MFACredentials
	RecoveryCodes() RecoveryCodes
	PasswordResets() PasswordResets
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the store.
type Tx interface {
	Users() Users
	MFACredentials() MFACredentials
	RecoveryCodes() RecoveryCodes
	PasswordResets() PasswordResets
	AuditEvents() AuditEvents
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail does a case-insensitive lookup; tokens carry the id.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateRole changes the user's role.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// SetActive flips the active flag.
	SetActive(ctx context.Context, userID string, active bool) error

	// DeleteUser cascades to mfa_credentials, recovery_codes and
	// password_reset_tokens (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type MFACredentials interface {
	// GetMFACredential returns the enrollment row for a user.
	GetMFACredential(ctx context.Context, userID string) (domain.MFACredential, error)

	// UpsertSecret writes a pending (not yet enabled) secret. An existing
	// un-enabled row keeps its secret so setup can be retried; an enabled
	// row is not touched.
	UpsertSecret(ctx context.Context, userID string, secret string) error

	// Enable marks the enrollment verified.
	Enable(ctx context.Context, userID string) error

	// Delete removes the enrollment entirely.
	Delete(ctx context.Context, userID string) error
}

type RecoveryCodes interface {
	// ReplaceRecoveryCodes deletes any existing codes for the user and
	// stores the new batch of fingerprints.
	ReplaceRecoveryCodes(ctx context.Context, userID string, codeHashes []string) error

	// ListRecoveryCodeHashes returns all outstanding fingerprints for a user.
	ListRecoveryCodeHashes(ctx context.Context, userID string) ([]string, error)

	// DeleteRecoveryCode removes a single code after use. Returns
	// ErrNotFound when the code was already gone.
	DeleteRecoveryCode(ctx context.Context, userID string, codeHash string) error

	// DeleteAllRecoveryCodes removes every code for a user.
	DeleteAllRecoveryCodes(ctx context.Context, userID string) error

	// CountRecoveryCodes returns the number of codes a user has left.
	CountRecoveryCodes(ctx context.Context, userID string) (int, error)
}

type PasswordResets interface {
	// CreatePasswordReset stores a new reset record (token_hash is the
	// SHA-256 fingerprint of the opaque token).
	CreatePasswordReset(ctx context.Context, t domain.PasswordResetToken) error

	// GetPasswordResetByTokenHash fetches a reset record by fingerprint,
	// consumed or not.
	GetPasswordResetByTokenHash(ctx context.Context, hash string) (domain.PasswordResetToken, error)

	// ConsumePasswordReset marks a reset consumed if and only if it has not
	// been consumed yet. Returns ErrNotFound when it was already consumed
	// or never existed, which makes redeem exactly-once under concurrency.
	ConsumePasswordReset(ctx context.Context, id string, now time.Time) error

	// DeleteExpiredPasswordResets is housekeeping.
	DeleteExpiredPasswordResets(ctx context.Context) error
}

type AuditEvents interface {
	// CreateAuditEvent appends an event to the log.
	CreateAuditEvent(ctx context.Context, e domain.AuditEvent) error

	// ListAuditEvents returns the newest events first, capped at limit.
	ListAuditEvents(ctx context.Context, limit int) ([]domain.AuditEvent, error)

	// DeleteAuditEventsBefore prunes old events (housekeeping).
	DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) error
}
