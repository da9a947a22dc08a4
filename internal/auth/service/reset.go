package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/idx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

var (
	ErrResetInvalidOrExpired = errors.New("invalid_or_expired")
	ErrWeakPassword          = errors.New("password too short")
)

const minPasswordLength = 8

// PasswordResetService issues and redeems single-use reset tokens.
type PasswordResetService struct {
	Store    store.Store
	Audit    *AuditService
	Notifier notify.Notifier
	TTL      time.Duration
}

// Request starts a reset for the given email. It is enumeration-proof:
// the caller gets the same nil result whether or not the account exists.
// Only internal faults return an error.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("user lookup: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	record := domain.PasswordResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
	}
	if err := s.Store.PasswordResets().CreatePasswordReset(ctx, record); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.Audit.Record(ctx, domain.AuditPasswordResetRequested, "", user.ID, "")

	// The plaintext token only ever leaves through the mailer.
	err = s.Notifier.Publish(context.WithoutCancel(ctx), notify.Event{
		Kind:  notify.KindPasswordReset,
		Email: user.Email,
		Data:  map[string]string{"token": token},
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("reset notification publish failed", "err", err)
	}
	return nil
}

// Redeem exchanges a valid token for a password change. The consume and
// the hash update share one transaction, so a crash cannot leave a burnt
// token with an unchanged password, and concurrent redeems of the same
// token succeed at most once.
func (s *PasswordResetService) Redeem(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	record, err := s.Store.PasswordResets().GetPasswordResetByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetInvalidOrExpired
		}
		return fmt.Errorf("reset lookup: %w", err)
	}

	now := time.Now().UTC()
	if record.Consumed() || record.Expired(now) {
		return ErrResetInvalidOrExpired
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResets().ConsumePasswordReset(ctx, record.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetInvalidOrExpired
			}
			return err
		}
		return tx.Users().UpdatePasswordHash(ctx, record.UserID, hash)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditPasswordResetRedeemed, record.UserID, record.UserID, "")
	return nil
}
