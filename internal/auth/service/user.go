package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/idx"
)

var (
	ErrEmailTaken   = errors.New("email already in use")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidRole  = errors.New("invalid role")
)

// UserService handles the admin-facing user lifecycle.
type UserService struct {
	Store    store.Store
	Audit    *AuditService
	Notifier notify.Notifier
}

// Create provisions a new user. An empty password leaves the hash empty,
// which blocks login until a password reset sets one (transitional
// bootstrap for migrated accounts).
func (s *UserService) Create(ctx context.Context, actorID, email, password string, role domain.Role) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, ErrInvalidEmail
	}
	if !role.Valid() {
		return domain.User{}, ErrInvalidRole
	}

	var hash string
	if password != "" {
		if len(password) < minPasswordLength {
			return domain.User{}, ErrWeakPassword
		}
		var err error
		hash, err = cryptox.HashPassword(password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.Audit.Record(ctx, domain.AuditAdminUserCreated, actorID, user.ID, "role="+string(role))
	_ = s.Notifier.Publish(context.WithoutCancel(ctx), notify.Event{
		Kind:  notify.KindAccountCreated,
		Email: user.Email,
	})
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// SetRole changes a user's role.
func (s *UserService) SetRole(ctx context.Context, actorID, userID string, role domain.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := s.Store.Users().UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.Audit.Record(ctx, domain.AuditAdminUserUpdated, actorID, userID, "role="+string(role))
	return nil
}

// SetActive enables or disables a user. A disabled user's outstanding
// sessions die at the next validation, since validation re-reads the row.
func (s *UserService) SetActive(ctx context.Context, actorID, userID string, active bool) error {
	if err := s.Store.Users().SetActive(ctx, userID, active); err != nil {
		return err
	}
	s.Audit.Record(ctx, domain.AuditAdminUserUpdated, actorID, userID, fmt.Sprintf("active=%t", active))

	if !active {
		if user, err := s.Store.Users().GetUserByID(ctx, userID); err == nil {
			_ = s.Notifier.Publish(context.WithoutCancel(ctx), notify.Event{
				Kind:  notify.KindAccountDisabled,
				Email: user.Email,
			})
		}
	}
	return nil
}

// SetPassword sets a user's password directly (admin override).
func (s *UserService) SetPassword(ctx context.Context, actorID, userID, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	s.Audit.Record(ctx, domain.AuditAdminUserUpdated, actorID, userID, "password")
	return nil
}

// Delete removes a user. The schema cascades to MFA credentials, recovery
// codes and reset tokens.
func (s *UserService) Delete(ctx context.Context, actorID, userID string) error {
	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.Audit.Record(ctx, domain.AuditAdminUserDeleted, actorID, userID, "")
	return nil
}
