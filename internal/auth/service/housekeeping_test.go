package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/idx"
)

func TestHousekeepingCleanup(t *testing.T) {
	env := newTestEnv(t, false, false)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()
	now := time.Now().UTC()

	expired, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NoError(t, env.store.PasswordResets().CreatePasswordReset(ctx, domain.PasswordResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(expired),
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-2 * time.Hour),
	}))

	live, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NoError(t, env.store.PasswordResets().CreatePasswordReset(ctx, domain.PasswordResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(live),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}))

	require.NoError(t, env.store.AuditEvents().CreateAuditEvent(ctx, domain.AuditEvent{
		ID:        idx.New().String(),
		Action:    domain.AuditLogin,
		ActorID:   user.ID,
		CreatedAt: now.Add(-100 * 24 * time.Hour),
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := service.NewHousekeepingService(env.store, logger, time.Hour, 90*24*time.Hour)
	hk.Start()
	hk.Stop()

	_, err = env.store.PasswordResets().GetPasswordResetByTokenHash(ctx, cryptox.FingerprintToken(expired))
	require.Error(t, err)
	_, err = env.store.PasswordResets().GetPasswordResetByTokenHash(ctx, cryptox.FingerprintToken(live))
	require.NoError(t, err)

	events, err := env.audit.List(ctx, 100)
	require.NoError(t, err)
	for _, e := range events {
		require.True(t, e.CreatedAt.After(now.Add(-90*24*time.Hour)))
	}
}
