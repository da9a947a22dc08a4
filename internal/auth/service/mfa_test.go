package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
)

func TestMFASetup(t *testing.T) {
	env := newTestEnv(t, true, true)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()

	enrollment, err := env.mfa.Setup(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Equal(t, "Azor", enrollment.Issuer)
	require.Equal(t, "agent@example.com", enrollment.Account)
	require.True(t, strings.HasPrefix(enrollment.OTPAuthURL, "otpauth://totp/"))
	require.Contains(t, enrollment.OTPAuthURL, "secret="+enrollment.Secret)
	require.Contains(t, enrollment.OTPAuthURL, "issuer=Azor")

	// abandoned setup returns the same secret
	again, err := env.mfa.Setup(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, enrollment.Secret, again.Secret)
}

// missOnceStore reports the credential row missing on the first lookup,
// the view a Setup call gets when a concurrent Setup inserts between its
// lookup and its upsert.
type missOnceStore struct {
	store.Store
	missed bool
}

func (s *missOnceStore) MFACredentials() store.MFACredentials {
	return &missOnceMFA{MFACredentials: s.Store.MFACredentials(), owner: s}
}

type missOnceMFA struct {
	store.MFACredentials
	owner *missOnceStore
}

func (m *missOnceMFA) GetMFACredential(ctx context.Context, userID string) (domain.MFACredential, error) {
	if !m.owner.missed {
		m.owner.missed = true
		return domain.MFACredential{}, store.ErrNotFound
	}
	return m.MFACredentials.GetMFACredential(ctx, userID)
}

func TestMFASetupServesStoredSecretWhenInsertLoses(t *testing.T) {
	env := newTestEnv(t, true, true)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()

	// the concurrent winner's row is already there when our upsert runs
	require.NoError(t, env.store.MFACredentials().UpsertSecret(ctx, user.ID, "WINNERSECRET"))

	mfa := &service.MFAService{
		Store:    &missOnceStore{Store: env.store},
		Audit:    env.audit,
		Notifier: env.notifier,
		Issuer:   "Azor",
	}

	// Setup's insert is a no-op against the existing row; the enrollment
	// must carry the stored secret, not the locally generated one.
	enrollment, err := mfa.Setup(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "WINNERSECRET", enrollment.Secret)
	require.Contains(t, enrollment.OTPAuthURL, "secret=WINNERSECRET")
}

func TestMFASetupRejectedWhenEnabled(t *testing.T) {
	env := newTestEnv(t, true, true)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	env.enrollMFA(t, user.ID)

	_, err := env.mfa.Setup(context.Background(), user.ID)
	require.ErrorIs(t, err, service.ErrMFAAlreadyEnabled)
}

func TestMFAVerify(t *testing.T) {
	env := newTestEnv(t, true, true)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()

	t.Run("without setup", func(t *testing.T) {
		_, err := env.mfa.Verify(ctx, user.ID, "123456")
		require.ErrorIs(t, err, service.ErrMFANotEnrolled)
	})

	enrollment, err := env.mfa.Setup(ctx, user.ID)
	require.NoError(t, err)

	t.Run("wrong code", func(t *testing.T) {
		_, err := env.mfa.Verify(ctx, user.ID, "000000")
		require.ErrorIs(t, err, service.ErrInvalidTOTPCode)

		cred, err := env.store.MFACredentials().GetMFACredential(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, cred.Enabled)
	})

	t.Run("correct code enables and issues recovery codes", func(t *testing.T) {
		codes, err := env.mfa.Verify(ctx, user.ID, currentTOTP(t, enrollment.Secret))
		require.NoError(t, err)
		require.Len(t, codes, 10)

		cred, err := env.store.MFACredentials().GetMFACredential(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, cred.Enabled)
		require.NotNil(t, cred.EnabledAt)

		remaining, err := env.mfa.RemainingRecoveryCodes(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, 10, remaining)

		event, ok := env.notifier.last()
		require.True(t, ok)
		require.Equal(t, notify.KindMFAEnrolled, event.Kind)
	})

	t.Run("second verify is rejected", func(t *testing.T) {
		_, err := env.mfa.Verify(ctx, user.ID, currentTOTP(t, enrollment.Secret))
		require.ErrorIs(t, err, service.ErrMFAAlreadyEnabled)
	})
}

func TestMFAReset(t *testing.T) {
	env := newTestEnv(t, true, true)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	env.enrollMFA(t, user.ID)
	ctx := context.Background()

	require.NoError(t, env.mfa.Reset(ctx, user.ID, user.ID))

	_, err := env.store.MFACredentials().GetMFACredential(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	remaining, err := env.mfa.RemainingRecoveryCodes(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, remaining)

	// a fresh enrollment mints a new secret
	enrollment, err := env.mfa.Setup(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
}

func TestConsumeRecoveryCodeNormalizesInput(t *testing.T) {
	env := newTestEnv(t, true, true)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	_, codes := env.enrollMFA(t, user.ID)
	ctx := context.Background()

	// lowercased, separator stripped input still matches
	sloppy := strings.ToLower(strings.ReplaceAll(codes[0], "-", " "))
	require.NoError(t, env.mfa.ConsumeRecoveryCode(ctx, user.ID, sloppy))

	require.ErrorIs(t, env.mfa.ConsumeRecoveryCode(ctx, user.ID, codes[0]), service.ErrInvalidRecoveryCode)
}
