package service_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/internal/auth/store/drivers/sqlite"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/jwtx"
)

const (
	testIssuer   = "azor-auth-test"
	testPassword = "correct horse battery staple"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// captureNotifier records published events for assertions.
type captureNotifier struct {
	events []notify.Event
}

func (n *captureNotifier) Publish(_ context.Context, e notify.Event) error {
	n.events = append(n.events, e)
	return nil
}

func (n *captureNotifier) Close() error { return nil }

func (n *captureNotifier) last() (notify.Event, bool) {
	if len(n.events) == 0 {
		return notify.Event{}, false
	}
	return n.events[len(n.events)-1], true
}

type testEnv struct {
	store    store.Store
	codec    *jwtx.Codec
	notifier *captureNotifier
	audit    *service.AuditService
	mfa      *service.MFAService
	sessions *service.SessionService
	resets   *service.PasswordResetService
	users    *service.UserService
}

func newTestEnv(t *testing.T, requireMFA, allowBootstrap bool) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	secret := make([]byte, jwtx.MinSecretLength)
	for i := range secret {
		secret[i] = 0x42
	}
	codec, err := jwtx.NewCodec(secret, testIssuer)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	notifier := &captureNotifier{}
	audit := &service.AuditService{Store: st, Logger: logger}
	mfa := &service.MFAService{Store: st, Audit: audit, Notifier: notifier, Issuer: "Azor"}

	return &testEnv{
		store:    st,
		codec:    codec,
		notifier: notifier,
		audit:    audit,
		mfa:      mfa,
		sessions: &service.SessionService{
			Store:          st,
			Codec:          codec,
			MFA:            mfa,
			Audit:          audit,
			SessionTTL:     8 * time.Hour,
			BootstrapTTL:   15 * time.Minute,
			RequireMFA:     requireMFA,
			AllowBootstrap: allowBootstrap,
		},
		resets: &service.PasswordResetService{
			Store:    st,
			Audit:    audit,
			Notifier: notifier,
			TTL:      time.Hour,
		},
		users: &service.UserService{Store: st, Audit: audit, Notifier: notifier},
	}
}

// createUser provisions an active user with the shared test password.
func (env *testEnv) createUser(t *testing.T, email string, role domain.Role) domain.User {
	t.Helper()
	user, err := env.users.Create(context.Background(), "", email, testPassword, role)
	require.NoError(t, err)
	return user
}

// enrollMFA walks the real setup/verify flow and returns the secret and
// the plaintext recovery codes.
func (env *testEnv) enrollMFA(t *testing.T, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	enrollment, err := env.mfa.Setup(ctx, userID)
	require.NoError(t, err)

	code := currentTOTP(t, enrollment.Secret)
	recoveryCodes, err := env.mfa.Verify(ctx, userID, code)
	require.NoError(t, err)
	require.Len(t, recoveryCodes, cryptox.RecoveryCodeCount)

	return enrollment.Secret, recoveryCodes
}
