package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
)

func TestUserCreate(t *testing.T) {
	env := newTestEnv(t, false, false)
	ctx := context.Background()

	user, err := env.users.Create(ctx, "", "Agent@Example.com", testPassword, domain.RoleAgent)
	require.NoError(t, err)
	require.Equal(t, "agent@example.com", user.Email)
	require.Equal(t, domain.RoleAgent, user.Role)
	require.True(t, user.IsActive)
	require.NotEmpty(t, user.ID)

	event, ok := env.notifier.last()
	require.True(t, ok)
	require.Equal(t, notify.KindAccountCreated, event.Kind)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.users.Create(ctx, "", "AGENT@example.com", testPassword, domain.RoleAgent)
		require.ErrorIs(t, err, service.ErrEmailTaken)
	})

	t.Run("bad email", func(t *testing.T) {
		_, err := env.users.Create(ctx, "", "not-an-address", testPassword, domain.RoleAgent)
		require.ErrorIs(t, err, service.ErrInvalidEmail)
	})

	t.Run("bad role", func(t *testing.T) {
		_, err := env.users.Create(ctx, "", "other@example.com", testPassword, domain.Role("WIZARD"))
		require.ErrorIs(t, err, service.ErrInvalidRole)
	})
}

func TestUserCreateWithoutPassword(t *testing.T) {
	env := newTestEnv(t, false, false)
	ctx := context.Background()

	// provisioned accounts start with no usable password
	user, err := env.users.Create(ctx, "", "pending@example.com", "", domain.RoleAgent)
	require.NoError(t, err)
	require.Empty(t, user.PasswordHash)

	result, err := env.sessions.Login(ctx, user.Email, "", "")
	require.NoError(t, err)
	require.Equal(t, domain.LoginInvalidCredentials, result.Outcome)
}

func TestUserSetRole(t *testing.T) {
	env := newTestEnv(t, false, false)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()

	require.NoError(t, env.users.SetRole(ctx, "", user.ID, domain.RoleAdmin))

	got, err := env.users.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)

	require.ErrorIs(t, env.users.SetRole(ctx, "", user.ID, domain.Role("WIZARD")), service.ErrInvalidRole)
}

func TestUserSetActive(t *testing.T) {
	env := newTestEnv(t, false, false)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()

	require.NoError(t, env.users.SetActive(ctx, "", user.ID, false))

	got, err := env.users.Get(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	event, ok := env.notifier.last()
	require.True(t, ok)
	require.Equal(t, notify.KindAccountDisabled, event.Kind)
}

func TestUserSetPassword(t *testing.T) {
	env := newTestEnv(t, false, false)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()

	require.NoError(t, env.users.SetPassword(ctx, "", user.ID, "replacement-pass"))

	result, err := env.sessions.Login(ctx, user.Email, "replacement-pass", "")
	require.NoError(t, err)
	require.Equal(t, domain.LoginSuccess, result.Outcome)
}

func TestUserDelete(t *testing.T) {
	env := newTestEnv(t, false, false)
	user := env.createUser(t, "agent@example.com", domain.RoleAgent)
	ctx := context.Background()

	require.NoError(t, env.users.Delete(ctx, "", user.ID))

	_, err := env.users.Get(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, env.users.Delete(ctx, "", user.ID), store.ErrNotFound)
}

func TestUserList(t *testing.T) {
	env := newTestEnv(t, false, false)
	env.createUser(t, "a@example.com", domain.RoleAgent)
	env.createUser(t, "b@example.com", domain.RoleAdmin)

	users, err := env.users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
}
