package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterLogsIn(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	acc := e.register(t, "Ana", "ana@example.com")

	cur, err := e.svc.Auth.CurrentAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, cur.ID)

	cached, err := e.svc.Auth.Cached(ctx)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, cached.ID)

	raw, err := e.store.Get(ctx, KeyCurrentUser)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "argon2id")
	assert.NotContains(t, string(raw), "password")
}

func TestAuthService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	e.register(t, "Ana", "ana@example.com")
	require.NoError(t, e.svc.Auth.Logout(ctx))

	_, err := e.svc.Auth.CurrentAccount(ctx)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = e.svc.Auth.Cached(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = e.svc.Auth.Login(ctx, "ana@example.com", "bad-password")
	assert.ErrorIs(t, err, common.ErrAuthFailure)

	acc, err := e.svc.Auth.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.NotNil(t, acc.LastLogin)

	// logging out twice is fine
	require.NoError(t, e.svc.Auth.Logout(ctx))
	require.NoError(t, e.svc.Auth.Logout(ctx))
}

func TestAuthService_CurrentAccountDeactivated(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	acc := e.register(t, "Ana", "ana@example.com")
	_, err := e.svc.Accounts.SetActive(ctx, acc.ID, false)
	require.NoError(t, err)

	_, err = e.svc.Auth.CurrentAccount(ctx)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	st, err := e.svc.Sessions.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Active)
}

func TestAuthService_RestoreDeletedAccount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	acc := e.register(t, "Ana", "ana@example.com")
	require.NoError(t, e.svc.Accounts.Delete(ctx, acc.ID))

	got, err := e.svc.Auth.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = e.svc.Auth.Cached(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuthService_RestoreRefreshesCache(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	acc := e.register(t, "Ana", "ana@example.com")
	_, err := e.svc.Accounts.Rename(ctx, acc.ID, "Ana Maria")
	require.NoError(t, err)

	got, err := e.svc.Auth.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana Maria", got.Name)

	cached, err := e.svc.Auth.Cached(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", cached.Name)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	city := "Salvador"
	_, err := e.svc.Auth.UpdateProfile(ctx, AccountPatch{City: &city})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	e.register(t, "Ana", "ana@example.com")
	got, err := e.svc.Auth.UpdateProfile(ctx, AccountPatch{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Salvador", got.Profile.City)

	cached, err := e.svc.Auth.Cached(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Salvador", cached.Profile.City)
}
