package services

import (
	"context"
	"testing"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/auth"
	"github.com/baharkarakas/fintech-transfers/internal/logger"
	"github.com/baharkarakas/fintech-transfers/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *memory.Store, *auth.TokenManager) {
	t.Helper()
	store := memory.New()
	tm := auth.NewTokenManager("access", "refresh", "test", 15*time.Minute, time.Hour)
	return NewUserService(store, tm, dec("100000.00"), "USD", logger.Nop()), store, tm
}

func TestRegister_CreatesUserAndFundedAccount(t *testing.T) {
	svc, store, _ := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterInput{
		Username: " Alice_1 ", Email: "Alice@Example.com", FullName: "Alice Liddell", Password: "Str0ng!Passw0rd",
	}))

	u, err := store.GetByUsername(ctx, "alice_1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "unverified", u.KYCStatus)
	assert.NotEqual(t, "Str0ng!Passw0rd", u.PasswordHash)

	accounts := store.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, u.ID, accounts[0].UserID)
	assert.True(t, dec("100000.00").Equal(accounts[0].Balance))
	assert.Equal(t, "USD", accounts[0].Currency)
}

func TestRegister_TakenUsername(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "Str0ng!Passw0rd"}))

	err := svc.Register(ctx, RegisterInput{Username: "ALICE", Email: "other@example.com", Password: "Str0ng!Passw0rd"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_ExistingEmailIsNotRevealed(t *testing.T) {
	svc, store, _ := newUserService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "Str0ng!Passw0rd"}))

	assert.NoError(t, svc.Register(ctx, RegisterInput{Username: "mallory", Email: "A@example.com", Password: "Str0ng!Passw0rd"}))
	assert.Len(t, store.Accounts(), 1)
}

func TestRegister_InvalidInput(t *testing.T) {
	svc, _, _ := newUserService(t)
	err := svc.Register(context.Background(), RegisterInput{Username: "a!", Email: "a@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLogin(t *testing.T) {
	svc, _, tm := newUserService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "Str0ng!Passw0rd"}))

	u, pair, err := svc.Login(ctx, " A@EXAMPLE.com", "Str0ng!Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	claims, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, _, err = svc.Login(ctx, "a@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "Str0ng!Passw0rd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshAndCurrent(t *testing.T) {
	svc, _, tm := newUserService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "Str0ng!Passw0rd"}))
	u, pair, err := svc.Login(ctx, "a@example.com", "Str0ng!Passw0rd")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = tm.ParseAccess(next.AccessToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	got, err := svc.Current(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Current(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnauthorized)

	orphan, err := tm.GeneratePair("ghost")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, orphan.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
