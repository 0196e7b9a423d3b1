package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenManager(now time.Time) *TokenManager {
	tm := NewTokenManager("access-secret", "refresh-secret", testIssuer, 15*time.Minute, 24*time.Hour)
	tm.now = func() time.Time { return now }
	return tm
}

func TestTokenManager_PairRoundTrip(t *testing.T) {
	tm := newTokenManager(t0)
	pair, err := tm.GeneratePair("user-1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(15*time.Minute), pair.AccessExpiresAt)

	c, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, "access", c.Type)

	c, err = tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", c.Type)
}

func TestTokenManager_TypesAreNotInterchangeable(t *testing.T) {
	tm := newTokenManager(t0)
	pair, err := tm.GeneratePair("user-1")
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_ExpiredAccess(t *testing.T) {
	pair, err := newTokenManager(t0).GeneratePair("user-1")
	require.NoError(t, err)

	_, err = newTokenManager(t0.Add(16 * time.Minute)).ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	pair, err := newTokenManager(t0).GeneratePair("user-1")
	require.NoError(t, err)

	other := NewTokenManager("access-secret", "refresh-secret", "someone-else", time.Minute, time.Minute)
	other.now = func() time.Time { return t0 }
	_, err = other.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOneTimeToken(t *testing.T) {
	tok, err := newGuard().Issue("user-1", t0)
	require.NoError(t, err)

	_, err = newTokenManager(t0).ParseAccess(tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword("s3cret-pass", h))
	assert.Error(t, VerifyPassword("wrong", h))
	BurnPasswordCheck("anything")
}
