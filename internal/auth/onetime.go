package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrOneTimeMalformed = errors.New("one-time token is malformed or badly signed")
	ErrOneTimeExpired   = errors.New("one-time token expired")
	ErrNotOneTime       = errors.New("token is not a one-time token")
	ErrOneTimeSubject   = errors.New("one-time token belongs to another user")
	ErrOneTimeReused    = errors.New("one-time token already used")
	ErrNonceStore       = errors.New("one-time token store unavailable")
)

type OneTimeClaims struct {
	UserID  string `json:"uid"`
	OneTime bool   `json:"one_time"`
	jwt.RegisteredClaims
}

type OneTimeToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// OneTimeGuard mints and checks the short-lived tokens that gate transfers.
// It signs with its own secret, so session tokens never pass as one-time
// tokens and the other way round. Each token id is consumed on first
// successful validation.
type OneTimeGuard struct {
	secret []byte
	issuer string
	ttl    time.Duration
	nonces repository.Nonces
}

func NewOneTimeGuard(secret, issuer string, ttl time.Duration, nonces repository.Nonces) *OneTimeGuard {
	return &OneTimeGuard{secret: []byte(secret), issuer: issuer, ttl: ttl, nonces: nonces}
}

func (g *OneTimeGuard) TTL() time.Duration { return g.ttl }

func (g *OneTimeGuard) Issue(userID string, now time.Time) (OneTimeToken, error) {
	if userID == "" {
		return OneTimeToken{}, errors.New("issue one-time token: empty user id")
	}
	id := uuid.NewString()
	exp := now.Add(g.ttl)
	claims := OneTimeClaims{
		UserID:  userID,
		OneTime: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return OneTimeToken{}, fmt.Errorf("sign one-time token: %w", err)
	}
	return OneTimeToken{Value: s, ID: id, ExpiresAt: exp}, nil
}

// Validate accepts token only if it is well signed, carries the one-time
// marker, is unexpired at now, is bound to expectedUserID and has not been
// used before. A nil error consumes the token.
func (g *OneTimeGuard) Validate(ctx context.Context, token, expectedUserID string, now time.Time) error {
	claims := &OneTimeClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrOneTimeExpired
	case err != nil:
		return fmt.Errorf("%w: %v", ErrOneTimeMalformed, err)
	}

	if !claims.OneTime {
		return ErrNotOneTime
	}
	if expectedUserID == "" || claims.Subject != expectedUserID || claims.UserID != expectedUserID {
		return ErrOneTimeSubject
	}
	if claims.ID == "" {
		return fmt.Errorf("%w: missing token id", ErrOneTimeMalformed)
	}

	fresh, err := g.nonces.Consume(ctx, claims.ID, claims.ExpiresAt.Sub(now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNonceStore, err)
	}
	if !fresh {
		return ErrOneTimeReused
	}
	return nil
}
