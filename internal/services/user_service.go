package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baharkarakas/fintech-transfers/internal/auth"
	"github.com/baharkarakas/fintech-transfers/internal/logger"
	"github.com/baharkarakas/fintech-transfers/internal/models"
	repo "github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/shopspring/decimal"
)

type UserService struct {
	r               repo.Users
	tm              *auth.TokenManager
	startingBalance decimal.Decimal
	currency        string
	log             *slog.Logger
}

func NewUserService(r repo.Users, tm *auth.TokenManager, startingBalance decimal.Decimal, currency string, log *slog.Logger) *UserService {
	return &UserService{r: r, tm: tm, startingBalance: startingBalance, currency: currency, log: log}
}

type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates the user together with its account. An email that is
// already registered is not reported: the call succeeds and creates nothing.
func (s *UserService) Register(ctx context.Context, in RegisterInput) error {
	u := models.User{
		Username:  models.NormalizeUsername(in.Username),
		Email:     models.NormalizeEmail(in.Email),
		FullName:  strings.TrimSpace(in.FullName),
		KYCStatus: models.KYCUnverified,
	}
	if err := u.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if _, err := s.r.GetByUsername(ctx, u.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	created, acc, err := s.r.CreateWithAccount(ctx, u, models.Account{
		Balance:  s.startingBalance,
		Currency: s.currency,
	})
	if errors.Is(err, repo.ErrConflict) {
		// lost a race on the username, or the email exists
		if _, lookupErr := s.r.GetByUsername(ctx, u.Username); lookupErr == nil {
			return ErrUsernameTaken
		}
		logger.FromContext(ctx, s.log).Info("registration for existing email ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	logger.FromContext(ctx, s.log).Info("user registered", "user_id", created.ID, "account_id", acc.ID)
	return nil
}

// Login returns the user and a fresh token pair. Unknown emails and wrong
// passwords are indistinguishable, in result and in bcrypt cost.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, auth.TokenPair, error) {
	u, err := s.r.GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		auth.BurnPasswordCheck(password)
		return models.User{}, auth.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, auth.TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return models.User{}, auth.TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.tm.GeneratePair(u.ID)
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	return u, pair, nil
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tm.ParseRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if _, err := s.Current(ctx, claims.UserID); err != nil {
		return auth.TokenPair{}, err
	}
	return s.tm.GeneratePair(claims.UserID)
}

// Current loads the session's user; a token for a user that no longer exists is unauthorized.
func (s *UserService) Current(ctx context.Context, userID string) (models.User, error) {
	u, err := s.r.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, ErrUnauthorized
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}
