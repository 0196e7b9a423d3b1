package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const KYCUnverified = "unverified"

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	KYCStatus    string    `json:"kyc_status"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeUsername lower-cases and trims; usernames are stored that way.
func NormalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ValidUsername(s string) bool { return usernameRe.MatchString(s) }

func (u *User) Validate() error {
	if !ValidUsername(u.Username) {
		return errors.New("invalid username")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if u.KYCStatus == "" {
		u.KYCStatus = KYCUnverified
	}
	return nil
}
