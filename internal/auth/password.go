// Package auth implements the credential boundary: bcrypt password
// hashing, JWT access tokens, and the GitHub OAuth flow. Raw passwords
// and OAuth tokens exist only transiently inside this package; what
// leaves it is a bcrypt hash, a signed JWT, or a SHA-256 digest.
package auth

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the interactive-login latency budget.
const DefaultBcryptCost = 12

var (
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// HashPassword bcrypt-hashes a plaintext password. The plaintext is not
// retained.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against its bcrypt hash.
// Both failure modes (wrong password, malformed hash) collapse to
// ErrInvalidCredentials so callers cannot distinguish them.
func VerifyPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidatePasswordStrength enforces the registration policy: at least
// 8 characters with an uppercase letter, a lowercase letter, and a digit.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: minimum 8 characters", ErrWeakPassword)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: needs upper, lower and digit", ErrWeakPassword)
	}
	return nil
}

// ValidateUsername enforces 3-50 chars of [a-zA-Z0-9_-].
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return errors.New("username must be 3-50 characters of letters, digits, '_' or '-'")
	}
	return nil
}

// ValidateEmail does a shape check only; deliverability is not our
// problem here.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailRe.MatchString(email) {
		return errors.New("invalid email address")
	}
	return nil
}
