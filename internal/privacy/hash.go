package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrEmptySecret is returned when hashing is attempted on an empty string.
// An empty secret is a caller bug, not a valid value to hash and store.
var ErrEmptySecret = errors.New("secret cannot be empty")

// HashSecret returns the SHA-256 digest of a secret as 64 lowercase hex
// characters. The digest is the only trace of the secret the system keeps:
// it identifies duplicates across scans without retaining plaintext.
// There is no reverse operation anywhere in gitzen.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:]), nil
}

// HashPattern hashes a false-positive pattern. Patterns and matched secrets
// are both "sensitive strings we need identity for, never plaintext for",
// so they intentionally share one primitive.
func HashPattern(pattern string) (string, error) {
	return HashSecret(pattern)
}
