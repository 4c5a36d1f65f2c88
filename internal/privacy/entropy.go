package privacy

import "unicode"

// DefaultLikelySecretMinLength is the minimum length at which a string is
// considered a candidate secret by IsLikelySecret.
const DefaultLikelySecretMinLength = 20

// IsLikelySecret reports whether a string has the shape of a secret:
// long, space-free, and drawing from at least three character classes
// (upper, lower, digit, other). It is an additional signal layered on top
// of the pattern rules, not a replacement for them.
func IsLikelySecret(value string, minLength int) bool {
	if minLength <= 0 {
		minLength = DefaultLikelySecretMinLength
	}
	if len(value) < minLength {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, r := range value {
		switch {
		case r == ' ':
			return false
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}

	diversity := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasOther} {
		if present {
			diversity++
		}
	}
	return diversity >= 3
}
