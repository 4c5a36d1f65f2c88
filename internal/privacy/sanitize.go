package privacy

import "strings"

// Marker is the fixed replacement for values whose key names them sensitive.
const Marker = "***REDACTED***"

// SensitiveKeyTerms are the substrings that mark a normalized key as
// sensitive. The key-based rule is strictly stronger than the pattern-based
// one: a value stored under a matched key is replaced wholesale even when
// it looks like ordinary text.
func SensitiveKeyTerms() []string {
	return []string{
		"password", "passwd", "pwd",
		"secret", "token", "key",
		"auth", "credential",
		"session", "cookie", "jwt",
	}
}

// Sanitizer walks nested key/value structures and redacts them, combining
// the key-name heuristic with the pattern-based Redactor for string values.
type Sanitizer struct {
	redactor *Redactor
	terms    []string
}

// NewSanitizer builds a Sanitizer around the given Redactor. A nil redactor
// uses the package default.
func NewSanitizer(r *Redactor) *Sanitizer {
	if r == nil {
		r = Default()
	}
	return &Sanitizer{redactor: r, terms: SensitiveKeyTerms()}
}

var defaultSanitizer = NewSanitizer(nil)

// SanitizeValue recursively sanitizes a decoded JSON value using the
// default rules. See Sanitizer.SanitizeValue.
func SanitizeValue(v any) any {
	return defaultSanitizer.SanitizeValue(v)
}

// SanitizeMap sanitizes a string-keyed map using the default rules.
func SanitizeMap(m map[string]any) map[string]any {
	return defaultSanitizer.SanitizeMap(m)
}

// SanitizeValue returns a sanitized copy of a recursive value: maps are
// scrubbed by key name then recursed into, sequences are mapped
// element-wise, strings pass through the Redactor, and other scalars
// (numbers, booleans, nil) pass through unchanged. The input is never
// mutated.
func (s *Sanitizer) SanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return s.SanitizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.SanitizeValue(item)
		}
		return out
	case string:
		return s.redactor.Redact(val)
	default:
		return v
	}
}

// SanitizeMap sanitizes each entry of a map. Keys whose normalized form
// contains a sensitive term have their value replaced with Marker
// regardless of type or content; other values are recursed into.
func (s *Sanitizer) SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		if metadataKeys[NormalizeKey(key)] {
			// Classification metadata: inner keys are vocabulary labels
			// like "github_token", so the key rule must not apply below
			// this point. Content patterns still do.
			out[key] = s.RedactStrings(value)
			continue
		}
		if s.IsSensitiveKey(key) {
			out[key] = Marker
			continue
		}
		out[key] = s.SanitizeValue(value)
	}
	return out
}

// RedactStrings recursively applies the pattern Redactor to every string
// in a value without the key-name rule. It exists for the few surfaces
// that legitimately return a freshly issued credential (token issuance),
// where key-based redaction would destroy the payload but content
// patterns must still hold.
func (s *Sanitizer) RedactStrings(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, value := range val {
			out[key] = s.RedactStrings(value)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.RedactStrings(item)
		}
		return out
	case string:
		return s.redactor.Redact(val)
	default:
		return v
	}
}

// metadataKeys are field names that mention a sensitive term but carry
// classification metadata, not secret material ("secret_type" holds
// "github_token", never a token). Normalized form.
var metadataKeys = map[string]bool{
	"secrettype":   true,
	"bysecrettype": true,
	"tokentype":    true,
}

// IsSensitiveKey reports whether a key names sensitive data. Keys are
// normalized (lowercased, separators stripped) before the substring test
// so that "API-Key", "api_key", and "ApiKey" all match.
func (s *Sanitizer) IsSensitiveKey(key string) bool {
	normalized := NormalizeKey(key)
	if metadataKeys[normalized] {
		return false
	}
	for _, term := range s.terms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// NormalizeKey lowercases a key and strips underscore and hyphen
// separators.
func NormalizeKey(key string) string {
	lower := strings.ToLower(key)
	lower = strings.ReplaceAll(lower, "_", "")
	return strings.ReplaceAll(lower, "-", "")
}
