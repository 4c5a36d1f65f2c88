package privacy

import (
	"fmt"
	"regexp"
)

// Rule defines one redaction rule: a regex for a single category of
// sensitive data and the replacement template applied to matches.
// Replacement templates may reference capture groups (${1}) to preserve
// non-sensitive portions such as key names or URL schemes.
type Rule struct {
	// ID is the unique identifier for this rule.
	ID string `koanf:"id"`

	// Description explains what this rule detects.
	Description string `koanf:"description"`

	// Pattern is the regex matching the sensitive shape.
	Pattern string `koanf:"pattern"`

	// Replacement is the substitution template.
	Replacement string `koanf:"replacement"`
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp
}

// Redactor applies an ordered list of redaction rules to free text.
// Rules operate on disjoint syntactic shapes; no rule undoes another's
// replacement, which keeps Redact idempotent.
type Redactor struct {
	rules []compiledRule
}

// NewRedactor compiles the given rules. Rule order is preserved.
func NewRedactor(rules []Rule) (*Redactor, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: ID is required", i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", rule.ID)
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}
		compiled = append(compiled, compiledRule{Rule: rule, pattern: re})
	}
	return &Redactor{rules: compiled}, nil
}

// MustNewRedactor compiles rules, panicking on error. Intended for the
// package defaults, which are covered by tests.
func MustNewRedactor(rules []Rule) *Redactor {
	r, err := NewRedactor(rules)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultRedactor = MustNewRedactor(DefaultRules())

// Default returns the shared Redactor built from DefaultRules.
// It is immutable and safe for concurrent use.
func Default() *Redactor {
	return defaultRedactor
}

// Redact replaces sensitive substrings in text with redaction markers.
// It is a pure function: no side effects, no cross-call state, and
// re-applying it to already-redacted text yields the same text.
//
// Matching is strictly regex based. A secret that matches no rule passes
// through unchanged; the key-based structural sanitizer is the stronger
// fallback for that case.
func (r *Redactor) Redact(text string) string {
	if text == "" {
		return text
	}
	for _, rule := range r.rules {
		text = rule.pattern.ReplaceAllString(text, rule.Replacement)
	}
	return text
}

// Redact applies the default rule set. See Redactor.Redact.
func Redact(text string) string {
	return defaultRedactor.Redact(text)
}

// DefaultRules returns the ordered default redaction rules. Extend by
// adding rules; the matching logic never changes per category.
func DefaultRules() []Rule {
	return []Rule{
		// Key/value pairs: value replaced, key preserved.
		{
			ID:          "api-key",
			Description: "API key assigned to an api_key-style key",
			Pattern:     `(?i)(api[_-]?key|apikey)["']?\s*[:=]\s*["']?[A-Za-z0-9_\-]{20,}`,
			Replacement: `${1}=***REDACTED_API_KEY***`,
		},
		{
			ID:          "access-token",
			Description: "Access token assigned to an access_token-style key",
			Pattern:     `(?i)(access[_-]?token|accesstoken)["']?\s*[:=]\s*["']?[A-Za-z0-9_\-\.]{20,}`,
			Replacement: `${1}=***REDACTED_TOKEN***`,
		},
		{
			ID:          "bearer-token",
			Description: "Bearer-scheme authorization value",
			Pattern:     `(?i)(bearer\s+)[A-Za-z0-9_\-\.]{20,}`,
			Replacement: `${1}***REDACTED_TOKEN***`,
		},

		// Provider-specific fixed-format tokens: whole token replaced.
		{
			ID:          "aws-access-key-id",
			Description: "AWS access key ID",
			Pattern:     `AKIA[0-9A-Z]{16}`,
			Replacement: `***REDACTED_AWS_KEY***`,
		},
		{
			ID:          "aws-secret-access-key",
			Description: "AWS secret access key assignment",
			Pattern:     `(?i)(aws_secret_access_key)["']?\s*[:=]\s*["']?[A-Za-z0-9/+]{40}`,
			Replacement: `${1}=***REDACTED_AWS_SECRET***`,
		},
		{
			ID:          "github-token",
			Description: "GitHub personal access token",
			Pattern:     `ghp_[A-Za-z0-9]{36}`,
			Replacement: `***REDACTED_GITHUB_TOKEN***`,
		},
		{
			ID:          "github-oauth",
			Description: "GitHub OAuth access token",
			Pattern:     `gho_[A-Za-z0-9]{36}`,
			Replacement: `***REDACTED_GITHUB_OAUTH***`,
		},
		{
			ID:          "github-app",
			Description: "GitHub app installation token",
			Pattern:     `ghs_[A-Za-z0-9]{36}`,
			Replacement: `***REDACTED_GITHUB_SECRET***`,
		},

		// Passwords.
		{
			ID:          "password",
			Description: "Password assigned to a password-style key",
			Pattern:     `(?i)(password|passwd|pwd)["']?\s*[:=]\s*["']?[^\s"']{8,}`,
			Replacement: `${1}=***REDACTED_PASSWORD***`,
		},

		// PEM private key blocks, replaced as one unit.
		{
			ID:          "private-key",
			Description: "PEM private key block",
			Pattern:     `(?s)-----BEGIN (?:RSA |DSA |EC |OPENSSH )?PRIVATE KEY-----.*?-----END (?:RSA |DSA |EC |OPENSSH )?PRIVATE KEY-----`,
			Replacement: `***REDACTED_PRIVATE_KEY***`,
		},

		// Credentialed connection URLs: only the password segment replaced,
		// scheme/user/host preserved for debuggability.
		{
			ID:          "database-url",
			Description: "Connection URL with embedded credentials",
			Pattern:     `(?i)(postgres(?:ql)?|mysql|mongodb|redis|amqp)://([^:/\s]+):([^@\s]+)@`,
			Replacement: `${1}://${2}:***REDACTED_PASSWORD***@`,
		},

		// Email addresses are PII and replaced wholesale.
		{
			ID:          "email",
			Description: "Email address",
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
			Replacement: `***REDACTED_EMAIL***`,
		},

		// Generic secrets: anything assigned to a key literally named secret.
		{
			ID:          "generic-secret",
			Description: "Value assigned to a secret-style key",
			Pattern:     `(?i)(secret)["']?\s*[:=]\s*["']?[^\s"']{8,}`,
			Replacement: `${1}=***REDACTED_SECRET***`,
		},
	}
}
