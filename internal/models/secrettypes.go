package models

import "strings"

// secretTypes is the closed vocabulary of accepted secret types. The
// ingestion boundary rejects anything outside this set so arbitrary
// caller-supplied values never reach the secret_type column.
var secretTypes = map[string]struct{}{
	"api_key":           {},
	"aws_access_key":    {},
	"aws_secret_key":    {},
	"github_token":      {},
	"gitlab_token":      {},
	"bitbucket_token":   {},
	"private_key":       {},
	"ssh_key":           {},
	"database_url":      {},
	"connection_string": {},
	"password":          {},
	"jwt_token":         {},
	"oauth_token":       {},
	"oauth_secret":      {},
	"slack_token":       {},
	"slack_webhook":     {},
	"stripe_key":        {},
	"twilio_key":        {},
	"sendgrid_key":      {},
	"mailgun_key":       {},
	"azure_key":         {},
	"gcp_key":           {},
	"npm_token":         {},
	"pypi_token":        {},
	"docker_token":      {},
	"generic_secret":    {},
	"generic_token":     {},
	"generic_key":       {},
}

// ValidSecretType reports whether secretType (case-insensitive) belongs
// to the vocabulary.
func ValidSecretType(secretType string) bool {
	_, ok := secretTypes[strings.ToLower(secretType)]
	return ok
}

// SecretTypes returns the vocabulary as a slice, for error messages and
// documentation endpoints. The order is unspecified.
func SecretTypes() []string {
	out := make([]string, 0, len(secretTypes))
	for t := range secretTypes {
		out = append(out, t)
	}
	return out
}
