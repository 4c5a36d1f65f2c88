// Package ingest is the single entry point for raw secret material.
// Inputs carry the matched secret text exactly once; the service hashes
// it, discards the plaintext, and persists digests only. Nothing in this
// package logs or returns raw input fields.
package ingest

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateFinding marks an occurrence already on record; callers
	// treat it as an idempotent no-op.
	ErrDuplicateFinding = errors.New("finding already recorded")

	// ErrDuplicateRule marks an already-active suppression rule.
	ErrDuplicateRule = errors.New("suppression rule already exists")
)

// FindingInput is one detected secret occurrence as reported by a
// scanner. MatchedSecret is write-only: it is hashed and dropped, and
// it carries no json tag that would ever echo it back.
type FindingInput struct {
	RepositoryID uuid.UUID `json:"repository_id" validate:"required"`
	ScanID       uuid.UUID `json:"scan_id" validate:"required"`

	SecretType    string `json:"secret_type" validate:"required"`
	MatchedSecret string `json:"matched_secret" validate:"required,min=1,max=10000"`

	FilePath    string `json:"file_path" validate:"required,max=4096"`
	LineNumber  int    `json:"line_number" validate:"required,min=1"`
	StartColumn *int   `json:"start_column,omitempty" validate:"omitempty,min=0"`
	EndColumn   *int   `json:"end_column,omitempty" validate:"omitempty,min=0"`

	RuleID  *string  `json:"rule_id,omitempty" validate:"omitempty,max=200"`
	Entropy *float64 `json:"entropy,omitempty" validate:"omitempty,min=0,max=8"`

	ContextBefore *string    `json:"context_before,omitempty" validate:"omitempty,max=2000"`
	ContextAfter  *string    `json:"context_after,omitempty" validate:"omitempty,max=2000"`
	CommitSHA     *string    `json:"commit_sha,omitempty" validate:"omitempty,max=40"`
	CommitAuthor  *string    `json:"commit_author,omitempty" validate:"omitempty,max=200"`
	CommitDate    *time.Time `json:"commit_date,omitempty"`

	Severity models.Severity `json:"severity,omitempty"`
}

// FalsePositiveInput registers a suppression rule. Pattern is write-only
// and hashed exactly like a matched secret.
type FalsePositiveInput struct {
	RepositoryID *uuid.UUID `json:"repository_id,omitempty"` // nil means global scope

	SecretType string `json:"secret_type" validate:"required"`
	Pattern    string `json:"pattern" validate:"required,min=1,max=10000"`

	FilePathPattern *string `json:"file_path_pattern,omitempty" validate:"omitempty,max=4096"`
	Description     string  `json:"description" validate:"max=2000"`
	Reason          string  `json:"reason" validate:"required,max=2000"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkFilePath rejects traversal, NUL bytes, and absolute paths. Paths
// are recorded relative to the repository root.
func checkFilePath(p string) error {
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: file_path contains NUL", ErrInvalidInput)
	}
	if path.IsAbs(p) || strings.HasPrefix(p, `\`) {
		return fmt.Errorf("%w: file_path must be relative", ErrInvalidInput)
	}
	for _, part := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("%w: file_path must not traverse upward", ErrInvalidInput)
		}
	}
	return nil
}

// Validate applies struct tags plus the checks the tags cannot express.
func (in *FindingInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, validationDetail(err))
	}
	if !models.ValidSecretType(in.SecretType) {
		return fmt.Errorf("%w: unknown secret_type %q", ErrInvalidInput, in.SecretType)
	}
	if err := checkFilePath(in.FilePath); err != nil {
		return err
	}
	if in.StartColumn != nil && in.EndColumn != nil && *in.EndColumn < *in.StartColumn {
		return fmt.Errorf("%w: end_column before start_column", ErrInvalidInput)
	}
	if in.Severity != "" && !models.ValidSeverity(in.Severity) {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, in.Severity)
	}
	return nil
}

// Validate applies struct tags plus the closed secret-type vocabulary.
func (in *FalsePositiveInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, validationDetail(err))
	}
	if !models.ValidSecretType(in.SecretType) {
		return fmt.Errorf("%w: unknown secret_type %q", ErrInvalidInput, in.SecretType)
	}
	if in.FilePathPattern != nil {
		if err := checkFilePath(*in.FilePathPattern); err != nil {
			return err
		}
	}
	return nil
}

// validationDetail renders field-level failures without ever echoing the
// offending values; secret-bearing fields stay out of error text.
func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
