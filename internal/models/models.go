// Package models defines the persisted entities and their closed
// vocabularies. Finding and FalsePositive carry only SHA-256 digests of
// sensitive material; no entity field ever holds a raw secret.
package models

import (
	"time"

	"github.com/google/uuid"
)

// FindingStatus values form the finding lifecycle.
type FindingStatus string

const (
	FindingStatusActive        FindingStatus = "active"
	FindingStatusResolved      FindingStatus = "resolved"
	FindingStatusFalsePositive FindingStatus = "false_positive"
	FindingStatusIgnored       FindingStatus = "ignored"
)

// ValidFindingStatus reports membership in the status vocabulary.
func ValidFindingStatus(s FindingStatus) bool {
	switch s {
	case FindingStatusActive, FindingStatusResolved, FindingStatusFalsePositive, FindingStatusIgnored:
		return true
	}
	return false
}

// Severity levels for findings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ValidSeverity reports membership in the severity vocabulary.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// ScanStatus values for scan runs.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// FalsePositiveScope values.
type FalsePositiveScope string

const (
	ScopeRepository FalsePositiveScope = "repository"
	ScopeGlobal     FalsePositiveScope = "global"
)

// Role values for users.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a credential holder. Exactly one pathway is populated per
// account: PasswordHash (email/password) or GitHubID (OAuth). Plaintext
// passwords and OAuth tokens are never persisted; AccessTokenHash holds
// the SHA-256 of the OAuth token when present.
type User struct {
	ID              uuid.UUID
	Username        string
	Email           *string
	PasswordHash    *string
	GitHubID        *int64
	AvatarURL       *string
	AccessTokenHash *string
	Role            Role
	IsActive        bool
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Repository is a linked source repository owned by a user.
type Repository struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	GitHubRepoID  *int64
	Owner         string
	Name          string
	FullName      string
	Description   *string
	IsPrivate     bool
	DefaultBranch string
	ScanEnabled   bool
	LastScannedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Scan is one scan run over a repository at a commit.
type Scan struct {
	ID                uuid.UUID
	RepositoryID      uuid.UUID
	CommitSHA         string
	Branch            string
	ScanType          string
	Status            ScanStatus
	TotalFilesScanned int
	TotalFindings     int
	HighSeverityCount int
	ErrorMessage      *string
	TriggeredBy       *string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Finding is one detected secret occurrence. MatchTextHash is the only
// trace of the secret; location fields and the hash are immutable after
// creation, and rows are soft-deleted to preserve the audit trail.
type Finding struct {
	ID           uuid.UUID
	ScanID       uuid.UUID
	RepositoryID uuid.UUID

	FilePath    string
	LineNumber  int
	StartColumn *int
	EndColumn   *int

	SecretType    string
	MatchTextHash string
	RuleID        *string
	Entropy       *float64

	ContextBefore *string
	ContextAfter  *string
	CommitSHA     *string
	CommitAuthor  *string
	CommitDate    *time.Time

	Status   FindingStatus
	Severity Severity

	ResolvedAt     *time.Time
	ResolvedBy     *uuid.UUID
	ResolutionNote *string
	FixedInCommit  *string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// FalsePositive is a user-curated suppression rule. PatternHash is the
// SHA-256 of the raw pattern, which is never stored.
type FalsePositive struct {
	ID              uuid.UUID
	RepositoryID    *uuid.UUID // nil for global scope
	UserID          uuid.UUID
	SecretType      string
	PatternHash     string
	FilePathPattern *string
	Description     string
	Reason          string
	Scope           FalsePositiveScope
	IsActive        bool
	TimesMatched    int
	LastMatchedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}
