package httpapi

import (
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/google/uuid"
)

// UserResponse is the public view of an account. Credential fields
// (password hash, token digest) have no place here.
type UserResponse struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	Email        *string     `json:"email,omitempty"`
	AvatarURL    *string     `json:"avatar_url,omitempty"`
	Role         models.Role `json:"role"`
	GitHubLinked bool        `json:"github_linked"`
	LastLoginAt  *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		AvatarURL:    u.AvatarURL,
		Role:         u.Role,
		GitHubLinked: u.GitHubID != nil,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// RepositoryResponse is the public view of a linked repository.
type RepositoryResponse struct {
	ID            uuid.UUID  `json:"id"`
	GitHubRepoID  *int64     `json:"github_repo_id,omitempty"`
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Description   *string    `json:"description,omitempty"`
	IsPrivate     bool       `json:"is_private"`
	DefaultBranch string     `json:"default_branch"`
	ScanEnabled   bool       `json:"scan_enabled"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toRepositoryResponse(r *models.Repository) RepositoryResponse {
	return RepositoryResponse{
		ID:            r.ID,
		GitHubRepoID:  r.GitHubRepoID,
		Owner:         r.Owner,
		Name:          r.Name,
		FullName:      r.FullName,
		Description:   r.Description,
		IsPrivate:     r.IsPrivate,
		DefaultBranch: r.DefaultBranch,
		ScanEnabled:   r.ScanEnabled,
		LastScannedAt: r.LastScannedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ScanResponse is the public view of a scan run.
type ScanResponse struct {
	ID                uuid.UUID         `json:"id"`
	RepositoryID      uuid.UUID         `json:"repository_id"`
	CommitSHA         string            `json:"commit_sha"`
	Branch            string            `json:"branch"`
	ScanType          string            `json:"scan_type"`
	Status            models.ScanStatus `json:"status"`
	TotalFilesScanned int               `json:"total_files_scanned"`
	TotalFindings     int               `json:"total_findings"`
	HighSeverityCount int               `json:"high_severity_count"`
	ErrorMessage      *string           `json:"error_message,omitempty"`
	TriggeredBy       *string           `json:"triggered_by,omitempty"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func toScanResponse(s *models.Scan) ScanResponse {
	return ScanResponse{
		ID:                s.ID,
		RepositoryID:      s.RepositoryID,
		CommitSHA:         s.CommitSHA,
		Branch:            s.Branch,
		ScanType:          s.ScanType,
		Status:            s.Status,
		TotalFilesScanned: s.TotalFilesScanned,
		TotalFindings:     s.TotalFindings,
		HighSeverityCount: s.HighSeverityCount,
		ErrorMessage:      s.ErrorMessage,
		TriggeredBy:       s.TriggeredBy,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		CreatedAt:         s.CreatedAt,
	}
}

// FindingResponse is the public view of a finding: the digest, never
// the matched text.
type FindingResponse struct {
	ID           uuid.UUID `json:"id"`
	ScanID       uuid.UUID `json:"scan_id"`
	RepositoryID uuid.UUID `json:"repository_id"`

	FilePath    string `json:"file_path"`
	LineNumber  int    `json:"line_number"`
	StartColumn *int   `json:"start_column,omitempty"`
	EndColumn   *int   `json:"end_column,omitempty"`

	SecretType    string   `json:"secret_type"`
	MatchTextHash string   `json:"match_text_hash"`
	RuleID        *string  `json:"rule_id,omitempty"`
	Entropy       *float64 `json:"entropy,omitempty"`

	ContextBefore *string    `json:"context_before,omitempty"`
	ContextAfter  *string    `json:"context_after,omitempty"`
	CommitSHA     *string    `json:"commit_sha,omitempty"`
	CommitAuthor  *string    `json:"commit_author,omitempty"`
	CommitDate    *time.Time `json:"commit_date,omitempty"`

	Status   models.FindingStatus `json:"status"`
	Severity models.Severity      `json:"severity"`

	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     *uuid.UUID `json:"resolved_by,omitempty"`
	ResolutionNote *string    `json:"resolution_note,omitempty"`
	FixedInCommit  *string    `json:"fixed_in_commit,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toFindingResponse(f *models.Finding) FindingResponse {
	return FindingResponse{
		ID:             f.ID,
		ScanID:         f.ScanID,
		RepositoryID:   f.RepositoryID,
		FilePath:       f.FilePath,
		LineNumber:     f.LineNumber,
		StartColumn:    f.StartColumn,
		EndColumn:      f.EndColumn,
		SecretType:     f.SecretType,
		MatchTextHash:  f.MatchTextHash,
		RuleID:         f.RuleID,
		Entropy:        f.Entropy,
		ContextBefore:  f.ContextBefore,
		ContextAfter:   f.ContextAfter,
		CommitSHA:      f.CommitSHA,
		CommitAuthor:   f.CommitAuthor,
		CommitDate:     f.CommitDate,
		Status:         f.Status,
		Severity:       f.Severity,
		ResolvedAt:     f.ResolvedAt,
		ResolvedBy:     f.ResolvedBy,
		ResolutionNote: f.ResolutionNote,
		FixedInCommit:  f.FixedInCommit,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func toFindingResponses(fs []*models.Finding) []FindingResponse {
	out := make([]FindingResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, toFindingResponse(f))
	}
	return out
}

// FindingListResponse is a paginated finding page.
type FindingListResponse struct {
	Findings []FindingResponse `json:"findings"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// FalsePositiveResponse is the public view of a suppression rule.
type FalsePositiveResponse struct {
	ID              uuid.UUID                 `json:"id"`
	RepositoryID    *uuid.UUID                `json:"repository_id,omitempty"`
	SecretType      string                    `json:"secret_type"`
	PatternHash     string                    `json:"pattern_hash"`
	FilePathPattern *string                   `json:"file_path_pattern,omitempty"`
	Description     string                    `json:"description"`
	Reason          string                    `json:"reason"`
	Scope           models.FalsePositiveScope `json:"scope"`
	IsActive        bool                      `json:"is_active"`
	TimesMatched    int                       `json:"times_matched"`
	LastMatchedAt   *time.Time                `json:"last_matched_at,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
}

func toFalsePositiveResponse(fp *models.FalsePositive) FalsePositiveResponse {
	return FalsePositiveResponse{
		ID:              fp.ID,
		RepositoryID:    fp.RepositoryID,
		SecretType:      fp.SecretType,
		PatternHash:     fp.PatternHash,
		FilePathPattern: fp.FilePathPattern,
		Description:     fp.Description,
		Reason:          fp.Reason,
		Scope:           fp.Scope,
		IsActive:        fp.IsActive,
		TimesMatched:    fp.TimesMatched,
		LastMatchedAt:   fp.LastMatchedAt,
		CreatedAt:       fp.CreatedAt,
	}
}

// StatisticsResponse wraps the store aggregate.
type StatisticsResponse struct {
	*store.Statistics
	GeneratedAt time.Time `json:"generated_at"`
}
