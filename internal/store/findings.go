package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/google/uuid"
)

// FindingRepository persists secret findings. Rows carry the SHA-256
// digest of the matched text only; the raw secret never reaches this
// layer.
type FindingRepository struct {
	db DBTX
}

func NewFindingRepository(db DBTX) *FindingRepository {
	return &FindingRepository{db: db}
}

const findingColumns = `id, scan_id, repository_id, file_path, line_number,
	start_column, end_column, secret_type, match_text_hash, rule_id, entropy,
	context_before, context_after, commit_sha, commit_author, commit_date,
	status, severity, resolved_at, resolved_by, resolution_note, fixed_in_commit,
	created_at, updated_at, deleted_at`

func scanFinding(row interface{ Scan(...any) error }) (*models.Finding, error) {
	f := &models.Finding{}
	err := row.Scan(&f.ID, &f.ScanID, &f.RepositoryID, &f.FilePath, &f.LineNumber,
		&f.StartColumn, &f.EndColumn, &f.SecretType, &f.MatchTextHash, &f.RuleID, &f.Entropy,
		&f.ContextBefore, &f.ContextAfter, &f.CommitSHA, &f.CommitAuthor, &f.CommitDate,
		&f.Status, &f.Severity, &f.ResolvedAt, &f.ResolvedBy, &f.ResolutionNote, &f.FixedInCommit,
		&f.CreatedAt, &f.UpdatedAt, &f.DeletedAt)
	if err != nil {
		return nil, mapScanError(err)
	}
	return f, nil
}

// Insert stores a finding. A second insert of the same occurrence tuple
// (scan_id, file_path, line_number, match_text_hash) returns ErrDuplicate.
func (r *FindingRepository) Insert(ctx context.Context, f *models.Finding) (*models.Finding, error) {
	query := `
		INSERT INTO findings (scan_id, repository_id, file_path, line_number, start_column, end_column,
			secret_type, match_text_hash, rule_id, entropy, context_before, context_after,
			commit_sha, commit_author, commit_date, status, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		f.ScanID, f.RepositoryID, f.FilePath, f.LineNumber, f.StartColumn, f.EndColumn,
		f.SecretType, f.MatchTextHash, f.RuleID, f.Entropy, f.ContextBefore, f.ContextAfter,
		f.CommitSHA, f.CommitAuthor, f.CommitDate, f.Status, f.Severity,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return f, nil
}

// GetByOccurrence fetches the existing row for an occurrence tuple; used
// to coalesce duplicate ingests onto the prior finding.
func (r *FindingRepository) GetByOccurrence(ctx context.Context, scanID uuid.UUID, filePath string, lineNumber int, matchTextHash string) (*models.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings
		WHERE scan_id = $1 AND file_path = $2 AND line_number = $3 AND match_text_hash = $4`
	return scanFinding(r.db.QueryRowContext(ctx, query, scanID, filePath, lineNumber, matchTextHash))
}

func (r *FindingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE id = $1 AND deleted_at IS NULL`
	return scanFinding(r.db.QueryRowContext(ctx, query, id))
}

// FindingFilter narrows and orders List results. OwnerID scopes to the
// repositories of one user and should always be set for API reads.
type FindingFilter struct {
	OwnerID      *uuid.UUID
	RepositoryID *uuid.UUID
	ScanID       *uuid.UUID
	Status       *models.FindingStatus
	SecretType   *string
	Severity     *models.Severity
	PathContains string

	SortBy   string // created_at, severity, file_path, line_number
	SortDesc bool
	Limit    int
	Offset   int
}

// severityRank orders severities for sorting; SQL CASE keeps the closed
// vocabulary ordering without a lookup table.
const severityRank = `CASE severity
	WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2
	WHEN 'low' THEN 3 ELSE 4 END`

func (f FindingFilter) orderClause() string {
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	switch f.SortBy {
	case "severity":
		return severityRank + " " + dir + ", created_at DESC"
	case "file_path":
		return "file_path " + dir + ", line_number ASC"
	case "line_number":
		return "line_number " + dir
	default:
		return "created_at " + dir
	}
}

// List returns the filtered page and the total count of matching rows.
func (r *FindingRepository) List(ctx context.Context, filter FindingFilter) ([]*models.Finding, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.OwnerID != nil {
		where = append(where, "repository_id IN (SELECT id FROM repositories WHERE user_id = "+arg(*filter.OwnerID)+" AND deleted_at IS NULL)")
	}
	if filter.RepositoryID != nil {
		where = append(where, "repository_id = "+arg(*filter.RepositoryID))
	}
	if filter.ScanID != nil {
		where = append(where, "scan_id = "+arg(*filter.ScanID))
	}
	if filter.Status != nil {
		where = append(where, "status = "+arg(*filter.Status))
	}
	if filter.SecretType != nil {
		where = append(where, "secret_type = "+arg(*filter.SecretType))
	}
	if filter.Severity != nil {
		where = append(where, "severity = "+arg(*filter.Severity))
	}
	if filter.PathContains != "" {
		where = append(where, "file_path ILIKE "+arg("%"+escapeLike(filter.PathContains)+"%"))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM findings WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + findingColumns + " FROM findings WHERE " + whereClause +
		" ORDER BY " + filter.orderClause() +
		" LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var findings []*models.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, 0, err
		}
		findings = append(findings, f)
	}
	return findings, total, rows.Err()
}

// ListRelated returns other live findings sharing the same match digest,
// the "same secret leaked elsewhere" view.
func (r *FindingRepository) ListRelated(ctx context.Context, id uuid.UUID, limit int) ([]*models.Finding, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + findingColumns + ` FROM findings
		WHERE match_text_hash = (SELECT match_text_hash FROM findings WHERE id = $1)
		  AND id <> $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, id, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer rows.Close()

	var findings []*models.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// Update persists the mutable columns of a finding after FindingUpdate
// has been applied. Location fields and the digest are deliberately not
// in the column list.
func (r *FindingRepository) Update(ctx context.Context, f *models.Finding) error {
	query := `
		UPDATE findings
		SET status = $2, resolved_at = $3, resolved_by = $4, resolution_note = $5,
		    fixed_in_commit = $6, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, f.ID, f.Status, f.ResolvedAt, f.ResolvedBy, f.ResolutionNote, f.FixedInCommit)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}

// MarkFalsePositives flips live findings matching a suppression digest to
// false_positive. Returns the number of findings updated.
func (r *FindingRepository) MarkFalsePositives(ctx context.Context, repositoryID *uuid.UUID, patternHash string, now time.Time) (int64, error) {
	query := `
		UPDATE findings SET status = $1, updated_at = $2
		WHERE match_text_hash = $3 AND status = $4 AND deleted_at IS NULL
		  AND ($5::uuid IS NULL OR repository_id = $5)`

	res, err := r.db.ExecContext(ctx, query,
		models.FindingStatusFalsePositive, now, patternHash, models.FindingStatusActive, repositoryID)
	if err != nil {
		return 0, mapStoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *FindingRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE findings SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}

// escapeLike neutralizes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
