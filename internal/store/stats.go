package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Statistics aggregates finding counts for the dashboard.
type Statistics struct {
	TotalFindings int            `json:"total_findings"`
	ByStatus      map[string]int `json:"by_status"`
	BySeverity    map[string]int `json:"by_severity"`
	BySecretType  map[string]int `json:"by_secret_type"`
	Trend         []TrendPoint   `json:"trend"`
}

// TrendPoint is a day's new-finding count.
type TrendPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// StatsRepository computes aggregates over a user's findings.
type StatsRepository struct {
	db DBTX
}

func NewStatsRepository(db DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// ForUser aggregates over all the user's repositories; repositoryID
// narrows to one when non-nil. The trend covers the trailing trendDays
// days ending at now.
func (r *StatsRepository) ForUser(ctx context.Context, userID uuid.UUID, repositoryID *uuid.UUID, now time.Time, trendDays int) (*Statistics, error) {
	if trendDays <= 0 {
		trendDays = 30
	}

	stats := &Statistics{
		ByStatus:     map[string]int{},
		BySeverity:   map[string]int{},
		BySecretType: map[string]int{},
	}

	const scope = `
		f.deleted_at IS NULL
		AND f.repository_id IN (SELECT id FROM repositories WHERE user_id = $1 AND deleted_at IS NULL)
		AND ($2::uuid IS NULL OR f.repository_id = $2)`

	groupQuery := `
		SELECT f.status, f.severity, f.secret_type, count(*)
		FROM findings f
		WHERE ` + scope + `
		GROUP BY f.status, f.severity, f.secret_type`

	rows, err := r.db.QueryContext(ctx, groupQuery, userID, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, severity, secretType string
		var count int
		if err := rows.Scan(&status, &severity, &secretType, &count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		stats.TotalFindings += count
		stats.ByStatus[status] += count
		stats.BySeverity[severity] += count
		stats.BySecretType[secretType] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	since := now.AddDate(0, 0, -trendDays)
	trendQuery := `
		SELECT date_trunc('day', f.created_at)::date, count(*)
		FROM findings f
		WHERE ` + scope + ` AND f.created_at >= $3
		GROUP BY 1 ORDER BY 1`

	trendRows, err := r.db.QueryContext(ctx, trendQuery, userID, repositoryID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer trendRows.Close()

	for trendRows.Next() {
		var day time.Time
		var count int
		if err := trendRows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		stats.Trend = append(stats.Trend, TrendPoint{Date: day.Format("2006-01-02"), Count: count})
	}
	return stats, trendRows.Err()
}
