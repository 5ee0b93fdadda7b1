package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/aegisaware/phishtrack/internal/service/risk"
)

// RiskRepo implements risk.Repository against PostgreSQL.
type RiskRepo struct{ db *sql.DB }

// NewRiskRepo creates a Postgres-backed risk aggregation reader.
func NewRiskRepo(db *sql.DB) *RiskRepo { return &RiskRepo{db: db} }

// UserEventSums sums clicks and credential submissions per user over targets
// with an in-window event timestamp. A single snapshot query with no caching
// and no transaction; reporting tolerates eventual consistency across
// concurrent writes.
func (r *RiskRepo) UserEventSums(ctx context.Context, since time.Time, organizationID string) ([]risk.UserEventSum, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			u.id, u.email, o.id, o.name,
			COALESCE(SUM(t.click_count), 0),
			COALESCE(SUM(t.submission_count), 0),
			ARRAY_AGG(DISTINCT c.name),
			MAX(GREATEST(
				COALESCE(t.credentials_submitted_at, t.first_clicked_at),
				COALESCE(t.first_clicked_at, t.credentials_submitted_at)
			))
		FROM phishing_targets t
		JOIN campaigns c ON c.id = t.campaign_id
		JOIN users u ON u.id = t.user_id
		JOIN organizations o ON o.id = c.organization_id
		WHERE (t.first_clicked_at >= $1 OR t.credentials_submitted_at >= $1)
		  AND ($2 = '' OR c.organization_id::text = $2)
		GROUP BY u.id, u.email, o.id, o.name
	`, since, organizationID)
	if err != nil {
		return nil, fmt.Errorf("query user event sums: %w", err)
	}
	defer rows.Close()

	var out []risk.UserEventSum
	for rows.Next() {
		var s risk.UserEventSum
		var names pq.StringArray
		var last sql.NullTime
		if err := rows.Scan(
			&s.UserID, &s.Email, &s.OrganizationID, &s.OrganizationName,
			&s.Clicks, &s.Submissions, &names, &last,
		); err != nil {
			return nil, fmt.Errorf("scan user event sum: %w", err)
		}
		s.CampaignNames = names
		if last.Valid {
			t := last.Time
			s.LastEvent = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
