package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/service/campaign"
)

const campaignColumns = `
	id, organization_id, name, campaign_type, scenario_type, status,
	start_date, end_date, COALESCE(risk_level, ''),
	custom_email_template_id, alert_template_id,
	sent_count, failed_count, started_at, completed_at,
	created_at, updated_at`

// CampaignRepo implements campaign.Repository against PostgreSQL, plus the
// scheduler-facing claim/close operations.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns WHERE id = $1
	`, id)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) TransitionStatus(ctx context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error) {
	states := make([]string, len(from))
	for i, f := range from {
		states[i] = string(f)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, to, pq.Array(states))
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *CampaignRepo) ScheduleNow(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'scheduled', start_date = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`, id)
	if err != nil {
		return false, fmt.Errorf("schedule now: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListDue returns scheduled campaigns whose start date has arrived, oldest
// first, capped per tick.
func (r *CampaignRepo) ListDue(ctx context.Context, limit int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE status = 'scheduled' AND start_date <= NOW()
		ORDER BY start_date ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list due campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Claim atomically moves a due campaign from scheduled to active. Zero rows
// affected means another scheduler instance won the claim; the caller must
// treat that as a silent no-op.
func (r *CampaignRepo) Claim(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'active', started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`, id)
	if err != nil {
		return false, fmt.Errorf("claim campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CloseExpired completes active campaigns whose end date has passed. Target
// rows are never touched; historical data stays queryable.
func (r *CampaignRepo) CloseExpired(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE status = 'active' AND end_date IS NOT NULL AND end_date <= NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("close expired campaigns: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// RecordLaunchStats stores per-campaign send outcome counters after launch.
func (r *CampaignRepo) RecordLaunchStats(ctx context.Context, id string, sent, failed int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET sent_count = $2, failed_count = $3, updated_at = NOW()
		WHERE id = $1
	`, id, sent, failed)
	if err != nil {
		return fmt.Errorf("record launch stats: %w", err)
	}
	return nil
}

func scanCampaign(s scanner) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := s.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.CampaignType, &c.ScenarioType, &c.Status,
		&c.StartDate, &c.EndDate, &c.RiskLevel,
		&c.EmailTemplateID, &c.AlertTemplateID,
		&c.SentCount, &c.FailedCount, &c.StartedAt, &c.CompletedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
