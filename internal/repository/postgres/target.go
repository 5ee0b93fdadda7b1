package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/service/target"
)

// targetColumns is the canonical select/returning list for target rows.
const targetColumns = `
	id, campaign_id, user_id, email, tracking_code,
	delivered_at, COALESCE(send_error, ''),
	first_viewed_at, view_count,
	first_clicked_at, click_count,
	credentials_submitted_at, submission_count, COALESCE(entered_username, ''),
	created_at, updated_at`

// TargetRepo implements target.Repository against PostgreSQL.
type TargetRepo struct{ db *sql.DB }

// NewTargetRepo creates a Postgres-backed target repository.
func NewTargetRepo(db *sql.DB) *TargetRepo { return &TargetRepo{db: db} }

func (r *TargetRepo) GetByTrackingCode(ctx context.Context, campaignID, code string) (*domain.Target, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+targetColumns+`
		FROM phishing_targets
		WHERE campaign_id = $1 AND tracking_code = $2
	`, campaignID, code)

	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, target.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get by tracking code: %v", target.ErrStorageUnavailable, err)
	}
	return t, nil
}

// GetByCode looks a target up by tracking code alone. Codes are globally
// unique, so the credential-submit path can resolve a target without a
// campaign ID.
func (r *TargetRepo) GetByCode(ctx context.Context, code string) (*domain.Target, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+targetColumns+`
		FROM phishing_targets
		WHERE tracking_code = $1
	`, code)

	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, target.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get by code: %v", target.ErrStorageUnavailable, err)
	}
	return t, nil
}

// GetByUser returns the target row for one recipient of a campaign. The
// launcher uses it to honor already-distributed codes on relaunch.
func (r *TargetRepo) GetByUser(ctx context.Context, campaignID, userID string) (*domain.Target, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+targetColumns+`
		FROM phishing_targets
		WHERE campaign_id = $1 AND user_id = $2
	`, campaignID, userID)

	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, target.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get by user: %v", target.ErrStorageUnavailable, err)
	}
	return t, nil
}

// RecordEvent applies one engagement event in a single atomic UPDATE.
// First occurrence falls out of the post-increment counter: the row that
// moved the counter from 0 to 1 is, by definition, the only caller that can
// observe counter == 1, no matter how many hits race on the same target.
func (r *TargetRepo) RecordEvent(ctx context.Context, targetID string, eventType domain.EventType, enteredUsername string, at time.Time) (*domain.Target, bool, error) {
	var row *sql.Row

	switch eventType {
	case domain.EventView:
		row = r.db.QueryRowContext(ctx, `
			UPDATE phishing_targets SET
				view_count = view_count + 1,
				first_viewed_at = COALESCE(first_viewed_at, $2),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+targetColumns, targetID, at)

	case domain.EventClick:
		row = r.db.QueryRowContext(ctx, `
			UPDATE phishing_targets SET
				click_count = click_count + 1,
				first_clicked_at = COALESCE(first_clicked_at, $2),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+targetColumns, targetID, at)

	case domain.EventCredentialSubmit:
		// entered_username is captured only on the first submission; the
		// CASE reads the pre-update credentials_submitted_at. click_count
		// is floored at 1 so a submission always implies a click.
		row = r.db.QueryRowContext(ctx, `
			UPDATE phishing_targets SET
				submission_count = submission_count + 1,
				entered_username = CASE WHEN credentials_submitted_at IS NULL THEN $3 ELSE entered_username END,
				credentials_submitted_at = COALESCE(credentials_submitted_at, $2),
				click_count = GREATEST(click_count, 1),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+targetColumns, targetID, at, enteredUsername)

	default:
		return nil, false, target.ErrUnknownEventType
	}

	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, false, target.ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: record %s: %v", target.ErrStorageUnavailable, eventType, err)
	}

	first := false
	switch eventType {
	case domain.EventView:
		first = t.ViewCount == 1
	case domain.EventClick:
		first = t.ClickCount == 1
	case domain.EventCredentialSubmit:
		first = t.SubmissionCount == 1
	}
	return t, first, nil
}

func (r *TargetRepo) CreateBatch(ctx context.Context, targets []domain.Target) (int, error) {
	created := 0
	for _, t := range targets {
		id := t.ID
		if id == "" {
			id = uuid.New().String()
		}
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO phishing_targets
				(id, campaign_id, user_id, email, tracking_code, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			ON CONFLICT (campaign_id, user_id) DO NOTHING
		`, id, t.CampaignID, t.UserID, t.Email, t.TrackingCode)
		if err != nil {
			return created, fmt.Errorf("create target for user %s: %w", t.UserID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

func (r *TargetRepo) MarkDelivered(ctx context.Context, targetID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE phishing_targets SET delivered_at = $2, send_error = NULL, updated_at = NOW()
		WHERE id = $1
	`, targetID, at)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

func (r *TargetRepo) MarkSendFailed(ctx context.Context, targetID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE phishing_targets SET send_error = $2, updated_at = NOW()
		WHERE id = $1
	`, targetID, reason)
	if err != nil {
		return fmt.Errorf("mark send failed: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTarget(s scanner) (*domain.Target, error) {
	t := &domain.Target{}
	err := s.Scan(
		&t.ID, &t.CampaignID, &t.UserID, &t.Email, &t.TrackingCode,
		&t.DeliveredAt, &t.SendError,
		&t.FirstViewedAt, &t.ViewCount,
		&t.FirstClickedAt, &t.ClickCount,
		&t.CredentialsSubmittedAt, &t.SubmissionCount, &t.EnteredUsername,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
