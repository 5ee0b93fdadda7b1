package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/service/target"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func targetRowColumns() []string {
	return []string{
		"id", "campaign_id", "user_id", "email", "tracking_code",
		"delivered_at", "send_error",
		"first_viewed_at", "view_count",
		"first_clicked_at", "click_count",
		"credentials_submitted_at", "submission_count", "entered_username",
		"created_at", "updated_at",
	}
}

func targetRow(clickCount, submissionCount int, firstClicked *time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(targetRowColumns()).AddRow(
		"t-1", "c-1", "u-1", "victim@example.com", "code-1",
		nil, "",
		nil, 0,
		firstClicked, clickCount,
		nil, submissionCount, "",
		now, now,
	)
}

func TestTargetRepo_RecordClick_FirstOccurrence(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTargetRepo(db)

	now := time.Now()
	mock.ExpectQuery(`UPDATE phishing_targets SET\s+click_count = click_count \+ 1`).
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnRows(targetRow(1, 0, &now))

	snap, first, err := repo.RecordEvent(context.Background(), "t-1", domain.EventClick, "", now)
	require.NoError(t, err)
	assert.True(t, first, "click_count of 1 after increment means first occurrence")
	assert.Equal(t, 1, snap.ClickCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTargetRepo_RecordClick_Repeat(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTargetRepo(db)

	firstAt := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`UPDATE phishing_targets SET\s+click_count = click_count \+ 1`).
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnRows(targetRow(7, 0, &firstAt))

	snap, first, err := repo.RecordEvent(context.Background(), "t-1", domain.EventClick, "", time.Now())
	require.NoError(t, err)
	assert.False(t, first)
	assert.Equal(t, 7, snap.ClickCount)
}

func TestTargetRepo_RecordCredentialSubmit(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTargetRepo(db)

	mock.ExpectQuery(`UPDATE phishing_targets SET\s+submission_count = submission_count \+ 1`).
		WithArgs("t-1", sqlmock.AnyArg(), "jsmith").
		WillReturnRows(targetRow(1, 1, nil))

	_, first, err := repo.RecordEvent(context.Background(), "t-1", domain.EventCredentialSubmit, "jsmith", time.Now())
	require.NoError(t, err)
	assert.True(t, first)
}

func TestTargetRepo_RecordEvent_UnknownTarget(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTargetRepo(db)

	mock.ExpectQuery(`UPDATE phishing_targets`).
		WillReturnRows(sqlmock.NewRows(targetRowColumns()))

	_, _, err := repo.RecordEvent(context.Background(), "missing", domain.EventView, "", time.Now())
	assert.ErrorIs(t, err, target.ErrNotFound)
}

func TestTargetRepo_RecordEvent_StorageDown(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTargetRepo(db)

	mock.ExpectQuery(`UPDATE phishing_targets`).
		WillReturnError(sql.ErrConnDone)

	_, _, err := repo.RecordEvent(context.Background(), "t-1", domain.EventClick, "", time.Now())
	assert.ErrorIs(t, err, target.ErrStorageUnavailable)
}

func TestTargetRepo_GetByTrackingCode_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTargetRepo(db)

	mock.ExpectQuery(`SELECT .* FROM phishing_targets`).
		WithArgs("c-1", "garbage").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByTrackingCode(context.Background(), "c-1", "garbage")
	assert.ErrorIs(t, err, target.ErrNotFound)
}

func TestTargetRepo_CreateBatch_Idempotent(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTargetRepo(db)

	// First insert lands, second hits the (campaign_id, user_id) conflict.
	mock.ExpectExec(`INSERT INTO phishing_targets`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO phishing_targets`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.CreateBatch(context.Background(), []domain.Target{
		{CampaignID: "c-1", UserID: "u-1", Email: "a@example.com", TrackingCode: "aa"},
		{CampaignID: "c-1", UserID: "u-2", Email: "b@example.com", TrackingCode: "bb"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}
