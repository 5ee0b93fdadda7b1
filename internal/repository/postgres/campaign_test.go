package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisaware/phishtrack/internal/domain"
)

func TestCampaignRepo_Claim(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec(`UPDATE campaigns SET status = 'active'`).
		WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.Claim(context.Background(), "c-1")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestCampaignRepo_Claim_LostRace(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	// Another instance already flipped the row out of 'scheduled'.
	mock.ExpectExec(`UPDATE campaigns SET status = 'active'`).
		WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.Claim(context.Background(), "c-1")
	require.NoError(t, err)
	assert.False(t, won)
}

func TestCampaignRepo_TransitionStatus(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec(`UPDATE campaigns SET status = \$2`).
		WithArgs("c-1", domain.CampaignPaused, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionStatus(context.Background(), "c-1",
		[]domain.CampaignStatus{domain.CampaignActive}, domain.CampaignPaused)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCampaignRepo_CloseExpired(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec(`UPDATE campaigns SET status = 'completed'`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.CloseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
