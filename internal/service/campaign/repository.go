package campaign

import (
	"context"

	"github.com/aegisaware/phishtrack/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// TransitionStatus moves a campaign to the next status only if it
	// is currently in one of the from statuses. Returns false (and no
	// error) when the conditional update matched no row because the
	// campaign was in a different state.
	TransitionStatus(ctx context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error)

	// ScheduleNow moves a draft campaign to scheduled with an immediate
	// start date so the next scheduler tick launches it.
	ScheduleNow(ctx context.Context, id string) (bool, error)
}

// exists is a small helper: distinguish "wrong state" from "no such row".
func exists(ctx context.Context, r Repository, id string) error {
	_, err := r.Get(ctx, id)
	return err
}
