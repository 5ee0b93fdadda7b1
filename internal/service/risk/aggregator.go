package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aegisaware/phishtrack/internal/domain"
)

// UserEventSum is one user's raw windowed totals as read from storage.
type UserEventSum struct {
	UserID           string
	Email            string
	OrganizationID   string
	OrganizationName string
	Clicks           int
	Submissions      int
	CampaignNames    []string
	LastEvent        *time.Time
}

// Repository reads windowed event sums from the target store.
// Implementations must be safe for concurrent use.
type Repository interface {
	// UserEventSums returns, per user, the sums of clicks and credential
	// submissions across all of that user's targets whose event timestamps
	// fall within [since, now], together with the distinct names of the
	// contributing campaigns and the latest event time. When organizationID
	// is non-empty, only targets of that organization's campaigns contribute.
	UserEventSums(ctx context.Context, since time.Time, organizationID string) ([]UserEventSum, error)
}

// Aggregator computes per-user risk rollups across campaigns.
type Aggregator struct {
	repo Repository
	now  func() time.Time
}

// NewAggregator creates an aggregator over the given repository.
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo, now: time.Now}
}

// Aggregate returns one RiskAggregate per user with at least one in-window
// click or submission, sorted by severity descending then last failure
// descending so exports are stable and reproducible.
func (a *Aggregator) Aggregate(ctx context.Context, days int, organizationID string) ([]domain.RiskAggregate, error) {
	if days <= 0 {
		days = 30
	}
	since := a.now().UTC().AddDate(0, 0, -days)

	sums, err := a.repo.UserEventSums(ctx, since, organizationID)
	if err != nil {
		return nil, fmt.Errorf("aggregate risk window: %w", err)
	}

	out := make([]domain.RiskAggregate, 0, len(sums))
	for _, s := range sums {
		level := Classify(s.Clicks, s.Submissions)
		if level == domain.RiskNone {
			continue
		}
		out = append(out, domain.RiskAggregate{
			UserID:                s.UserID,
			Email:                 s.Email,
			OrganizationID:        s.OrganizationID,
			OrganizationName:      s.OrganizationName,
			Clicks:                s.Clicks,
			CredentialSubmissions: s.Submissions,
			CampaignsFailed:       s.CampaignNames,
			LastFailure:           s.LastEvent,
			RiskLevel:             level,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].RiskLevel.Rank(), out[j].RiskLevel.Rank()
		if ri != rj {
			return ri > rj
		}
		ti, tj := out[i].LastFailure, out[j].LastFailure
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	return out, nil
}
