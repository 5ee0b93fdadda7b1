package campaign

import (
	"context"
	"fmt"
	"log"

	"github.com/aegisaware/phishtrack/internal/domain"
)

// Service implements campaign lifecycle business logic.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a campaign service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// Start queues a draft campaign for launch: draft -> scheduled with an
// immediate start date. The actual launch (target creation, email dispatch,
// scheduled -> active) happens on the next scheduler tick through the same
// atomic claim path as timed launches, so a manual start can never race a
// scheduler replica into double-sending.
func (s *Service) Start(ctx context.Context, id string) error {
	ok, err := s.repo.ScheduleNow(ctx, id)
	if err != nil {
		return fmt.Errorf("start campaign %s: %w", id, err)
	}
	if !ok {
		if err := exists(ctx, s.repo, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	log.Printf("[campaign.Service] Campaign %s queued for immediate launch", id)
	return nil
}

// Pause suspends an active campaign. Tracking links keep rendering (paused
// campaigns stay trackable) but no further emails are sent.
func (s *Service) Pause(ctx context.Context, id string) error {
	return s.transition(ctx, id, []domain.CampaignStatus{domain.CampaignActive}, domain.CampaignPaused)
}

// Resume reactivates a paused campaign.
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.transition(ctx, id, []domain.CampaignStatus{domain.CampaignPaused}, domain.CampaignActive)
}

func (s *Service) transition(ctx context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) error {
	ok, err := s.repo.TransitionStatus(ctx, id, from, to)
	if err != nil {
		return fmt.Errorf("transition campaign %s to %s: %w", id, to, err)
	}
	if !ok {
		if err := exists(ctx, s.repo, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	log.Printf("[campaign.Service] Campaign %s -> %s", id, to)
	return nil
}
