// Package worker runs the campaign scheduler: a ticker loop that launches
// due campaigns and completes expired ones. Any number of replicas may run;
// the conditional status claim in the database is the exactly-once
// primitive, and a distributed lock fences the longer launch pipeline.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/pkg/distlock"
	"github.com/aegisaware/phishtrack/internal/pkg/logger"
)

const defaultPollInterval = 30 * time.Second

// CampaignStore is the campaign surface the scheduler needs.
type CampaignStore interface {
	ListDue(ctx context.Context, limit int) ([]domain.Campaign, error)
	Claim(ctx context.Context, id string) (bool, error)
	CloseExpired(ctx context.Context) (int, error)
	RecordLaunchStats(ctx context.Context, id string, sent, failed int) error
}

// LockFactory builds a fencing lock for one campaign launch.
type LockFactory func(key string, ttl time.Duration) distlock.DistLock

// Scheduler polls for due campaigns and drives launches.
type Scheduler struct {
	campaigns CampaignStore
	launcher  *Launcher
	newLock   LockFactory
	interval  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler wires the scheduler. newLock may be nil, in which case
// launches rely on the status claim alone.
func NewScheduler(campaigns CampaignStore, launcher *Launcher, newLock LockFactory, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Scheduler{
		campaigns: campaigns,
		launcher:  launcher,
		newLock:   newLock,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the poll loop until Stop is called or ctx is cancelled. One
// tick runs immediately so restarts don't wait out a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("campaign scheduler started", "interval", s.interval.String())
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight tick.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) tick(ctx context.Context) {
	s.launchDue(ctx)
	s.closeExpired(ctx)
}

func (s *Scheduler) launchDue(ctx context.Context) {
	due, err := s.campaigns.ListDue(ctx, 10)
	if err != nil {
		logger.Error("list due campaigns failed", "error", err.Error())
		return
	}

	for i := range due {
		c := &due[i]
		if err := s.launchOne(ctx, c); err != nil {
			logger.Error("launch failed", "campaign_id", c.ID, "error", err.Error())
		}
	}
}

func (s *Scheduler) launchOne(ctx context.Context, c *domain.Campaign) error {
	if s.newLock != nil {
		lock := s.newLock("campaign:launch:"+c.ID, 5*time.Minute)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			logger.Warn("launch lock acquire failed, relying on claim",
				"campaign_id", c.ID, "error", err.Error())
		} else if !ok {
			return nil
		} else {
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					logger.Warn("launch lock release failed", "campaign_id", c.ID, "error", err.Error())
				}
			}()
		}
	}

	claimed, err := s.campaigns.Claim(ctx, c.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// Another instance won the claim. Not an error, not even noteworthy.
		return nil
	}

	logger.Info("launching campaign", "campaign_id", c.ID, "name", c.Name)
	stats, err := s.launcher.Launch(ctx, c)
	if err != nil {
		// The campaign stays active; targets that were created remain valid
		// and the failure is visible in the logs and the launch stats.
		return err
	}

	if err := s.campaigns.RecordLaunchStats(ctx, c.ID, stats.Sent, stats.Failed); err != nil {
		logger.Error("record launch stats failed", "campaign_id", c.ID, "error", err.Error())
	}
	logger.Info("campaign launched",
		"campaign_id", c.ID,
		"recipients", stats.Recipients,
		"created", stats.Created,
		"sent", stats.Sent,
		"failed", stats.Failed)
	return nil
}

func (s *Scheduler) closeExpired(ctx context.Context) {
	n, err := s.campaigns.CloseExpired(ctx)
	if err != nil {
		logger.Error("close expired campaigns failed", "error", err.Error())
		return
	}
	if n > 0 {
		logger.Info("completed expired campaigns", "count", n)
	}
}
