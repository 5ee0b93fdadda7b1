// Package analytics builds the vulnerable-user report and its exports. All
// numbers come from the risk aggregator; nothing here is cached or stored.
package analytics

import (
	"context"
	"fmt"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/service/risk"
)

// Aggregator is the rollup source; satisfied by risk.Aggregator.
type Aggregator interface {
	Aggregate(ctx context.Context, days int, organizationID string) ([]domain.RiskAggregate, error)
}

// Stats summarizes one report: tier counts plus raw event totals.
type Stats struct {
	Critical                   int `json:"critical"`
	High                       int `json:"high"`
	Medium                     int `json:"medium"`
	Low                        int `json:"low"`
	TotalClicks                int `json:"total_clicks"`
	TotalCredentialSubmissions int `json:"total_credential_submissions"`
}

// Report is the vulnerable-users response body.
type Report struct {
	Users []domain.RiskAggregate `json:"users"`
	Stats Stats                  `json:"stats"`
	Total int                    `json:"total"`
}

// Service computes vulnerable-user reports.
type Service struct {
	aggregator Aggregator
}

// NewService creates the analytics service.
func NewService(aggregator Aggregator) *Service {
	return &Service{aggregator: aggregator}
}

// VulnerableUsers returns the report for the window, filtered by the risk
// filter. Rows arrive from the aggregator already sorted by severity then
// recency; filtering preserves that order.
func (s *Service) VulnerableUsers(ctx context.Context, days int, filter risk.Filter, organizationID string) (*Report, error) {
	rows, err := s.aggregator.Aggregate(ctx, days, organizationID)
	if err != nil {
		return nil, fmt.Errorf("vulnerable users: %w", err)
	}

	users := make([]domain.RiskAggregate, 0, len(rows))
	stats := Stats{}
	for _, r := range rows {
		if !filter.Matches(r.Clicks, r.CredentialSubmissions) {
			continue
		}
		users = append(users, r)
		stats.TotalClicks += r.Clicks
		stats.TotalCredentialSubmissions += r.CredentialSubmissions
		switch r.RiskLevel {
		case domain.RiskCritical:
			stats.Critical++
		case domain.RiskHigh:
			stats.High++
		case domain.RiskMedium:
			stats.Medium++
		case domain.RiskLow:
			stats.Low++
		}
	}

	return &Report{Users: users, Stats: stats, Total: len(users)}, nil
}
