package domain

import "time"

// RiskLevel is the derived severity tier for a user's simulation history.
type RiskLevel string

const (
	RiskNone     RiskLevel = ""
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels for sorting; higher is more severe.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// RiskAggregate is a user's event history summed across campaigns within a
// time window. It is computed on every query and never persisted, so the
// tier always reflects current click/submission counts.
type RiskAggregate struct {
	UserID                string     `json:"user_id"`
	Email                 string     `json:"email"`
	OrganizationID        string     `json:"organization_id"`
	OrganizationName      string     `json:"organization_name"`
	Clicks                int        `json:"clicks"`
	CredentialSubmissions int        `json:"credential_submissions"`
	CampaignsFailed       []string   `json:"campaigns_failed"`
	LastFailure           *time.Time `json:"last_failure"`
	RiskLevel             RiskLevel  `json:"risk_level"`
}
