package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a simulation campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// CampaignType is the broad category of a simulation campaign.
type CampaignType string

const (
	CampaignTypePhishing          CampaignType = "phishing"
	CampaignTypeAds               CampaignType = "ads"
	CampaignTypeSocialEngineering CampaignType = "social_engineering"
)

// ScenarioType is the simulation flavor. It determines what a tracking hit
// renders and which events the hit records.
type ScenarioType string

const (
	ScenarioPhishingEmail     ScenarioType = "phishing_email"
	ScenarioCredentialHarvest ScenarioType = "credential_harvest"
	ScenarioQRCodePhishing    ScenarioType = "qr_code_phishing"
	ScenarioBEC               ScenarioType = "bec"
	ScenarioAds               ScenarioType = "ads"
)

// Campaign represents one simulation run against a set of recipients.
type Campaign struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	Name           string         `json:"name" db:"name"`
	CampaignType   CampaignType   `json:"campaign_type" db:"campaign_type"`
	ScenarioType   ScenarioType   `json:"scenario_type" db:"scenario_type"`
	Status         CampaignStatus `json:"status" db:"status"`
	StartDate      *time.Time     `json:"start_date" db:"start_date"`
	EndDate        *time.Time     `json:"end_date" db:"end_date"`

	// RiskLevel is the configured severity label shown in reports. It is
	// distinct from the derived per-user risk tier.
	RiskLevel string `json:"risk_level" db:"risk_level"`

	// Optional template bindings. Nil means use the scenario default.
	EmailTemplateID *string `json:"custom_email_template_id" db:"custom_email_template_id"`
	AlertTemplateID *string `json:"alert_template_id" db:"alert_template_id"`

	// Launch stats (read-only, populated by the scheduler).
	SentCount   int        `json:"sent_count" db:"sent_count"`
	FailedCount int        `json:"failed_count" db:"failed_count"`
	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Trackable reports whether tracking links for this campaign still render
// simulation content. Completed campaigns stay trackable so late clicks keep
// teaching; draft and scheduled campaigns have no live links yet.
func (c *Campaign) Trackable() bool {
	switch c.Status {
	case CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from the campaign's current status to
// next is allowed. Transitions form a strict partial order: draft/scheduled
// -> active -> (paused <-> active) -> completed. Nothing skips from draft to
// completed, and completed is terminal.
func (c *Campaign) CanTransition(next CampaignStatus) bool {
	switch c.Status {
	case CampaignDraft, CampaignScheduled:
		return next == CampaignActive || (c.Status == CampaignDraft && next == CampaignScheduled)
	case CampaignActive:
		return next == CampaignPaused || next == CampaignCompleted
	case CampaignPaused:
		return next == CampaignActive || next == CampaignCompleted
	default:
		return false
	}
}

// Organization is the read-only directory view of a customer org.
type Organization struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	DiscordWebhookURL string    `json:"discord_webhook_url,omitempty" db:"discord_webhook_url"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// User is the read-only directory view of a simulation recipient.
type User struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	Email          string `json:"email" db:"email"`
	FirstName      string `json:"first_name" db:"first_name"`
	LastName       string `json:"last_name" db:"last_name"`
}

// EmailTemplate is a stored simulated-phishing email body (read-only here;
// authored by the admin template editor, an external collaborator).
type EmailTemplate struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	Subject        string `json:"subject" db:"subject"`
	HTMLContent    string `json:"html_content" db:"html_content"`
}

// AlertTemplate is a stored awareness-page body shown after a tracked hit.
type AlertTemplate struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	HTMLContent    string `json:"html_content" db:"html_content"`
}
