package domain

import "time"

// EventType enumerates the engagement events a tracking hit can record.
type EventType string

const (
	EventView             EventType = "view"
	EventClick            EventType = "click"
	EventCredentialSubmit EventType = "credential_submit"
)

// Valid reports whether e is a known event type.
func (e EventType) Valid() bool {
	switch e {
	case EventView, EventClick, EventCredentialSubmit:
		return true
	}
	return false
}

// Target is the per-recipient tracking record for one campaign. One row per
// (campaign, recipient), created at launch, mutated only by the event
// recorder.
type Target struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	UserID     string `json:"user_id" db:"user_id"`
	Email      string `json:"email" db:"email"`

	// TrackingCode is the opaque, unguessable token embedded in the
	// simulated phishing link. Unique across all targets.
	TrackingCode string `json:"tracking_code" db:"tracking_code"`

	DeliveredAt *time.Time `json:"delivered_at" db:"delivered_at"`
	SendError   string     `json:"send_error,omitempty" db:"send_error"`

	FirstViewedAt *time.Time `json:"first_viewed_at" db:"first_viewed_at"`
	ViewCount     int        `json:"view_count" db:"view_count"`

	FirstClickedAt *time.Time `json:"first_clicked_at" db:"first_clicked_at"`
	ClickCount     int        `json:"click_count" db:"click_count"`

	CredentialsSubmittedAt *time.Time `json:"credentials_submitted_at" db:"credentials_submitted_at"`
	SubmissionCount        int        `json:"submission_count" db:"submission_count"`

	// EnteredUsername is whatever the victim typed into the harvest form,
	// stored verbatim for awareness reporting. This is a simulation; the
	// form never collects a real password.
	EnteredUsername string `json:"entered_username,omitempty" db:"entered_username"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HitInfo carries request-scoped context for a tracking hit.
type HitInfo struct {
	// Preview marks hits from the authenticated admin preview/QR-builder
	// tools. Preview hits render content but are excluded from all metrics.
	Preview   bool
	IPAddress string
	UserAgent string
}
