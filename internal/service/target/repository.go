package target

import (
	"context"
	"time"

	"github.com/aegisaware/phishtrack/internal/domain"
)

// Repository defines the data access contract for phishing targets.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetByTrackingCode returns the target identified by (campaignID, code).
	// Returns ErrNotFound for unknown codes; the caller must not distinguish
	// why a lookup failed in anything user-visible.
	GetByTrackingCode(ctx context.Context, campaignID, code string) (*domain.Target, error)

	// RecordEvent applies one engagement event as a single atomic update:
	// the counter for the event type increments unconditionally and the
	// first-seen timestamp is set only if currently unset. It returns the
	// post-update target snapshot and whether this call was the first
	// occurrence of that event type for the target.
	//
	// enteredUsername is stored (verbatim, first submission only) when
	// eventType is credential_submit; it is ignored otherwise.
	RecordEvent(ctx context.Context, targetID string, eventType domain.EventType, enteredUsername string, at time.Time) (*domain.Target, bool, error)

	// CreateBatch inserts targets idempotently: an existing
	// (campaign_id, user_id) row is left untouched. Returns how many rows
	// were actually created.
	CreateBatch(ctx context.Context, targets []domain.Target) (int, error)

	// MarkDelivered records a successful simulation email send.
	MarkDelivered(ctx context.Context, targetID string, at time.Time) error

	// MarkSendFailed records a per-recipient send failure. The failure is
	// observable on the target row; it is never a whole-campaign error.
	MarkSendFailed(ctx context.Context, targetID, reason string) error
}

// RecordResult is the outcome of recording one event.
type RecordResult struct {
	// FirstOccurrence is true when this call was the first time the event
	// type was recorded for the target. It gates notification dispatch.
	FirstOccurrence bool
	Target          domain.Target
}
