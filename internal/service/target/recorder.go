package target

import (
	"context"
	"fmt"
	"time"

	"github.com/aegisaware/phishtrack/internal/domain"
)

// Recorder applies engagement events to target records.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

// NewRecorder creates an event recorder backed by the given repository.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

// RecordOpts carries optional per-event data.
type RecordOpts struct {
	// EnteredUsername is the value typed into the harvest form. Only
	// meaningful for credential_submit events.
	EnteredUsername string
}

// Record applies one event to the target. The mutation is atomic against
// concurrent duplicate hits; see Repository.RecordEvent.
func (r *Recorder) Record(ctx context.Context, targetID string, eventType domain.EventType, opts RecordOpts) (*RecordResult, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	snapshot, first, err := r.repo.RecordEvent(ctx, targetID, eventType, opts.EnteredUsername, r.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("record %s for target %s: %w", eventType, targetID, err)
	}

	return &RecordResult{FirstOccurrence: first, Target: *snapshot}, nil
}
