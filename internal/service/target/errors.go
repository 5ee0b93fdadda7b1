package target

import "errors"

// Sentinel errors for the target service layer.
var (
	ErrNotFound           = errors.New("target not found")
	ErrUnknownEventType   = errors.New("unknown event type")
	ErrStorageUnavailable = errors.New("target store unavailable")
)
