// Package target implements the event recorder: atomic, idempotent-safe
// mutations of per-recipient tracking records.
//
// The recorder is the only writer of view/click/credential-submit state. Its
// single concurrency-critical primitive is the conditional UPDATE performed
// by the repository: counters increment unconditionally while first-seen
// timestamps are set at most once, so simultaneous duplicate hits (mail
// client prefetch, double clicks, multiple handler replicas) can never
// produce two different "first" timestamps or double notifications.
package target
