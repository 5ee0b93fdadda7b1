package risk

import (
	"errors"
	"fmt"
)

// ErrUnknownRiskFilter is returned for filter values outside the supported
// vocabulary. Unknown values are rejected rather than silently widened to
// "all" so admins never misread filtered results.
var ErrUnknownRiskFilter = errors.New("unknown risk filter")

// Filter selects a slice of the vulnerable-user aggregate independent of the
// stored tier.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterSubmitted Filter = "submitted" // credential submissions >= 1
	FilterRepeated  Filter = "repeated"  // clicks >= 2
	FilterClicked   Filter = "clicked"   // clicks >= 1
)

// ParseFilter validates a filter string. The empty string means "all".
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterSubmitted, FilterRepeated, FilterClicked:
		return Filter(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRiskFilter, s)
	}
}

// Matches reports whether a user with the given counts passes the filter.
// Users with zero clicks and zero submissions never match anything.
func (f Filter) Matches(clicks, submissions int) bool {
	switch f {
	case FilterSubmitted:
		return submissions >= 1
	case FilterRepeated:
		return clicks >= 2
	case FilterClicked:
		return clicks >= 1
	default: // FilterAll
		return clicks >= 1 || submissions >= 1
	}
}
