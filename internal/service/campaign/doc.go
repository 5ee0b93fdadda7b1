// Package campaign implements the campaign lifecycle: the strict status
// order draft/scheduled -> active -> (paused <-> active) -> completed.
//
// The scheduler owns the timed transitions (launch at start_date, close at
// end_date); this service owns the explicit admin actions (start, pause,
// resume). Every transition is a conditional update so concurrent actors
// cannot skip states or double-apply a transition.
package campaign
