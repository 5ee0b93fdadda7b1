// Package risk derives risk tiers from simulation event history.
//
// Classification is a pure, order-independent function of click and
// credential-submission counts. Aggregation recomputes a user's windowed
// totals across campaigns on every query; tiers are never cached, so they
// always reflect current counts.
package risk
