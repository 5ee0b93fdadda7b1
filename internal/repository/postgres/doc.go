// Package postgres implements the service repository contracts against
// PostgreSQL using database/sql and lib/pq.
//
// Event recording is a single conditional UPDATE per hit: counters increment
// unconditionally, first-seen timestamps are set with COALESCE, and first
// occurrence is derived from the post-increment counter. There is no
// read-then-write anywhere on the hit path.
package postgres
