package models

import "errors"

// Error kinds shared by the adapter, the aggregator and the session.
var (
	// ErrNotFound is returned when a focal identity, a named person or a record
	// matching the criteria does not exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned when a focal aggregation is requested without a
	// focal identity. Callers use it to redirect to an identification step.
	ErrUnauthorized = errors.New("no focal identity supplied")

	// ErrAggregationFailed wraps any storage failure observed while aggregating.
	// No partial graph accompanies it.
	ErrAggregationFailed = errors.New("aggregation failed")

	// ErrInvalidInput is returned for malformed creation requests. It is raised
	// before any store mutation is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSuperseded is reported for a rebuild whose result was discarded because a
	// newer request had been issued.
	ErrSuperseded = errors.New("superseded by a newer request")
)
