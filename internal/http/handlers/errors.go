// Package handlers implements the orchestrator's command API endpoints.
//
// This file centralizes the symbolic error codes mapped to HTTP responses via
// the fail() helper. Codes are stable and machine readable; messages carry
// the human-facing half.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// ErrCodeNoChannel is the resolver's failure code, surfaced verbatim so
	// gateway glue can branch on it.
	ErrCodeNoChannel = "NO_CHANNEL"

	// ErrCodeWorkerUnavailable marks a command rejected by an open circuit.
	ErrCodeWorkerUnavailable = "worker_unavailable"

	// ErrCodeUpstream marks a worker that did not respond after retries.
	ErrCodeUpstream = "upstream_error"
)
