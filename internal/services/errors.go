// Package services implements the orchestrator's command logic: resolving a
// target channel, fanning commands out to the worker set through the
// coordinator's circuit gate, and keeping the shared session store as the
// writer of record.
//
// Service-level errors are returned for predictable cases so handlers can map
// them to HTTP results consistently; translation into user-facing envelopes
// happens at the handler layer.
package services

import "errors"

var (
	// ErrNoTargetChannel is returned when channel resolution exhausts every
	// candidate. The message is the user-facing guidance verbatim.
	ErrNoTargetChannel = errors.New("join a voice channel first")

	// ErrAllWorkersFailed is returned when a fan-out command reached no worker
	// at all.
	ErrAllWorkersFailed = errors.New("no worker accepted the command")
)
