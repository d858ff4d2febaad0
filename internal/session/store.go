// Package session implements the shared voice-session store: the per-guild
// record of the channel the worker set currently uses, plus each user's
// last-used channel consulted by the resolver as a fallback. The store is
// external to the orchestrator process so sessions survive restarts while
// workers stay connected; Redis backs multi-host deployments and SQLite
// backs single-host ones. The orchestrator is the writer of record.
package session

import (
	"context"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

// Store is the full read/write surface. Reads are consumed by the channel
// resolver; writes are invoked by join/leave command handling.
type Store interface {
	// GetSession returns the guild's session record, or nil when none exists.
	GetSession(ctx context.Context, guildID string) (*domain.VoiceSession, error)
	// SetActiveSession records that the worker set joined channelID on
	// userID's behalf, creating or updating the guild's session.
	SetActiveSession(ctx context.Context, guildID, channelID, userID string) error
	// ClearActiveSession removes the guild's session record.
	ClearActiveSession(ctx context.Context, guildID string) error
	// RecordLastChannel remembers the channel a user last targeted in the
	// guild, for resolver fallback.
	RecordLastChannel(ctx context.Context, guildID, userID, channelID string) error
	// LastChannel returns the user's last-used channel in the guild, empty
	// when unknown.
	LastChannel(ctx context.Context, guildID, userID string) (string, error)
	// Close releases the backing connection.
	Close() error
}
