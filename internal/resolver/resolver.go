// Package resolver decides which voice channel a command should target when
// the user's intent is ambiguous. The policy is a fixed priority chain:
// the user's own voice presence wins outright, then an existing session in
// the guild, then the user's last-used channel provided the bot still holds
// Connect and Speak there, and finally a NO_CHANNEL failure.
package resolver

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
)

// SessionReader is the read-only slice of the session store the resolver
// consumes.
type SessionReader interface {
	GetSession(ctx context.Context, guildID string) (*domain.VoiceSession, error)
	LastChannel(ctx context.Context, guildID, userID string) (string, error)
}

// Resolver evaluates the channel-resolution policy. Stateless; safe for
// concurrent use.
type Resolver struct {
	gw       platform.VoiceGateway
	sessions SessionReader
	log      zerolog.Logger
}

// New constructs a Resolver over the platform facade and session reads.
func New(gw platform.VoiceGateway, sessions SessionReader, log zerolog.Logger) *Resolver {
	return &Resolver{
		gw:       gw,
		sessions: sessions,
		log:      log.With().Str("component", "resolver").Logger(),
	}
}

// ResolveTargetChannel runs the priority chain top to bottom; the first
// match wins. Failures to query the platform degrade to the next candidate
// rather than abort the resolution.
func (r *Resolver) ResolveTargetChannel(ctx context.Context, guildID, userID string) domain.ChannelResolution {
	// 1) The user's own voice presence beats everything, including an
	// existing session elsewhere.
	if ch, ok, err := r.gw.UserChannel(ctx, guildID, userID); err == nil && ok {
		return domain.ResolvedChannel(ch)
	} else if err != nil {
		r.log.Warn().Err(err).Str("guild_id", guildID).Msg("presence lookup failed")
	}

	// 2) An active session already running in this guild. The result is
	// flagged so callers know the channel was borrowed, not the user's own.
	sess, err := r.sessions.GetSession(ctx, guildID)
	if err != nil {
		r.log.Warn().Err(err).Str("guild_id", guildID).Msg("session lookup failed")
	}
	if sess.Active() {
		return domain.ResolvedFromSession(sess.ActiveChannelID)
	}

	// 3) The user's last-used channel, only while the bot can still join it.
	last, err := r.sessions.LastChannel(ctx, guildID, userID)
	if err != nil {
		r.log.Warn().Err(err).Str("guild_id", guildID).Msg("last-channel lookup failed")
	}
	if last != "" && r.canJoin(ctx, guildID, last) {
		return domain.ResolvedChannel(last)
	}

	// 4) Nothing left to try.
	return domain.ResolutionFailure(domain.ResolveErrNoChannel, "join a voice channel first")
}

// canJoin checks that the channel still exists and the bot holds both
// Connect and Speak there. Any failure to resolve the guild, the channel,
// or the permission set reads as "no permission"; the chain degrades safely
// instead of surfacing distinct platform errors.
func (r *Resolver) canJoin(ctx context.Context, guildID, channelID string) bool {
	if ok, err := r.gw.GuildExists(ctx, guildID); err != nil || !ok {
		return false
	}
	if ok, err := r.gw.ChannelExists(ctx, guildID, channelID); err != nil || !ok {
		return false
	}
	perms, err := r.gw.BotPermissions(ctx, guildID, channelID)
	if err != nil {
		return false
	}
	return perms.CanJoin()
}
