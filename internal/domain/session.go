// Voice session and channel resolution types.
package domain

import "time"

// VoiceSession is a guild's shared voice state: the channel the worker set is
// currently using, who started it, and a per-user record of last-used
// channels consulted as a resolver fallback. The orchestrator is the writer
// of record; workers only read this via status queries.
type VoiceSession struct {
	GuildID string `json:"guild_id"`
	// ActiveChannelID is the channel currently in use, empty when no worker
	// is connected.
	ActiveChannelID string `json:"active_channel_id"`
	// OwnerID is the user whose command created the session.
	OwnerID string `json:"owner_id"`
	// LastActorID is the user whose command most recently touched the session.
	LastActorID string    `json:"last_actor_id"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Active reports whether the session points at a live channel.
func (s *VoiceSession) Active() bool { return s != nil && s.ActiveChannelID != "" }

// Channel resolution error codes.
const (
	ResolveErrNoChannel = "NO_CHANNEL"
)

// ChannelResolution is the outcome of resolving where a voice action should
// happen. Exactly one of ChannelID or ErrCode is set, never both.
type ChannelResolution struct {
	// ChannelID is the resolved target channel on success.
	ChannelID string `json:"channelId,omitempty"`
	// ActiveChannelID annotates a success that came from an existing session
	// rather than the user's own voice presence.
	ActiveChannelID string `json:"activeChannelId,omitempty"`
	// ErrCode and Message describe a failed resolution.
	ErrCode string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the resolution produced a target channel.
func (r ChannelResolution) OK() bool { return r.ErrCode == "" && r.ChannelID != "" }

// ResolvedChannel builds a successful resolution from the user's own presence.
func ResolvedChannel(channelID string) ChannelResolution {
	return ChannelResolution{ChannelID: channelID}
}

// ResolvedFromSession builds a successful resolution that borrowed an
// existing session's channel.
func ResolvedFromSession(channelID string) ChannelResolution {
	return ChannelResolution{ChannelID: channelID, ActiveChannelID: channelID}
}

// ResolutionFailure builds a failed resolution.
func ResolutionFailure(code, message string) ChannelResolution {
	return ChannelResolution{ErrCode: code, Message: message}
}
