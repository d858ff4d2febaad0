// Package platform defines the chat-platform voice facade consumed by the
// control plane: lookup of a user's current voice channel, guild/channel
// existence, and the bot's effective permissions in a channel. The gateway
// binding that implements this against the real chat platform lives outside
// this repository; a static, config-driven implementation is provided for
// local runs and tests.
package platform

import (
	"context"
	"sync"
)

// PermissionSet is the subset of channel permissions the control plane cares
// about. Joining a channel requires both Connect and Speak.
type PermissionSet struct {
	Connect bool
	Speak   bool
}

// CanJoin reports whether the permission set allows voice playback.
func (p PermissionSet) CanJoin() bool { return p.Connect && p.Speak }

// VoiceGateway is the read-only facade over the chat platform's voice and
// permission state. Implementations must be safe for concurrent use. Errors
// indicate the platform could not be queried; absence is reported through
// the boolean results, not through errors.
type VoiceGateway interface {
	// UserChannel returns the voice channel the user currently occupies in
	// the guild, with ok=false when the user is not in voice.
	UserChannel(ctx context.Context, guildID, userID string) (channelID string, ok bool, err error)
	// GuildExists reports whether the guild is visible to the bot.
	GuildExists(ctx context.Context, guildID string) (bool, error)
	// ChannelExists reports whether the voice channel exists in the guild.
	ChannelExists(ctx context.Context, guildID, channelID string) (bool, error)
	// BotPermissions returns the bot's effective permissions in the channel.
	BotPermissions(ctx context.Context, guildID, channelID string) (PermissionSet, error)
}

// StaticGateway is an in-memory VoiceGateway backed by fixed tables. It
// serves local development and test setups where no real gateway runs.
type StaticGateway struct {
	mu sync.RWMutex
	// guilds maps guildID to the set of its voice channels.
	guilds map[string]map[string]PermissionSet
	// presence maps guildID:userID to the user's current channel.
	presence map[string]string
}

// NewStaticGateway constructs an empty gateway; populate it with AddChannel
// and SetUserChannel.
func NewStaticGateway() *StaticGateway {
	return &StaticGateway{
		guilds:   make(map[string]map[string]PermissionSet),
		presence: make(map[string]string),
	}
}

// AddChannel registers a voice channel and the bot's permissions in it,
// creating the guild as needed.
func (g *StaticGateway) AddChannel(guildID, channelID string, perms PermissionSet) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.guilds[guildID]
	if !ok {
		ch = make(map[string]PermissionSet)
		g.guilds[guildID] = ch
	}
	ch[channelID] = perms
}

// SetUserChannel places a user in a voice channel; empty channelID removes
// the presence.
func (g *StaticGateway) SetUserChannel(guildID, userID, channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := guildID + ":" + userID
	if channelID == "" {
		delete(g.presence, key)
		return
	}
	g.presence[key] = channelID
}

// UserChannel implements VoiceGateway.
func (g *StaticGateway) UserChannel(_ context.Context, guildID, userID string) (string, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.presence[guildID+":"+userID]
	return ch, ok, nil
}

// GuildExists implements VoiceGateway.
func (g *StaticGateway) GuildExists(_ context.Context, guildID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.guilds[guildID]
	return ok, nil
}

// ChannelExists implements VoiceGateway.
func (g *StaticGateway) ChannelExists(_ context.Context, guildID, channelID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.guilds[guildID]
	if !ok {
		return false, nil
	}
	_, ok = ch[channelID]
	return ok, nil
}

// BotPermissions implements VoiceGateway. Unknown guilds or channels report
// an empty permission set rather than an error; the resolver treats both the
// same way.
func (g *StaticGateway) BotPermissions(_ context.Context, guildID, channelID string) (PermissionSet, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.guilds[guildID]
	if !ok {
		return PermissionSet{}, nil
	}
	return ch[channelID], nil
}
