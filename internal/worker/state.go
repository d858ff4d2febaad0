package worker

import (
	"sync"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

// DefaultVolume is the playback volume a guild starts with before any
// setVolume call.
const DefaultVolume = 1.0

// VoiceState tracks a worker's per-guild voice connection and playback
// settings. It is the in-process state machine shared by all worker types;
// audio transport itself lives outside this repository.
type VoiceState struct {
	mu     sync.Mutex
	guilds map[string]*guildVoice
}

type guildVoice struct {
	channelID string
	volume    float64
	playing   bool
}

// NewVoiceState returns an empty state table.
func NewVoiceState() *VoiceState {
	return &VoiceState{guilds: make(map[string]*guildVoice)}
}

// guild returns the guild's entry, creating it at default volume.
func (v *VoiceState) guild(guildID string) *guildVoice {
	g, ok := v.guilds[guildID]
	if !ok {
		g = &guildVoice{volume: DefaultVolume}
		v.guilds[guildID] = g
	}
	return g
}

// Join connects the guild to channelID. Joining the channel the worker is
// already in reports already_connected; joining while connected elsewhere
// moves the connection and reports joined.
func (v *VoiceState) Join(guildID, channelID string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	g := v.guild(guildID)
	if g.channelID == channelID {
		return domain.JoinStatusAlreadyConnected
	}
	g.channelID = channelID
	return domain.JoinStatusJoined
}

// Leave disconnects the guild and stops playback. Leaving while not
// connected reports not_connected.
func (v *VoiceState) Leave(guildID string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.guilds[guildID]
	if !ok || g.channelID == "" {
		return domain.LeaveStatusNotConnected
	}
	g.channelID = ""
	g.playing = false
	return domain.LeaveStatusLeft
}

// SetVolume records the guild's playback volume. The value is kept across
// leave/join cycles.
func (v *VoiceState) SetVolume(guildID string, volume float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.guild(guildID).volume = volume
}

// SetPlaying flips the guild's playback flag.
func (v *VoiceState) SetPlaying(guildID string, playing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.guild(guildID).playing = playing
}

// Connected reports whether the guild currently has a voice connection.
func (v *VoiceState) Connected(guildID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.guilds[guildID]
	return ok && g.channelID != ""
}

// Snapshot returns the guild's state in protocol form.
func (v *VoiceState) Snapshot(guildID string) domain.WorkerStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.guilds[guildID]
	if !ok {
		vol := DefaultVolume
		return domain.WorkerStatus{Volume: &vol}
	}
	vol := g.volume
	return domain.WorkerStatus{
		Connected: g.channelID != "",
		ChannelID: g.channelID,
		Playing:   g.playing,
		Volume:    &vol,
	}
}
