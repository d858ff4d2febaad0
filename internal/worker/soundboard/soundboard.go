// Package soundboard implements the soundboard worker: the standard
// operation set plus one-shot playback of sounds from a named catalog.
package soundboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
	"github.com/mkaravel/go-voice-fleet/internal/worker"
)

// Ops is the soundboard worker implementation. Safe for concurrent use.
type Ops struct {
	gw    platform.VoiceGateway
	state *worker.VoiceState
	log   zerolog.Logger

	mu      sync.RWMutex
	catalog map[string]struct{}
}

var _ worker.Operations = (*Ops)(nil)
var _ worker.SoundPlayer = (*Ops)(nil)

// New builds the soundboard worker with the given sound catalog.
func New(gw platform.VoiceGateway, sounds []string, log zerolog.Logger) *Ops {
	catalog := make(map[string]struct{}, len(sounds))
	for _, s := range sounds {
		catalog[s] = struct{}{}
	}
	return &Ops{
		gw:      gw,
		state:   worker.NewVoiceState(),
		log:     log.With().Str("component", "soundboard_worker").Logger(),
		catalog: catalog,
	}
}

// Join validates the target against the platform and connects.
func (o *Ops) Join(ctx context.Context, guildID, channelID string) (string, error) {
	if err := worker.CheckChannel(ctx, o.gw, guildID, channelID); err != nil {
		return "", err
	}
	status := o.state.Join(guildID, channelID)
	o.log.Info().Str("guild_id", guildID).Str("channel_id", channelID).Str("status", status).Msg("join")
	return status, nil
}

// Leave implements worker.Operations.
func (o *Ops) Leave(_ context.Context, guildID string) (string, error) {
	status := o.state.Leave(guildID)
	o.log.Info().Str("guild_id", guildID).Str("status", status).Msg("leave")
	return status, nil
}

// SetVolume implements worker.Operations.
func (o *Ops) SetVolume(_ context.Context, guildID string, volume float64) error {
	o.state.SetVolume(guildID, volume)
	return nil
}

// Status implements worker.Operations.
func (o *Ops) Status(_ context.Context, guildID string) (domain.WorkerStatus, error) {
	return o.state.Snapshot(guildID), nil
}

// PlaySound fires a one-shot sound from the catalog.
func (o *Ops) PlaySound(_ context.Context, guildID, sound string) (string, error) {
	if !o.state.Connected(guildID) {
		return "", fmt.Errorf("%w: not connected to a voice channel", worker.ErrInvalidArgument)
	}
	o.mu.RLock()
	_, ok := o.catalog[sound]
	o.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%q: %w", sound, worker.ErrSoundNotFound)
	}

	o.state.SetPlaying(guildID, true)
	o.log.Info().Str("guild_id", guildID).Str("sound", sound).Msg("playing sound")
	return fmt.Sprintf("playing %s", sound), nil
}

// AddSound registers a sound name at runtime.
func (o *Ops) AddSound(name string) {
	o.mu.Lock()
	o.catalog[name] = struct{}{}
	o.mu.Unlock()
}

// Sounds lists the catalog in sorted order.
func (o *Ops) Sounds() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.catalog))
	for s := range o.catalog {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
