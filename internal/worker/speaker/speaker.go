// Package speaker implements the text-to-speech worker: the standard
// operation set plus the speak extension with BCP-47 language validation.
package speaker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
	"github.com/mkaravel/go-voice-fleet/internal/worker"
)

// DefaultLang is assumed when a speak request carries no language tag.
const DefaultLang = "en"

// Ops is the speaker worker implementation. Safe for concurrent use.
type Ops struct {
	gw    platform.VoiceGateway
	state *worker.VoiceState
	log   zerolog.Logger
}

var _ worker.Operations = (*Ops)(nil)
var _ worker.Speaker = (*Ops)(nil)

// New builds the speaker worker over the platform facade.
func New(gw platform.VoiceGateway, log zerolog.Logger) *Ops {
	return &Ops{
		gw:    gw,
		state: worker.NewVoiceState(),
		log:   log.With().Str("component", "speaker_worker").Logger(),
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

// Speak synthesizes text in the guild's channel. The optional lang must be a
// well-formed BCP-47 tag; malformed tags are rejected before any playback.
func (o *Ops) Speak(_ context.Context, guildID, text, lang string) (string, error) {
	if !o.state.Connected(guildID) {
		return "", fmt.Errorf("%w: not connected to a voice channel", worker.ErrInvalidArgument)
	}
	if lang == "" {
		lang = DefaultLang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", fmt.Errorf("%w: unknown language tag %q", worker.ErrInvalidArgument, lang)
	}

	o.state.SetPlaying(guildID, true)
	o.log.Info().Str("guild_id", guildID).Stringer("lang", tag).Int("chars", len(text)).Msg("speaking")
	return fmt.Sprintf("speaking %d characters in %s", len(text), tag), nil
}
