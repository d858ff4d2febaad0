// Operation contracts implemented by each worker type.
//
// The server base owns transport, validation, and idempotency; everything a
// concrete worker does is expressed through Operations plus at most one of
// the extension interfaces below. A worker binary wires exactly one
// implementation at startup.
package worker

import (
	"context"
	"errors"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
)

// Not-found errors at the chat-platform boundary. The server base maps these
// to 404 responses; they are terminal and never retried by callers.
var (
	ErrGuildNotFound   = errors.New("guild not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrSoundNotFound   = errors.New("sound not found")
)

// ErrInvalidArgument marks worker-side validation failures (for example a
// malformed language tag). The server base maps it to a 400 response.
var ErrInvalidArgument = errors.New("invalid argument")

// Operations is the standard endpoint set every worker implements.
// Implementations must be safe for concurrent use and honor ctx.
type Operations interface {
	// Join connects the worker to a voice channel and reports whether it
	// joined or was already connected there.
	Join(ctx context.Context, guildID, channelID string) (status string, err error)
	// Leave disconnects from the guild's channel and reports whether it left
	// or was not connected.
	Leave(ctx context.Context, guildID string) (status string, err error)
	// SetVolume applies a playback volume already validated to [0.0, 1.0].
	SetVolume(ctx context.Context, guildID string, volume float64) error
	// Status reports the worker's current state in the guild. Pure read.
	Status(ctx context.Context, guildID string) (domain.WorkerStatus, error)
}

// TrackEnqueuer is the music worker's extension surface.
type TrackEnqueuer interface {
	EnqueueTrack(ctx context.Context, guildID, track string) (detail string, err error)
}

// Speaker is the text-to-speech worker's extension surface.
type Speaker interface {
	Speak(ctx context.Context, guildID, text, lang string) (detail string, err error)
}

// SoundPlayer is the soundboard worker's extension surface.
type SoundPlayer interface {
	PlaySound(ctx context.Context, guildID, sound string) (detail string, err error)
}

// CheckChannel verifies the guild and voice channel are visible to the bot,
// translating absence into the protocol's not-found sentinels.
func CheckChannel(ctx context.Context, gw platform.VoiceGateway, guildID, channelID string) error {
	ok, err := gw.GuildExists(ctx, guildID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrGuildNotFound
	}
	ok, err = gw.ChannelExists(ctx, guildID, channelID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrChannelNotFound
	}
	return nil
}
