// Package domain defines the core types shared by the orchestrator and the
// worker processes: worker identities, the wire contract of the worker
// control protocol, voice session records, and health/diagnostic statuses.
package domain

import (
	"fmt"
	"strings"
)

// BotType identifies a worker process and the capability it provides. It is
// fixed for the lifetime of a worker process and keys all per-worker state
// held by the orchestrator (clients, circuit breakers, health records).
type BotType int

const (
	// BotMusic is the music-player worker (owns the enqueue extension).
	BotMusic BotType = iota
	// BotSpeaker is the text-to-speech worker (owns the speak extension).
	BotSpeaker
	// BotSoundboard is the sound-effect worker (owns the play-sound extension).
	BotSoundboard

	// NumBotTypes is the size of any fixed table indexed by BotType.
	NumBotTypes = 3
)

// AllBotTypes lists every worker identity in index order. Useful for
// iterating fixed per-type tables.
var AllBotTypes = [NumBotTypes]BotType{BotMusic, BotSpeaker, BotSoundboard}

// String returns the canonical lowercase name used on the wire and in config.
func (b BotType) String() string {
	switch b {
	case BotMusic:
		return "music"
	case BotSpeaker:
		return "speaker"
	case BotSoundboard:
		return "soundboard"
	default:
		return "unknown"
	}
}

// Valid reports whether b is one of the defined worker identities.
func (b BotType) Valid() bool { return b >= 0 && b < NumBotTypes }

// ParseBotType converts a config or wire value into a BotType.
func ParseBotType(s string) (BotType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "music":
		return BotMusic, nil
	case "speaker":
		return BotSpeaker, nil
	case "soundboard":
		return BotSoundboard, nil
	default:
		return 0, fmt.Errorf("unknown bot type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so BotType serializes as its
// canonical name in JSON payloads.
func (b BotType) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BotType) UnmarshalText(text []byte) error {
	v, err := ParseBotType(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
