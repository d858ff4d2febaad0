// Worker control protocol wire types.
//
// Every mutating operation carries a caller-generated RequestID so the worker
// can deduplicate retries, and a GuildID scoping the operation. Validation is
// applied uniformly at the protocol boundary before any side effect runs;
// the Validate methods here are shared by the worker server (inbound) and the
// worker client (outbound, fail-fast before the network call).
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Volume bounds accepted by the protocol.
const (
	MinVolume = 0.0
	MaxVolume = 1.0
)

// ErrMissingRequestID is returned when a mutating request omits its
// idempotency key.
var ErrMissingRequestID = errors.New("requestId is required")

// ErrMissingGuildID is returned when a request omits its guild scope.
var ErrMissingGuildID = errors.New("guildId is required")

// ErrVolumeOutOfRange is returned when a volume value falls outside the
// accepted bounds. The message wording is part of the wire contract.
var ErrVolumeOutOfRange = fmt.Errorf("volume must be between %.1f and %.1f", MinVolume, MaxVolume)

// Envelope is the common part of every mutating protocol request.
type Envelope struct {
	RequestID string `json:"requestId"`
	GuildID   string `json:"guildId"`
}

// GetRequestID exposes the idempotency key to transport plumbing that only
// sees the request as an interface value.
func (e Envelope) GetRequestID() string { return e.RequestID }

// Validate checks the shared required fields.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.RequestID) == "" {
		return ErrMissingRequestID
	}
	if strings.TrimSpace(e.GuildID) == "" {
		return ErrMissingGuildID
	}
	return nil
}

// JoinRequest asks a worker to connect to a voice channel.
type JoinRequest struct {
	Envelope
	ChannelID string `json:"channelId"`
}

// Validate implements the protocol validation policy for join.
func (r JoinRequest) Validate() error {
	if err := r.Envelope.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.ChannelID) == "" {
		return errors.New("channelId is required")
	}
	return nil
}

// LeaveRequest asks a worker to disconnect from its current channel.
type LeaveRequest struct {
	Envelope
}

// VolumeRequest sets a worker's playback volume.
type VolumeRequest struct {
	Envelope
	Volume float64 `json:"volume"`
}

// Validate rejects out-of-range volumes before any side effect.
func (r VolumeRequest) Validate() error {
	if err := r.Envelope.Validate(); err != nil {
		return err
	}
	if r.Volume < MinVolume || r.Volume > MaxVolume {
		return ErrVolumeOutOfRange
	}
	return nil
}

// EnqueueRequest adds a track to the music worker's queue. Only valid for
// BotMusic.
type EnqueueRequest struct {
	Envelope
	Track string `json:"track"`
}

// Validate requires a non-empty track reference.
func (r EnqueueRequest) Validate() error {
	if err := r.Envelope.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Track) == "" {
		return errors.New("track is required")
	}
	return nil
}

// SpeakRequest asks the speaker worker to voice a piece of text. Only valid
// for BotSpeaker. Lang, when present, must be a BCP-47 language tag.
type SpeakRequest struct {
	Envelope
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

// Validate requires non-empty text; language tags are checked by the worker.
func (r SpeakRequest) Validate() error {
	if err := r.Envelope.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}

// PlaySoundRequest triggers a named sound effect. Only valid for
// BotSoundboard.
type PlaySoundRequest struct {
	Envelope
	Sound string `json:"sound"`
}

// Validate requires a non-empty sound name.
func (r PlaySoundRequest) Validate() error {
	if err := r.Envelope.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Sound) == "" {
		return errors.New("sound is required")
	}
	return nil
}

// Join outcome statuses.
const (
	JoinStatusJoined           = "joined"
	JoinStatusAlreadyConnected = "already_connected"
)

// Leave outcome statuses.
const (
	LeaveStatusLeft         = "left"
	LeaveStatusNotConnected = "not_connected"
)

// StatusSuccess is the generic success marker used by volume and the
// worker-specific extensions.
const StatusSuccess = "success"

// JoinResponse reports the outcome of a join.
type JoinResponse struct {
	Status    string `json:"status"`
	ChannelID string `json:"channelId"`
}

// LeaveResponse reports the outcome of a leave.
type LeaveResponse struct {
	Status string `json:"status"`
}

// VolumeResponse echoes the applied volume.
type VolumeResponse struct {
	Status string  `json:"status"`
	Volume float64 `json:"volume"`
}

// ExtensionResponse is the shared shape of enqueue/speak/play-sound results.
type ExtensionResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// WorkerStatus is the response of GET /status. Pure read; no request id.
type WorkerStatus struct {
	Connected bool     `json:"connected"`
	ChannelID string   `json:"channelId,omitempty"`
	Playing   bool     `json:"playing"`
	Volume    *float64 `json:"volume,omitempty"`
}

// ReadyResponse is the body of GET /health/ready.
type ReadyResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	BotType   BotType `json:"botType"`
	Timestamp string  `json:"timestamp"`
}
