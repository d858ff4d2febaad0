// Package music implements the music worker: the standard operation set plus
// track enqueueing into a bounded per-guild queue.
package music

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
	"github.com/mkaravel/go-voice-fleet/internal/worker"
)

// DefaultQueueLimit caps a guild's track queue when no explicit limit is
// configured.
const DefaultQueueLimit = 100

// Ops is the music worker implementation. Safe for concurrent use.
type Ops struct {
	gw    platform.VoiceGateway
	state *worker.VoiceState
	log   zerolog.Logger

	limit  int
	mu     sync.Mutex
	queues map[string][]string
}

var _ worker.Operations = (*Ops)(nil)
var _ worker.TrackEnqueuer = (*Ops)(nil)

// New builds the music worker over the platform facade. queueLimit <= 0
// selects DefaultQueueLimit.
func New(gw platform.VoiceGateway, queueLimit int, log zerolog.Logger) *Ops {
	if queueLimit <= 0 {
		queueLimit = DefaultQueueLimit
	}
	return &Ops{
		gw:     gw,
		state:  worker.NewVoiceState(),
		log:    log.With().Str("component", "music_worker").Logger(),
		limit:  queueLimit,
		queues: make(map[string][]string),
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

// Leave disconnects and drops the guild's queue.
func (o *Ops) Leave(_ context.Context, guildID string) (string, error) {
	status := o.state.Leave(guildID)
	if status == domain.LeaveStatusLeft {
		o.mu.Lock()
		delete(o.queues, guildID)
		o.mu.Unlock()
	}
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

// EnqueueTrack appends a track to the guild's queue. Requires a live voice
// connection; a full queue rejects the track.
func (o *Ops) EnqueueTrack(_ context.Context, guildID, track string) (string, error) {
	if !o.state.Connected(guildID) {
		return "", fmt.Errorf("%w: not connected to a voice channel", worker.ErrInvalidArgument)
	}
	o.mu.Lock()
	q := o.queues[guildID]
	if len(q) >= o.limit {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: queue is full (%d tracks)", worker.ErrInvalidArgument, o.limit)
	}
	o.queues[guildID] = append(q, track)
	pos := len(o.queues[guildID])
	o.mu.Unlock()

	o.state.SetPlaying(guildID, true)
	o.log.Info().Str("guild_id", guildID).Str("track", track).Int("position", pos).Msg("track enqueued")
	return fmt.Sprintf("queued at position %d", pos), nil
}

// QueueLen reports the guild's queue depth. Read used by tests and status
// tooling.
func (o *Ops) QueueLen(guildID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queues[guildID])
}
