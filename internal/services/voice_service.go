package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/coordinator"
	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/resolver"
	"github.com/mkaravel/go-voice-fleet/internal/session"
)

// WorkerOutcome is one worker's result within a fan-out command.
type WorkerOutcome struct {
	BotType domain.BotType `json:"botType"`
	Status  string         `json:"status,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// CommandResult is the outcome of a voice command: the channel it targeted,
// whether that channel was borrowed from an existing session, and what each
// involved worker reported.
type CommandResult struct {
	ChannelID   string          `json:"channelId,omitempty"`
	FromSession bool            `json:"fromSession,omitempty"`
	Detail      string          `json:"detail,omitempty"`
	Workers     []WorkerOutcome `json:"workers,omitempty"`
}

// WorkerStatusEntry is one worker's slice of a guild status report.
type WorkerStatusEntry struct {
	BotType domain.BotType       `json:"botType"`
	Status  *domain.WorkerStatus `json:"status,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// GuildStatus aggregates the session record with every worker's view.
type GuildStatus struct {
	Session *domain.VoiceSession `json:"session,omitempty"`
	Workers []WorkerStatusEntry  `json:"workers"`
}

// VoiceService implements the orchestrator's command logic. Every outbound
// worker call is gated through the Coordinator so the circuit breakers see
// each outcome; the session store is updated only after workers acted.
type VoiceService struct {
	// Coord gates and tracks all worker calls.
	Coord *coordinator.Coordinator
	// Resolver picks the target channel when the command names none.
	Resolver *resolver.Resolver
	// Sessions is the shared store this service writes.
	Sessions session.Store

	Log zerolog.Logger

	// NewRequestID mints the idempotency key for each logical command.
	NewRequestID func() string
}

// NewVoiceService wires the service with UUID request ids.
func NewVoiceService(coord *coordinator.Coordinator, res *resolver.Resolver, sessions session.Store, log zerolog.Logger) *VoiceService {
	return &VoiceService{
		Coord:        coord,
		Resolver:     res,
		Sessions:     sessions,
		Log:          log.With().Str("component", "voice_service").Logger(),
		NewRequestID: uuid.NewString,
	}
}

// resolve returns the channel a command should target. An explicit channel
// from the caller always wins; otherwise the resolver's priority chain runs.
func (s *VoiceService) resolve(ctx context.Context, guildID, userID, explicit string) (string, bool, error) {
	if explicit != "" {
		return explicit, false, nil
	}
	res := s.Resolver.ResolveTargetChannel(ctx, guildID, userID)
	if !res.OK() {
		return "", false, ErrNoTargetChannel
	}
	return res.ChannelID, res.ActiveChannelID != "", nil
}

// Join connects the whole worker set to a channel. The command succeeds when
// at least one worker joined; per-worker failures are reported in the result.
// On success the session store records the active session and the user's
// last channel.
func (s *VoiceService) Join(ctx context.Context, guildID, userID, channelID string) (*CommandResult, error) {
	ch, fromSession, err := s.resolve(ctx, guildID, userID, channelID)
	if err != nil {
		return nil, err
	}

	requestID := s.NewRequestID()
	result := &CommandResult{ChannelID: ch, FromSession: fromSession}
	var joined bool
	var firstErr error

	for _, bt := range domain.AllBotTypes {
		cl := s.Coord.Client(bt)
		var resp *domain.JoinResponse
		err := s.Coord.Execute(ctx, bt, "join", func(ctx context.Context) error {
			var callErr error
			resp, callErr = cl.Join(ctx, domain.JoinRequest{
				Envelope:  domain.Envelope{RequestID: requestID, GuildID: guildID},
				ChannelID: ch,
			})
			return callErr
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			result.Workers = append(result.Workers, WorkerOutcome{BotType: bt, Error: err.Error()})
			continue
		}
		joined = true
		result.Workers = append(result.Workers, WorkerOutcome{BotType: bt, Status: resp.Status})
	}

	if !joined {
		return nil, fmt.Errorf("%w: %w", ErrAllWorkersFailed, firstErr)
	}
	s.recordJoin(ctx, guildID, userID, ch)
	return result, nil
}

// Leave disconnects the worker set and clears the guild's session once the
// last worker left.
func (s *VoiceService) Leave(ctx context.Context, guildID, userID string) (*CommandResult, error) {
	requestID := s.NewRequestID()
	result := &CommandResult{}
	var reached bool
	var firstErr error

	for _, bt := range domain.AllBotTypes {
		cl := s.Coord.Client(bt)
		var resp *domain.LeaveResponse
		err := s.Coord.Execute(ctx, bt, "leave", func(ctx context.Context) error {
			var callErr error
			resp, callErr = cl.Leave(ctx, domain.LeaveRequest{
				Envelope: domain.Envelope{RequestID: requestID, GuildID: guildID},
			})
			return callErr
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			result.Workers = append(result.Workers, WorkerOutcome{BotType: bt, Error: err.Error()})
			continue
		}
		reached = true
		result.Workers = append(result.Workers, WorkerOutcome{BotType: bt, Status: resp.Status})
	}

	if !reached {
		return nil, fmt.Errorf("%w: %w", ErrAllWorkersFailed, firstErr)
	}
	if err := s.Sessions.ClearActiveSession(ctx, guildID); err != nil {
		s.Log.Error().Err(err).Str("guild_id", guildID).Msg("clearing session failed")
	}
	return result, nil
}

// SetVolume applies a volume to every worker.
func (s *VoiceService) SetVolume(ctx context.Context, guildID string, volume float64) (*CommandResult, error) {
	if volume < 0.0 || volume > 1.0 {
		return nil, domain.ErrVolumeOutOfRange
	}

	requestID := s.NewRequestID()
	result := &CommandResult{}
	var reached bool
	var firstErr error

	for _, bt := range domain.AllBotTypes {
		cl := s.Coord.Client(bt)
		err := s.Coord.Execute(ctx, bt, "volume", func(ctx context.Context) error {
			_, callErr := cl.SetVolume(ctx, domain.VolumeRequest{
				Envelope: domain.Envelope{RequestID: requestID, GuildID: guildID},
				Volume:   volume,
			})
			return callErr
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			result.Workers = append(result.Workers, WorkerOutcome{BotType: bt, Error: err.Error()})
			continue
		}
		reached = true
		result.Workers = append(result.Workers, WorkerOutcome{BotType: bt, Status: domain.StatusSuccess})
	}

	if !reached {
		return nil, fmt.Errorf("%w: %w", ErrAllWorkersFailed, firstErr)
	}
	return result, nil
}

// Play resolves a channel, connects the music worker, and enqueues a track.
func (s *VoiceService) Play(ctx context.Context, guildID, userID, track string) (*CommandResult, error) {
	return s.extension(ctx, guildID, userID, domain.BotMusic, "enqueue",
		func(ctx context.Context, requestID string) (*domain.ExtensionResponse, error) {
			return s.Coord.Client(domain.BotMusic).EnqueueTrack(ctx, domain.EnqueueRequest{
				Envelope: domain.Envelope{RequestID: requestID, GuildID: guildID},
				Track:    track,
			})
		})
}

// Say resolves a channel, connects the speaker worker, and voices text.
func (s *VoiceService) Say(ctx context.Context, guildID, userID, text, lang string) (*CommandResult, error) {
	return s.extension(ctx, guildID, userID, domain.BotSpeaker, "speak",
		func(ctx context.Context, requestID string) (*domain.ExtensionResponse, error) {
			return s.Coord.Client(domain.BotSpeaker).Speak(ctx, domain.SpeakRequest{
				Envelope: domain.Envelope{RequestID: requestID, GuildID: guildID},
				Text:     text,
				Lang:     lang,
			})
		})
}

// Sound resolves a channel, connects the soundboard worker, and fires a sound.
func (s *VoiceService) Sound(ctx context.Context, guildID, userID, sound string) (*CommandResult, error) {
	return s.extension(ctx, guildID, userID, domain.BotSoundboard, "play_sound",
		func(ctx context.Context, requestID string) (*domain.ExtensionResponse, error) {
			return s.Coord.Client(domain.BotSoundboard).PlaySound(ctx, domain.PlaySoundRequest{
				Envelope: domain.Envelope{RequestID: requestID, GuildID: guildID},
				Sound:    sound,
			})
		})
}

// extension runs a single-worker command: resolve, join the owning worker,
// then invoke the worker-specific operation. Join and the extension carry
// distinct request ids; they are separate idempotent operations.
func (s *VoiceService) extension(
	ctx context.Context,
	guildID, userID string,
	bt domain.BotType,
	op string,
	call func(ctx context.Context, requestID string) (*domain.ExtensionResponse, error),
) (*CommandResult, error) {
	ch, fromSession, err := s.resolve(ctx, guildID, userID, "")
	if err != nil {
		return nil, err
	}

	cl := s.Coord.Client(bt)
	joinID := s.NewRequestID()
	err = s.Coord.Execute(ctx, bt, "join", func(ctx context.Context) error {
		_, callErr := cl.Join(ctx, domain.JoinRequest{
			Envelope:  domain.Envelope{RequestID: joinID, GuildID: guildID},
			ChannelID: ch,
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	s.recordJoin(ctx, guildID, userID, ch)

	var resp *domain.ExtensionResponse
	err = s.Coord.Execute(ctx, bt, op, func(ctx context.Context) error {
		var callErr error
		resp, callErr = call(ctx, s.NewRequestID())
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return &CommandResult{
		ChannelID:   ch,
		FromSession: fromSession,
		Detail:      resp.Detail,
		Workers:     []WorkerOutcome{{BotType: bt, Status: resp.Status}},
	}, nil
}

// Status aggregates the guild's session record with every worker's view.
// Workers that cannot be reached contribute an error entry instead of
// failing the whole report.
func (s *VoiceService) Status(ctx context.Context, guildID string) (*GuildStatus, error) {
	sess, err := s.Sessions.GetSession(ctx, guildID)
	if err != nil {
		s.Log.Warn().Err(err).Str("guild_id", guildID).Msg("session lookup failed")
	}

	out := &GuildStatus{Session: sess}
	for _, bt := range domain.AllBotTypes {
		cl := s.Coord.Client(bt)
		var st *domain.WorkerStatus
		err := s.Coord.Execute(ctx, bt, "status", func(ctx context.Context) error {
			var callErr error
			st, callErr = cl.Status(ctx, guildID)
			return callErr
		})
		if err != nil {
			out.Workers = append(out.Workers, WorkerStatusEntry{BotType: bt, Error: err.Error()})
			continue
		}
		out.Workers = append(out.Workers, WorkerStatusEntry{BotType: bt, Status: st})
	}
	return out, nil
}

// recordJoin persists the session bookkeeping after a successful join. Store
// failures are logged, not surfaced: the workers already moved.
func (s *VoiceService) recordJoin(ctx context.Context, guildID, userID, channelID string) {
	if err := s.Sessions.SetActiveSession(ctx, guildID, channelID, userID); err != nil {
		s.Log.Error().Err(err).Str("guild_id", guildID).Msg("recording session failed")
	}
	if err := s.Sessions.RecordLastChannel(ctx, guildID, userID, channelID); err != nil {
		s.Log.Error().Err(err).Str("guild_id", guildID).Msg("recording last channel failed")
	}
}
