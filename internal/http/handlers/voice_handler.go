// Voice command HTTP handlers.
//
// These endpoints expose the control plane to the gateway glue that receives
// user commands from the chat platform:
//   - POST /guilds/{id}/join    connect the worker set
//   - POST /guilds/{id}/leave   disconnect the worker set
//   - POST /guilds/{id}/volume  set playback volume
//   - POST /guilds/{id}/play    enqueue a track (music worker)
//   - POST /guilds/{id}/say     voice text (speaker worker)
//   - POST /guilds/{id}/sound   fire a sound (soundboard worker)
//   - GET  /guilds/{id}/status  aggregate session + worker state
//   - GET  /workers             health and circuit diagnostics
//
// Handlers are transport-thin: they validate input, call the voice service,
// and translate its error taxonomy into HTTP envelopes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mkaravel/go-voice-fleet/internal/breaker"
	"github.com/mkaravel/go-voice-fleet/internal/client"
	"github.com/mkaravel/go-voice-fleet/internal/coordinator"
	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/services"
)

// VoiceCommands defines the command operations consumed by HTTP handlers.
// Implementations must be safe for concurrent use and honor the context.
type VoiceCommands interface {
	Join(ctx context.Context, guildID, userID, channelID string) (*services.CommandResult, error)
	Leave(ctx context.Context, guildID, userID string) (*services.CommandResult, error)
	SetVolume(ctx context.Context, guildID string, volume float64) (*services.CommandResult, error)
	Play(ctx context.Context, guildID, userID, track string) (*services.CommandResult, error)
	Say(ctx context.Context, guildID, userID, text, lang string) (*services.CommandResult, error)
	Sound(ctx context.Context, guildID, userID, sound string) (*services.CommandResult, error)
	Status(ctx context.Context, guildID string) (*services.GuildStatus, error)
}

// FleetDiagnostics exposes the coordinator's per-worker view.
type FleetDiagnostics interface {
	Diagnostics() []coordinator.WorkerDiagnostics
}

// Handlers groups the command API endpoints.
type Handlers struct {
	voice VoiceCommands
	fleet FleetDiagnostics
}

// New constructs Handlers bound to the given service and coordinator.
func New(voice VoiceCommands, fleet FleetDiagnostics) *Handlers {
	return &Handlers{voice: voice, fleet: fleet}
}

// userID extracts the acting user from the X-User-ID header set by the
// gateway glue.
func userID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-User-ID"))
}

//
// DTOs
//

// JoinRequest optionally names an explicit channel; when empty the resolver
// picks one.
type JoinRequest struct {
	ChannelID string `json:"channelId"`
}

// VolumeRequest carries the target volume. Pointer so an absent field is
// distinguishable from 0.0.
type VolumeRequest struct {
	Volume *float64 `json:"volume" binding:"required"`
}

// PlayRequest names the track to enqueue.
type PlayRequest struct {
	Track string `json:"track" binding:"required"`
}

// SayRequest carries the text to voice and an optional BCP-47 language tag.
type SayRequest struct {
	Text string `json:"text" binding:"required"`
	Lang string `json:"lang"`
}

// SoundRequest names the catalog sound to fire.
type SoundRequest struct {
	Sound string `json:"sound" binding:"required"`
}

//
// Endpoints
//

// Join handles POST /guilds/:id/join.
func (h *Handlers) Join(c *gin.Context) {
	var req JoinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	result, err := h.voice.Join(c.Request.Context(), c.Param("id"), userID(c), req.ChannelID)
	if err != nil {
		h.failCommand(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Leave handles POST /guilds/:id/leave.
func (h *Handlers) Leave(c *gin.Context) {
	result, err := h.voice.Leave(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		h.failCommand(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// SetVolume handles POST /guilds/:id/volume.
func (h *Handlers) SetVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "volume is required")
		return
	}
	result, err := h.voice.SetVolume(c.Request.Context(), c.Param("id"), *req.Volume)
	if err != nil {
		h.failCommand(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Play handles POST /guilds/:id/play.
func (h *Handlers) Play(c *gin.Context) {
	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "track is required")
		return
	}
	result, err := h.voice.Play(c.Request.Context(), c.Param("id"), userID(c), req.Track)
	if err != nil {
		h.failCommand(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Say handles POST /guilds/:id/say.
func (h *Handlers) Say(c *gin.Context) {
	var req SayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}
	result, err := h.voice.Say(c.Request.Context(), c.Param("id"), userID(c), req.Text, req.Lang)
	if err != nil {
		h.failCommand(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Sound handles POST /guilds/:id/sound.
func (h *Handlers) Sound(c *gin.Context) {
	var req SoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sound is required")
		return
	}
	result, err := h.voice.Sound(c.Request.Context(), c.Param("id"), userID(c), req.Sound)
	if err != nil {
		h.failCommand(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Status handles GET /guilds/:id/status.
func (h *Handlers) Status(c *gin.Context) {
	st, err := h.voice.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failCommand(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// Workers handles GET /workers.
func (h *Handlers) Workers(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"workers": h.fleet.Diagnostics()})
}

// failCommand translates the service error taxonomy into HTTP envelopes.
//
// An open circuit and an exhausted upstream both hide the raw transport
// detail from users; worker 4xx envelopes pass through with their original
// status and message.
func (h *Handlers) failCommand(c *gin.Context, err error) {
	var se *client.StatusError
	switch {
	case errors.Is(err, services.ErrNoTargetChannel):
		fail(c, http.StatusBadRequest, ErrCodeNoChannel, err.Error())
	case errors.Is(err, domain.ErrVolumeOutOfRange):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, breaker.ErrOpen):
		fail(c, http.StatusServiceUnavailable, ErrCodeWorkerUnavailable,
			"worker temporarily unavailable, try again shortly")
	case errors.As(err, &se):
		fail(c, se.StatusCode, se.Code, se.Message)
	case client.IsUpstream(err):
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "worker did not respond")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "command failed")
	}
}
