// Package worker implements the reusable request-handling skeleton every
// worker process embeds: the standard protocol endpoint set, uniform
// validation, idempotency caching, and the health surface. Worker-specific
// behavior plugs in through the Operations and extension interfaces.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/http/middleware"
)

// HTTP error codes returned by the worker surface. Stable and machine
// readable; messages are the human-facing half.
const (
	errCodeBadRequest  = "bad_request"
	errCodeNotFound    = "not_found"
	errCodeUnsupported = "unsupported_operation"
	errCodeInternal    = "internal_error"
)

var (
	// idempotencyReplays counts requests served from the idempotency cache.
	idempotencyReplays = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "voicefleet_idempotency_replays_total",
		Help: "Requests answered from the worker idempotency cache.",
	})

	// idempotencyCacheSize gauges live cache entries after each sweep.
	idempotencyCacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "voicefleet_idempotency_cache_entries",
		Help: "Idempotency cache entries after the last sweep.",
	})
)

func init() {
	prometheus.MustRegister(idempotencyReplays, idempotencyCacheSize)
}

// Server is the worker process's HTTP surface. One Server runs per process,
// bound to a single BotType fixed at construction.
type Server struct {
	botType domain.BotType
	ops     Operations
	cache   *IdempotencyCache
	log     zerolog.Logger
	started time.Time

	// Extension surfaces; exactly the one owned by botType is non-nil.
	enqueuer TrackEnqueuer
	speaker  Speaker
	sounds   SoundPlayer
}

// NewServer builds the server base around a worker implementation. The
// implementation must provide the extension interface owned by botType;
// a mismatch is a wiring error and panics at startup.
func NewServer(botType domain.BotType, ops Operations, cache *IdempotencyCache, log zerolog.Logger) *Server {
	if !botType.Valid() {
		panic(fmt.Sprintf("worker: invalid bot type %d", int(botType)))
	}
	s := &Server{
		botType: botType,
		ops:     ops,
		cache:   cache,
		log:     log.With().Str("component", "worker_server").Stringer("bot_type", botType).Logger(),
		started: time.Now(),
	}
	switch botType {
	case domain.BotMusic:
		e, ok := ops.(TrackEnqueuer)
		if !ok {
			panic("worker: music operations must implement TrackEnqueuer")
		}
		s.enqueuer = e
	case domain.BotSpeaker:
		sp, ok := ops.(Speaker)
		if !ok {
			panic("worker: speaker operations must implement Speaker")
		}
		s.speaker = sp
	case domain.BotSoundboard:
		sb, ok := ops.(SoundPlayer)
		if !ok {
			panic("worker: soundboard operations must implement SoundPlayer")
		}
		s.sounds = sb
	}
	return s
}

// RegisterRoutes attaches middleware and the protocol endpoints to r.
//
// Middleware order: otelgin → RequestID → Logger → Recovery → body limit →
// Metrics. Recovery converts handler panics into JSON 500 responses; a single
// bad request must never take the worker process down.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware("worker-" + s.botType.String()))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.LimitBody(1 << 20))
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health surface: pure reads, no request id, never cached.
	r.GET("/health/live", s.handleLive)
	r.GET("/health/ready", s.handleReady)

	// Standard protocol set.
	r.GET("/status", s.handleStatus)
	r.POST("/join", s.handleJoin)
	r.POST("/leave", s.handleLeave)
	r.POST("/volume", s.handleVolume)

	// Extensions: every route exists on every worker so mismatches produce a
	// clear "not supported" rejection instead of a bare 404.
	r.POST("/enqueue", s.handleEnqueue)
	r.POST("/speak", s.handleSpeak)
	r.POST("/play-sound", s.handlePlaySound)

	r.NoRoute(func(c *gin.Context) {
		s.fail(c, http.StatusNotFound, errCodeNotFound, "route not found")
	})
}

//
// Health
//

func (s *Server) handleLive(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, domain.ReadyResponse{
		Status:    "ok",
		Uptime:    time.Since(s.started).Seconds(),
		BotType:   s.botType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

//
// Standard operations
//

func (s *Server) handleJoin(c *gin.Context) {
	var req domain.JoinRequest
	if !s.bind(c, &req) {
		return
	}
	s.idempotent(c, req.RequestID, func(ctx context.Context) (int, any) {
		if err := req.Validate(); err != nil {
			return http.StatusBadRequest, s.errBody(c, errCodeBadRequest, err.Error())
		}
		status, err := s.ops.Join(ctx, req.GuildID, req.ChannelID)
		if err != nil {
			return s.mapOpError(c, err)
		}
		return http.StatusOK, domain.JoinResponse{Status: status, ChannelID: req.ChannelID}
	})
}

func (s *Server) handleLeave(c *gin.Context) {
	var req domain.LeaveRequest
	if !s.bind(c, &req) {
		return
	}
	s.idempotent(c, req.RequestID, func(ctx context.Context) (int, any) {
		if err := req.Validate(); err != nil {
			return http.StatusBadRequest, s.errBody(c, errCodeBadRequest, err.Error())
		}
		status, err := s.ops.Leave(ctx, req.GuildID)
		if err != nil {
			return s.mapOpError(c, err)
		}
		return http.StatusOK, domain.LeaveResponse{Status: status}
	})
}

func (s *Server) handleVolume(c *gin.Context) {
	var req domain.VolumeRequest
	if !s.bind(c, &req) {
		return
	}
	s.idempotent(c, req.RequestID, func(ctx context.Context) (int, any) {
		if err := req.Validate(); err != nil {
			return http.StatusBadRequest, s.errBody(c, errCodeBadRequest, err.Error())
		}
		if err := s.ops.SetVolume(ctx, req.GuildID, req.Volume); err != nil {
			return s.mapOpError(c, err)
		}
		return http.StatusOK, domain.VolumeResponse{Status: domain.StatusSuccess, Volume: req.Volume}
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guildId"))
	if guildID == "" {
		s.fail(c, http.StatusBadRequest, errCodeBadRequest, domain.ErrMissingGuildID.Error())
		return
	}
	st, err := s.ops.Status(c.Request.Context(), guildID)
	if err != nil {
		status, body := s.mapOpError(c, err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, st)
}

//
// Extensions
//

func (s *Server) handleEnqueue(c *gin.Context) {
	var req domain.EnqueueRequest
	if !s.bind(c, &req) {
		return
	}
	if s.enqueuer == nil {
		s.failUnsupported(c, "enqueueTrack")
		return
	}
	s.idempotent(c, req.RequestID, func(ctx context.Context) (int, any) {
		if err := req.Validate(); err != nil {
			return http.StatusBadRequest, s.errBody(c, errCodeBadRequest, err.Error())
		}
		detail, err := s.enqueuer.EnqueueTrack(ctx, req.GuildID, req.Track)
		if err != nil {
			return s.mapOpError(c, err)
		}
		return http.StatusOK, domain.ExtensionResponse{Status: domain.StatusSuccess, Detail: detail}
	})
}

func (s *Server) handleSpeak(c *gin.Context) {
	var req domain.SpeakRequest
	if !s.bind(c, &req) {
		return
	}
	if s.speaker == nil {
		s.failUnsupported(c, "speak")
		return
	}
	s.idempotent(c, req.RequestID, func(ctx context.Context) (int, any) {
		if err := req.Validate(); err != nil {
			return http.StatusBadRequest, s.errBody(c, errCodeBadRequest, err.Error())
		}
		detail, err := s.speaker.Speak(ctx, req.GuildID, req.Text, req.Lang)
		if err != nil {
			return s.mapOpError(c, err)
		}
		return http.StatusOK, domain.ExtensionResponse{Status: domain.StatusSuccess, Detail: detail}
	})
}

func (s *Server) handlePlaySound(c *gin.Context) {
	var req domain.PlaySoundRequest
	if !s.bind(c, &req) {
		return
	}
	if s.sounds == nil {
		s.failUnsupported(c, "playSound")
		return
	}
	s.idempotent(c, req.RequestID, func(ctx context.Context) (int, any) {
		if err := req.Validate(); err != nil {
			return http.StatusBadRequest, s.errBody(c, errCodeBadRequest, err.Error())
		}
		detail, err := s.sounds.PlaySound(ctx, req.GuildID, req.Sound)
		if err != nil {
			return s.mapOpError(c, err)
		}
		return http.StatusOK, domain.ExtensionResponse{Status: domain.StatusSuccess, Detail: detail}
	})
}

//
// Plumbing
//

// bind decodes the JSON body and enforces the request-id requirement shared
// by every mutating endpoint. Returns false when the response is written.
func (s *Server) bind(c *gin.Context, req interface{ GetRequestID() string }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return false
	}
	if strings.TrimSpace(req.GetRequestID()) == "" {
		s.fail(c, http.StatusBadRequest, errCodeBadRequest, domain.ErrMissingRequestID.Error())
		return false
	}
	return true
}

// idempotent serves a previously-computed response for requestID when one is
// cached, or runs the operation and caches its fully-computed result. The
// replayed bytes and status code are exactly those of the first response.
func (s *Server) idempotent(c *gin.Context, requestID string, run func(ctx context.Context) (int, any)) {
	if status, body, ok := s.cache.Lookup(requestID); ok {
		idempotencyReplays.Inc()
		s.log.Debug().Str("request_id", requestID).Int("status", status).Msg("idempotent replay")
		c.Data(status, "application/json; charset=utf-8", body)
		return
	}

	status, body := run(c.Request.Context())
	raw, err := json.Marshal(body)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, errCodeInternal, "response encoding failed")
		return
	}
	s.cache.Store(requestID, status, raw)
	c.Data(status, "application/json; charset=utf-8", raw)
}

// mapOpError translates operation errors into the protocol's error taxonomy.
func (s *Server) mapOpError(c *gin.Context, err error) (int, any) {
	switch {
	case errors.Is(err, ErrGuildNotFound),
		errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrSoundNotFound):
		return http.StatusNotFound, s.errBody(c, errCodeNotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, s.errBody(c, errCodeBadRequest, err.Error())
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("worker operation failed")
		return http.StatusInternalServerError, s.errBody(c, errCodeInternal, err.Error())
	}
}

// errorBody is the standard error envelope of the worker surface.
type errorBody struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (s *Server) errBody(c *gin.Context, code, msg string) errorBody {
	return errorBody{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
}

func (s *Server) fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Int("status", status).Str("code", code).Str("message", msg).Msg("api error")
	}
	c.AbortWithStatusJSON(status, s.errBody(c, code, msg))
}

func (s *Server) failUnsupported(c *gin.Context, op string) {
	s.fail(c, http.StatusBadRequest, errCodeUnsupported,
		fmt.Sprintf("%s not supported by this worker type (%s)", op, s.botType))
}
