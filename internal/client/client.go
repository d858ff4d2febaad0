// Package client implements the per-worker-type HTTP client of the worker
// control protocol. One Client is constructed per BotType; every call is
// scoped to a guild, carries a caller-generated request id on mutating
// operations, and retries transient failures with exponential backoff.
//
// Retry policy:
//   - network-level failures and 5xx responses are retryable
//   - 4xx responses (validation, not-found) are terminal and returned as-is
//   - each retry waits base * 2^attempt, capped at a ceiling
//
// Retries exhaust silently into the last error; callers never see the retry
// count. Worker-specific extension calls assert the client's BotType locally
// before any network attempt.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

// ErrWrongBotType is returned when a worker-specific extension is invoked on
// a client configured for a different worker type. No network call is made.
var ErrWrongBotType = errors.New("operation not supported by this worker type")

// StatusError is a terminal, non-retryable response from a worker (4xx). It
// carries the worker's error envelope so callers can surface a specific
// message instead of a generic transport error.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("worker responded %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// UpstreamError wraps a transient failure (network error or 5xx) after all
// retries were exhausted. It is the class of error that feeds the circuit
// breaker's failure counter.
type UpstreamError struct {
	BotType domain.BotType
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s worker %s failed: %v", e.BotType, e.Op, e.Err)
}

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err represents a transient worker failure, as
// opposed to a terminal validation/not-found response.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// Config tunes a Client. Zero values fall back to the defaults noted below.
type Config struct {
	// Timeout is the per-call deadline. Default 800ms; workers are
	// co-located infrastructure, not third parties.
	Timeout time.Duration
	// MaxRetries is the number of retries beyond the first attempt.
	// Default 3.
	MaxRetries int
	// RetryBase is the backoff base. Default 100ms.
	RetryBase time.Duration
	// RetryCap bounds a single backoff sleep. Default 2s.
	RetryCap time.Duration
}

// Client talks to a single worker process.
type Client struct {
	botType domain.BotType
	baseURL string
	http    *http.Client

	maxRetries int
	retryBase  time.Duration
	retryCap   time.Duration

	log zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error // test seam
}

// New constructs a Client for the worker of the given type at baseURL.
func New(botType domain.BotType, baseURL string, cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 800 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}
	if cfg.RetryCap < cfg.RetryBase {
		cfg.RetryCap = 2 * time.Second
	}
	return &Client{
		botType:    botType,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
		retryCap:   cfg.RetryCap,
		log:        log.With().Str("component", "worker_client").Stringer("bot_type", botType).Logger(),
		sleep:      sleepCtx,
	}
}

// BotType returns the worker type this client is bound to.
func (c *Client) BotType() domain.BotType { return c.botType }

// Join asks the worker to connect to a voice channel.
func (c *Client) Join(ctx context.Context, req domain.JoinRequest) (*domain.JoinResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.JoinResponse
	if err := c.post(ctx, "join", "/join", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leave asks the worker to disconnect from its current channel.
func (c *Client) Leave(ctx context.Context, req domain.LeaveRequest) (*domain.LeaveResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.LeaveResponse
	if err := c.post(ctx, "leave", "/leave", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetVolume sets the worker's playback volume. Out-of-range values are
// rejected locally before any network attempt.
func (c *Client) SetVolume(ctx context.Context, req domain.VolumeRequest) (*domain.VolumeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.VolumeResponse
	if err := c.post(ctx, "volume", "/volume", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status performs the pure-read status query. No request id is involved.
func (c *Client) Status(ctx context.Context, guildID string) (*domain.WorkerStatus, error) {
	if strings.TrimSpace(guildID) == "" {
		return nil, domain.ErrMissingGuildID
	}
	var out domain.WorkerStatus
	path := "/status?guildId=" + url.QueryEscape(guildID)
	if err := c.do(ctx, "status", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready performs the readiness probe used by health polling. It is a pure
// read and never retried: the poller itself supplies the cadence.
func (c *Client) Ready(ctx context.Context) (*domain.ReadyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/ready", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{BotType: c.botType, Op: "ready", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			BotType: c.botType,
			Op:      "ready",
			Err:     fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	var out domain.ReadyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UpstreamError{BotType: c.botType, Op: "ready", Err: err}
	}
	return &out, nil
}

// EnqueueTrack adds a track to the music worker's queue. Only valid on a
// BotMusic client; mismatches fail fast locally.
func (c *Client) EnqueueTrack(ctx context.Context, req domain.EnqueueRequest) (*domain.ExtensionResponse, error) {
	if err := c.requireType(domain.BotMusic, "enqueueTrack"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.ExtensionResponse
	if err := c.post(ctx, "enqueue", "/enqueue", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Speak asks the speaker worker to voice text. Only valid on a BotSpeaker
// client.
func (c *Client) Speak(ctx context.Context, req domain.SpeakRequest) (*domain.ExtensionResponse, error) {
	if err := c.requireType(domain.BotSpeaker, "speak"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.ExtensionResponse
	if err := c.post(ctx, "speak", "/speak", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlaySound triggers a named sound effect. Only valid on a BotSoundboard
// client.
func (c *Client) PlaySound(ctx context.Context, req domain.PlaySoundRequest) (*domain.ExtensionResponse, error) {
	if err := c.requireType(domain.BotSoundboard, "playSound"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.ExtensionResponse
	if err := c.post(ctx, "play-sound", "/play-sound", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// requireType asserts that a worker-specific operation belongs to this
// client's BotType.
func (c *Client) requireType(owner domain.BotType, op string) error {
	if c.botType != owner {
		return fmt.Errorf("%s requires %s worker, client is %s: %w", op, owner, c.botType, ErrWrongBotType)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	return c.do(ctx, op, http.MethodPost, path, body, out)
}

// do issues the HTTP call with the retry/backoff policy and decodes the JSON
// response into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return &UpstreamError{BotType: c.botType, Op: op, Err: err}
			}
		}

		raw, status, err := c.once(ctx, method, path, payload)
		if err != nil {
			// Network-level failure: retryable.
			lastErr = err
			c.log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("worker call failed")
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if out == nil || len(raw) == 0 {
				return nil
			}
			return json.Unmarshal(raw, out)
		case status >= 500:
			// Upstream failure: retryable.
			lastErr = fmt.Errorf("status %d", status)
			c.log.Debug().Int("status", status).Str("op", op).Int("attempt", attempt).Msg("worker call failed")
			continue
		default:
			// 4xx: terminal, surfaced immediately with the worker's envelope.
			return decodeStatusError(status, raw)
		}
	}

	return &UpstreamError{BotType: c.botType, Op: op, Err: lastErr}
}

// once performs a single HTTP round trip and reads the full body.
func (c *Client) once(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}

// backoff returns base * 2^attempt capped at the ceiling.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryBase << uint(attempt)
	if d > c.retryCap || d <= 0 {
		d = c.retryCap
	}
	return d
}

// decodeStatusError extracts the worker's error envelope from a 4xx body,
// falling back to the raw text when the body is not the standard shape.
func decodeStatusError(status int, raw []byte) error {
	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return &StatusError{StatusCode: status, Code: env.Code, Message: env.Message}
	}
	return &StatusError{StatusCode: status, Code: "bad_request", Message: strings.TrimSpace(string(raw))}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
