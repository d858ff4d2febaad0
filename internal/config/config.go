// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for both
// the orchestrator and the worker binaries: server timeouts, logging, worker
// addresses, circuit-breaker thresholds, health polling, session storage,
// and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the
// orchestrator API.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// WorkerConfig holds settings consumed only by the worker binary.
type WorkerConfig struct {
	// BotType selects which worker-specific operation set is enabled.
	BotType domain.BotType // BOT_TYPE: music|speaker|soundboard
	// IdempotencyTTL is how long a requestId's cached response is replayed.
	IdempotencyTTL time.Duration // WORKER_IDEMPOTENCY_TTL
	// IdempotencySweep is the interval of the cache sweeper.
	IdempotencySweep time.Duration // WORKER_IDEMPOTENCY_SWEEP
	// Sounds is the soundboard worker's catalog.
	Sounds []string // SOUNDBOARD_SOUNDS (CSV)
	// QueueLimit caps the music worker's per-guild track queue.
	QueueLimit int // MUSIC_QUEUE_LIMIT
}

// CoordinatorConfig holds the circuit-breaker and health-polling knobs of the
// orchestrator.
type CoordinatorConfig struct {
	// FailureThreshold is the number of consecutive call failures that opens
	// a worker's circuit.
	FailureThreshold int // BREAKER_FAILURE_THRESHOLD
	// CoolDown is how long an open circuit waits before allowing a probe.
	CoolDown time.Duration // BREAKER_COOLDOWN
	// MaxCoolDown caps cool-down growth across successive reopenings.
	MaxCoolDown time.Duration // BREAKER_MAX_COOLDOWN
	// PollInterval is the cadence of the per-worker health poll.
	PollInterval time.Duration // HEALTH_POLL_INTERVAL
	// DegradedAfter / DownAfter are the consecutive health-check failure
	// counts past which status becomes degraded / down.
	DegradedAfter int // HEALTH_DEGRADED_AFTER
	DownAfter     int // HEALTH_DOWN_AFTER
}

// ClientConfig holds the per-call HTTP settings of the worker clients.
type ClientConfig struct {
	// Timeout is the per-call deadline. Workers are co-located
	// infrastructure, so this stays sub-second by default.
	Timeout time.Duration // WORKER_CALL_TIMEOUT
	// MaxRetries is the number of retries beyond the first attempt.
	MaxRetries int // WORKER_CALL_RETRIES
	// RetryBase is the base of the exponential backoff schedule.
	RetryBase time.Duration // WORKER_RETRY_BASE
	// RetryCap bounds a single backoff sleep.
	RetryCap time.Duration // WORKER_RETRY_CAP
}

// SessionConfig selects and tunes the shared session store backend.
type SessionConfig struct {
	// Backend is "redis" or "sqlite".
	Backend string // SESSION_BACKEND
	// RedisAddr is the host:port of the Redis backend.
	RedisAddr     string // SESSION_REDIS_ADDR
	RedisPassword string // SESSION_REDIS_PASSWORD
	RedisDB       int    // SESSION_REDIS_DB
	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string // SESSION_SQLITE_PATH
	// TTL is the idle lifetime of a session record in the store.
	TTL time.Duration // SESSION_TTL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for orchestrator API routes

	// Worker fleet addresses, keyed by BotType.
	// WORKER_MUSIC_URL / WORKER_SPEAKER_URL / WORKER_SOUNDBOARD_URL
	WorkerURLs map[domain.BotType]string

	// Rate limiting (orchestrator command API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS CORSConfig

	Worker      WorkerConfig
	Coordinator CoordinatorConfig
	Client      ClientConfig
	Session     SessionConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	botType, err := domain.ParseBotType(getenv("BOT_TYPE", "music"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		WorkerURLs: map[domain.BotType]string{
			domain.BotMusic:      getenv("WORKER_MUSIC_URL", "http://localhost:8091"),
			domain.BotSpeaker:    getenv("WORKER_SPEAKER_URL", "http://localhost:8092"),
			domain.BotSoundboard: getenv("WORKER_SOUNDBOARD_URL", "http://localhost:8093"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		Worker: WorkerConfig{
			BotType:          botType,
			IdempotencyTTL:   getdur("WORKER_IDEMPOTENCY_TTL", 60*time.Second),
			IdempotencySweep: getdur("WORKER_IDEMPOTENCY_SWEEP", 30*time.Second),
			Sounds:           splitCSV(getenv("SOUNDBOARD_SOUNDS", "airhorn,drumroll,applause")),
			QueueLimit:       getint("MUSIC_QUEUE_LIMIT", 100),
		},

		Coordinator: CoordinatorConfig{
			FailureThreshold: getint("BREAKER_FAILURE_THRESHOLD", 5),
			CoolDown:         getdur("BREAKER_COOLDOWN", 15*time.Second),
			MaxCoolDown:      getdur("BREAKER_MAX_COOLDOWN", 2*time.Minute),
			PollInterval:     getdur("HEALTH_POLL_INTERVAL", 10*time.Second),
			DegradedAfter:    getint("HEALTH_DEGRADED_AFTER", 2),
			DownAfter:        getint("HEALTH_DOWN_AFTER", 5),
		},

		Client: ClientConfig{
			Timeout:    getdur("WORKER_CALL_TIMEOUT", 800*time.Millisecond),
			MaxRetries: getint("WORKER_CALL_RETRIES", 3),
			RetryBase:  getdur("WORKER_RETRY_BASE", 100*time.Millisecond),
			RetryCap:   getdur("WORKER_RETRY_CAP", 2*time.Second),
		},

		Session: SessionConfig{
			Backend:       strings.ToLower(getenv("SESSION_BACKEND", "sqlite")),
			RedisAddr:     getenv("SESSION_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("SESSION_REDIS_PASSWORD", ""),
			RedisDB:       getint("SESSION_REDIS_DB", 0),
			SQLitePath:    getenv("SESSION_SQLITE_PATH", "sessions.db"),
			TTL:           getdur("SESSION_TTL", 6*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-voice-fleet"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	for bt, u := range cfg.WorkerURLs {
		if strings.TrimSpace(u) == "" {
			return cfg, fmt.Errorf("worker URL for %s must not be empty", bt)
		}
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Worker.IdempotencyTTL <= 0 {
		return cfg, errors.New("WORKER_IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Worker.IdempotencySweep <= 0 {
		return cfg, errors.New("WORKER_IDEMPOTENCY_SWEEP must be > 0")
	}
	if cfg.Coordinator.FailureThreshold < 1 {
		return cfg, errors.New("BREAKER_FAILURE_THRESHOLD must be >= 1")
	}
	if cfg.Coordinator.CoolDown <= 0 || cfg.Coordinator.MaxCoolDown < cfg.Coordinator.CoolDown {
		return cfg, errors.New("BREAKER_COOLDOWN must be > 0 and <= BREAKER_MAX_COOLDOWN")
	}
	if cfg.Coordinator.PollInterval <= 0 {
		return cfg, errors.New("HEALTH_POLL_INTERVAL must be > 0")
	}
	if cfg.Coordinator.DegradedAfter < 1 || cfg.Coordinator.DownAfter < cfg.Coordinator.DegradedAfter {
		return cfg, errors.New("HEALTH_DOWN_AFTER must be >= HEALTH_DEGRADED_AFTER >= 1")
	}
	if cfg.Client.Timeout <= 0 {
		return cfg, errors.New("WORKER_CALL_TIMEOUT must be > 0")
	}
	if cfg.Client.MaxRetries < 0 {
		return cfg, errors.New("WORKER_CALL_RETRIES must be >= 0")
	}
	if cfg.Client.RetryBase <= 0 || cfg.Client.RetryCap < cfg.Client.RetryBase {
		return cfg, errors.New("WORKER_RETRY_BASE must be > 0 and <= WORKER_RETRY_CAP")
	}
	switch cfg.Session.Backend {
	case "redis", "sqlite":
	default:
		return cfg, errors.New("SESSION_BACKEND must be one of: redis, sqlite")
	}
	if cfg.Session.Backend == "sqlite" && strings.TrimSpace(cfg.Session.SQLitePath) == "" {
		return cfg, errors.New("SESSION_SQLITE_PATH must not be empty")
	}
	if cfg.Session.TTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		if sysutil.IsFalsy(v) {
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
