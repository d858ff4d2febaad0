package config

import (
	"strings"
	"testing"
	"time"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("GIN_MODE", "weird")    // will normalize to "release"
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("API_BASE_PATH", "api/v1/")

	t.Setenv("BOT_TYPE", "speaker")
	t.Setenv("WORKER_MUSIC_URL", "http://music:8091")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "7")
	t.Setenv("BREAKER_COOLDOWN", "30s")
	t.Setenv("BREAKER_MAX_COOLDOWN", "5m")
	t.Setenv("WORKER_CALL_TIMEOUT", "500ms")
	t.Setenv("SESSION_BACKEND", "REDIS") // lowercased
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SOUNDBOARD_SOUNDS", " airhorn , , kazoo ")

	t.Setenv("RATE_RPS", "x")      // parse failure -> default 5.0
	t.Setenv("RATE_BURST", "nope") // parse failure -> default 10

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second {
		t.Fatalf("server settings: %+v", cfg)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}

	if cfg.Worker.BotType != domain.BotSpeaker {
		t.Fatalf("BotType = %v", cfg.Worker.BotType)
	}
	if cfg.WorkerURLs[domain.BotMusic] != "http://music:8091" {
		t.Fatalf("music URL = %q", cfg.WorkerURLs[domain.BotMusic])
	}
	if cfg.WorkerURLs[domain.BotSpeaker] == "" {
		t.Fatal("speaker URL default missing")
	}

	if cfg.Coordinator.FailureThreshold != 7 || cfg.Coordinator.CoolDown != 30*time.Second {
		t.Fatalf("coordinator: %+v", cfg.Coordinator)
	}
	if cfg.Client.Timeout != 500*time.Millisecond {
		t.Fatalf("client timeout = %v", cfg.Client.Timeout)
	}
	if cfg.Session.Backend != "redis" {
		t.Fatalf("session backend = %q", cfg.Session.Backend)
	}
	if got := cfg.Worker.Sounds; len(got) != 2 || got[0] != "airhorn" || got[1] != "kazoo" {
		t.Fatalf("sounds = %v", got)
	}

	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limits: %v %v", cfg.RateRPS, cfg.RateBurst)
	}
}

func TestLoad_InvalidBotType(t *testing.T) {
	t.Setenv("BOT_TYPE", "juggler")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown BOT_TYPE")
	}
}

// --- validation failures ---

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"empty port", map[string]string{"PORT": " "}, "PORT"},
		{"bad breaker threshold", map[string]string{"BREAKER_FAILURE_THRESHOLD": "0"}, "BREAKER_FAILURE_THRESHOLD"},
		{"cooldown above cap", map[string]string{"BREAKER_COOLDOWN": "10m", "BREAKER_MAX_COOLDOWN": "1m"}, "BREAKER_COOLDOWN"},
		{"degraded above down", map[string]string{"HEALTH_DEGRADED_AFTER": "5", "HEALTH_DOWN_AFTER": "2"}, "HEALTH_DOWN_AFTER"},
		{"unknown session backend", map[string]string{"SESSION_BACKEND": "dynamo"}, "SESSION_BACKEND"},
		{"zero session ttl", map[string]string{"SESSION_TTL": "0s"}, "SESSION_TTL"},
		{"retry base above cap", map[string]string{"WORKER_RETRY_BASE": "5s", "WORKER_RETRY_CAP": "1s"}, "WORKER_RETRY_BASE"},
		{"sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

// --- helpers ---

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"api/v1/": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a , , b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("splitCSV = %v", got)
	}
	if splitCSV("") != nil {
		t.Fatal("splitCSV(\"\") should be nil")
	}
}

func TestGetboolFlagVariants(t *testing.T) {
	t.Setenv("LOG_PRETTY", "on")
	t.Setenv("OTEL_ENABLED", "Off")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "maybe") // neither -> default true
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.LogPretty {
		t.Fatal("LOG_PRETTY=on should enable pretty logging")
	}
	if cfg.OTEL.Enabled {
		t.Fatal("OTEL_ENABLED=Off should disable tracing")
	}
	if !cfg.OTEL.Insecure {
		t.Fatal("unrecognized flag value should keep the default")
	}
}

func TestLoad_TraceLevelAccepted(t *testing.T) {
	t.Setenv("LOG_LEVEL", "trace")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LogLevel != "trace" {
		t.Fatalf("LogLevel = %q, want trace", cfg.LogLevel)
	}
}

func TestGetdurFallsBackOnGarbage(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Fatalf("ReadTimeout = %v, want default", cfg.ReadTimeout)
	}
}
