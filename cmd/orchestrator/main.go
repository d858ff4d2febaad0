// The orchestrator is the control-plane process: it owns the worker clients,
// circuit breakers, health polling, channel resolution, and the shared
// session store, and exposes the command API consumed by the gateway glue.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkaravel/go-voice-fleet/internal/client"
	"github.com/mkaravel/go-voice-fleet/internal/config"
	"github.com/mkaravel/go-voice-fleet/internal/coordinator"
	"github.com/mkaravel/go-voice-fleet/internal/domain"
	httpapi "github.com/mkaravel/go-voice-fleet/internal/http"
	"github.com/mkaravel/go-voice-fleet/internal/observability"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
	"github.com/mkaravel/go-voice-fleet/internal/resolver"
	"github.com/mkaravel/go-voice-fleet/internal/services"
	"github.com/mkaravel/go-voice-fleet/internal/session"
	"github.com/mkaravel/go-voice-fleet/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", "orchestrator").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, "orchestrator", version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	store, err := openSessionStore(cfg.Session, cfg.OTEL.Enabled)
	if err != nil {
		logger.Fatal().Err(err).Msg("session store setup failed")
	}
	defer store.Close()

	clients := make(map[domain.BotType]*client.Client, domain.NumBotTypes)
	for bt, u := range cfg.WorkerURLs {
		clients[bt] = client.New(bt, u, client.Config{
			Timeout:    cfg.Client.Timeout,
			MaxRetries: cfg.Client.MaxRetries,
			RetryBase:  cfg.Client.RetryBase,
			RetryCap:   cfg.Client.RetryCap,
		}, logger)
	}

	coord := coordinator.New(cfg.Coordinator, clients, logger)
	coord.Start(ctx)
	defer coord.Stop()

	// The real gateway binding lives outside this repository; the static
	// gateway serves local runs until one is wired in.
	gw := platform.NewStaticGateway()
	res := resolver.New(gw, store, logger)
	svc := services.NewVoiceService(coord, res, store, logger)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, svc, coord, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("orchestrator listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("orchestrator stopped")
}

// openSessionStore selects the session backend from configuration.
func openSessionStore(cfg config.SessionConfig, tracing bool) (session.Store, error) {
	switch cfg.Backend {
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	case "sqlite":
		return session.NewSQLiteStore(session.SQLiteConfig{
			Path:    cfg.SQLitePath,
			TTL:     cfg.TTL,
			Tracing: tracing,
		})
	default:
		return nil, errors.New("SESSION_BACKEND must be redis or sqlite")
	}
}
