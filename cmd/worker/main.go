// The worker binary runs one worker process. BOT_TYPE selects which
// operation set is enabled (music, speaker, or soundboard); everything else
// is the shared server base.
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

	"github.com/mkaravel/go-voice-fleet/internal/config"
	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/observability"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
	"github.com/mkaravel/go-voice-fleet/internal/sysutil"
	"github.com/mkaravel/go-voice-fleet/internal/worker"
	"github.com/mkaravel/go-voice-fleet/internal/worker/music"
	"github.com/mkaravel/go-voice-fleet/internal/worker/soundboard"
	"github.com/mkaravel/go-voice-fleet/internal/worker/speaker"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	botType := cfg.Worker.BotType
	logger := log.With().Str("service", "worker").Stringer("bot_type", botType).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, "worker-"+botType.String(), version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	// The real gateway binding lives outside this repository; the static
	// gateway serves local runs until one is wired in.
	gw := platform.NewStaticGateway()

	var ops worker.Operations
	switch botType {
	case domain.BotMusic:
		ops = music.New(gw, cfg.Worker.QueueLimit, logger)
	case domain.BotSpeaker:
		ops = speaker.New(gw, logger)
	case domain.BotSoundboard:
		ops = soundboard.New(gw, cfg.Worker.Sounds, logger)
	}

	cache := worker.NewIdempotencyCache(cfg.Worker.IdempotencyTTL, cfg.Worker.IdempotencySweep)
	go cache.Run(ctx)

	srvBase := worker.NewServer(botType, ops, cache, logger)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	srvBase.RegisterRoutes(engine)

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
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("worker listening")
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
	logger.Info().Msg("worker stopped")
}
