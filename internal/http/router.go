// Package httpapi wires the orchestrator's HTTP transport (Gin) to the voice
// service, middleware, and route handlers. It centralizes tracing,
// correlation IDs, logging, panic recovery, metrics, CORS, and rate limiting
// for the command API.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mkaravel/go-voice-fleet/internal/config"
	"github.com/mkaravel/go-voice-fleet/internal/coordinator"
	"github.com/mkaravel/go-voice-fleet/internal/http/handlers"
	"github.com/mkaravel/go-voice-fleet/internal/http/middleware"
	"github.com/mkaravel/go-voice-fleet/internal/observability"
	"github.com/mkaravel/go-voice-fleet/internal/services"
)

// RegisterRoutes attaches all middleware and endpoints to the engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: panic → JSON 500, after the logger
//  5. Body size limit
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS, gzip, security headers
func RegisterRoutes(r *gin.Engine, svc *services.VoiceService, coord *coordinator.Coordinator, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(observability.ServiceName(cfg.OTEL.ServiceName, "orchestrator")))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.LimitBody(1 << 20))
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.SecurityHeaders())

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(svc, coord)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		guilds := api.Group("/guilds/:id")
		guilds.POST("/join", h.Join)
		guilds.POST("/leave", h.Leave)
		guilds.POST("/volume", h.SetVolume)
		guilds.POST("/play", h.Play)
		guilds.POST("/say", h.Say)
		guilds.POST("/sound", h.Sound)
		guilds.GET("/status", h.Status)

		api.GET("/workers", h.Workers)
	}
}

// groupWithPrefix mounts the API group at prefix, treating "/" and "" as the
// engine root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
