// Package coordinator maintains the orchestrator's per-worker control state:
// one HTTP client, one circuit breaker, and one advisory health record per
// BotType, held in fixed tables indexed by the type. It is the single
// component allowed to mutate circuit and health state; every outbound call
// from a command handler is gated through Execute.
//
// Health polling runs on an independent timer per BotType and never depends
// on user traffic. Health status is advisory: the circuit opens from call
// failures (and from health checks only once a worker is considered down,
// by feeding the same failure counter).
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkaravel/go-voice-fleet/internal/breaker"
	"github.com/mkaravel/go-voice-fleet/internal/client"
	"github.com/mkaravel/go-voice-fleet/internal/config"
	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

// healthEntry pairs a health record with its own lock so polling one worker
// never contends with reads about another.
type healthEntry struct {
	mu  sync.Mutex
	rec domain.HealthRecord
}

// Coordinator owns the per-worker clients, breakers, and health records.
type Coordinator struct {
	cfg config.CoordinatorConfig
	log zerolog.Logger

	clients  [domain.NumBotTypes]*client.Client
	breakers [domain.NumBotTypes]*breaker.Breaker
	health   [domain.NumBotTypes]healthEntry

	tracer trace.Tracer

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// probe is the readiness check used by the polling loop. Overridable in
	// tests; defaults to the worker client's Ready call.
	probe func(ctx context.Context, bt domain.BotType) error
}

// New constructs a Coordinator for the given worker clients. Every BotType
// must have a client; missing entries are a programming error surfaced by
// panic at startup, not at call time.
func New(cfg config.CoordinatorConfig, clients map[domain.BotType]*client.Client, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		log:    log.With().Str("component", "coordinator").Logger(),
		tracer: otel.Tracer("coordinator"),
	}
	for _, bt := range domain.AllBotTypes {
		cl, ok := clients[bt]
		if !ok {
			panic(fmt.Sprintf("coordinator: no client configured for %s", bt))
		}
		c.clients[bt] = cl

		bt := bt
		c.breakers[bt] = breaker.New(breaker.Config{
			FailureThreshold: cfg.FailureThreshold,
			CoolDown:         cfg.CoolDown,
			MaxCoolDown:      cfg.MaxCoolDown,
			OnStateChange: func(from, to breaker.State) {
				c.log.Warn().
					Stringer("bot_type", bt).
					Stringer("from", from).
					Stringer("to", to).
					Msg("circuit state change")
				circuitState.WithLabelValues(bt.String()).Set(float64(to))
				circuitTransitions.WithLabelValues(bt.String(), to.String()).Inc()
			},
		})
		c.health[bt].rec = domain.HealthRecord{Status: domain.HealthHealthy}
	}
	c.probe = func(ctx context.Context, bt domain.BotType) error {
		_, err := c.clients[bt].Ready(ctx)
		return err
	}
	return c
}

// Client returns the worker client for a BotType. Callers must still route
// the actual call through Execute so the breaker sees the outcome.
func (c *Coordinator) Client(bt domain.BotType) *client.Client { return c.clients[bt] }

// Execute gates fn behind the worker's circuit breaker and reports the
// outcome back into it. When the circuit is open, fn is never invoked and
// breaker.ErrOpen is returned so callers can distinguish fast-fail from a
// genuine upstream failure.
//
// Outcome accounting follows the propagation policy: an upstream failure
// (network/5xx after client retries) counts as a breaker failure; any
// response from the worker, including 4xx validation and not-found results,
// counts as evidence of availability.
func (c *Coordinator) Execute(ctx context.Context, bt domain.BotType, op string, fn func(ctx context.Context) error) error {
	br := c.breakers[bt]
	if err := br.Allow(); err != nil {
		workerCalls.WithLabelValues(bt.String(), op, "circuit_open").Inc()
		return err
	}

	ctx, span := c.tracer.Start(ctx, "worker."+op,
		trace.WithAttributes(
			attribute.String("bot_type", bt.String()),
			attribute.String("worker.op", op),
		))
	start := time.Now()
	err := fn(ctx)
	span.End()

	upstream := client.IsUpstream(err)
	br.Report(!upstream)

	outcome := "success"
	if err != nil {
		if upstream {
			outcome = "upstream_error"
		} else {
			outcome = "rejected"
		}
	}
	workerCalls.WithLabelValues(bt.String(), op, outcome).Inc()
	callDuration.WithLabelValues(bt.String(), op).Observe(time.Since(start).Seconds())
	return err
}

// Health returns a copy of the advisory health record for a BotType.
func (c *Coordinator) Health(bt domain.BotType) domain.HealthRecord {
	e := &c.health[bt]
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec
}

// Circuit returns a diagnostics snapshot of the BotType's breaker.
func (c *Coordinator) Circuit(bt domain.BotType) breaker.Snapshot {
	return c.breakers[bt].Snapshot()
}

// WorkerDiagnostics is the per-worker view exposed by the orchestrator's
// diagnostics endpoint.
type WorkerDiagnostics struct {
	BotType domain.BotType      `json:"botType"`
	Health  domain.HealthRecord `json:"health"`
	Circuit breaker.Snapshot    `json:"circuit"`
}

// Diagnostics reports health and circuit state for every worker.
func (c *Coordinator) Diagnostics() []WorkerDiagnostics {
	out := make([]WorkerDiagnostics, 0, domain.NumBotTypes)
	for _, bt := range domain.AllBotTypes {
		out = append(out, WorkerDiagnostics{
			BotType: bt,
			Health:  c.Health(bt),
			Circuit: c.Circuit(bt),
		})
	}
	return out
}

// Start launches one health-polling goroutine per BotType. Polling continues
// until Stop is called or ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	for _, bt := range domain.AllBotTypes {
		c.wg.Add(1)
		go c.pollLoop(ctx, bt)
	}
	c.log.Info().Dur("interval", c.cfg.PollInterval).Msg("health polling started")
}

// Stop halts the polling loops and waits for them to exit.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.log.Info().Msg("health polling stopped")
}

// pollLoop drives one worker's readiness probe on its own ticker.
func (c *Coordinator) pollLoop(ctx context.Context, bt domain.BotType) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	// Check once at startup so records are populated before traffic arrives.
	c.checkOnce(ctx, bt)

	for {
		select {
		case <-ticker.C:
			c.checkOnce(ctx, bt)
		case <-ctx.Done():
			return
		}
	}
}

// checkOnce performs a single readiness probe and folds the result into the
// worker's health record. Probe deadline is bounded independently of the
// poll interval.
func (c *Coordinator) checkOnce(ctx context.Context, bt domain.BotType) {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := c.probe(probeCtx, bt)
	cancel()

	e := &c.health[bt]
	e.mu.Lock()
	e.rec.LastCheckedAt = time.Now().UTC()
	var feedBreaker bool
	if err == nil {
		e.rec.ConsecutiveFailures = 0
		e.rec.Status = domain.HealthHealthy
	} else {
		e.rec.ConsecutiveFailures++
		switch {
		case e.rec.ConsecutiveFailures >= c.cfg.DownAfter:
			e.rec.Status = domain.HealthDown
			// A worker failing readiness checks is also protected from
			// user-triggered traffic: feed the breaker's failure counter.
			feedBreaker = true
		case e.rec.ConsecutiveFailures >= c.cfg.DegradedAfter:
			e.rec.Status = domain.HealthDegraded
		}
	}
	status := e.rec.Status
	fails := e.rec.ConsecutiveFailures
	e.mu.Unlock()

	healthStatus.WithLabelValues(bt.String()).Set(healthGaugeValue(status))

	if err != nil {
		c.log.Warn().
			Err(err).
			Stringer("bot_type", bt).
			Str("status", string(status)).
			Int("consecutive_failures", fails).
			Msg("health check failed")
	}
	if feedBreaker {
		c.breakers[bt].Report(false)
	}
}

// healthGaugeValue maps statuses onto a monotone scale for dashboards.
func healthGaugeValue(s domain.HealthStatus) float64 {
	switch s {
	case domain.HealthHealthy:
		return 0
	case domain.HealthDegraded:
		return 1
	default:
		return 2
	}
}
