package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/breaker"
	"github.com/mkaravel/go-voice-fleet/internal/client"
	"github.com/mkaravel/go-voice-fleet/internal/config"
	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

func testConfig() config.CoordinatorConfig {
	return config.CoordinatorConfig{
		FailureThreshold: 3,
		CoolDown:         time.Second,
		MaxCoolDown:      8 * time.Second,
		PollInterval:     time.Hour, // loops driven manually in tests
		DegradedAfter:    2,
		DownAfter:        4,
	}
}

func testClients() map[domain.BotType]*client.Client {
	m := make(map[domain.BotType]*client.Client, domain.NumBotTypes)
	for _, bt := range domain.AllBotTypes {
		m[bt] = client.New(bt, "http://127.0.0.1:0", client.Config{}, zerolog.Nop())
	}
	return m
}

func upstreamErr(bt domain.BotType) error {
	return &client.UpstreamError{BotType: bt, Op: "join", Err: errors.New("connection refused")}
}

func TestNew_RequiresEveryBotType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing client")
		}
	}()
	clients := testClients()
	delete(clients, domain.BotSoundboard)
	New(testConfig(), clients, zerolog.Nop())
}

func TestExecute_OpensCircuitAfterConsecutiveUpstreamFailures(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error {
			return upstreamErr(domain.BotMusic)
		})
		if !client.IsUpstream(err) {
			t.Fatalf("call %d: err = %v, want upstream error passed through", i, err)
		}
	}

	// Circuit is open now: fn must not run.
	invoked := false
	err := c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("err = %v, want breaker.ErrOpen", err)
	}
	if invoked {
		t.Fatal("fn invoked while circuit open")
	}

	// Other workers are unaffected: the bulkhead is per BotType.
	if err := c.Execute(ctx, domain.BotSpeaker, "speak", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("speaker call rejected: %v", err)
	}
}

func TestExecute_TerminalResponsesDoNotOpenCircuit(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := c.Execute(ctx, domain.BotMusic, "volume", func(context.Context) error {
			return &client.StatusError{StatusCode: 400, Code: "bad_request", Message: "volume must be between 0.0 and 1.0"}
		})
		if err == nil {
			t.Fatal("expected StatusError passthrough")
		}
	}
	if got := c.Circuit(domain.BotMusic).State; got != breaker.Closed {
		t.Fatalf("circuit = %v after 4xx storm, want closed", got)
	}
}

func TestExecute_SuccessAfterRetriesCountsAsSuccess(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	ctx := context.Background()

	// Two failures, then a success (the client retried internally and won):
	// the consecutive counter must reset.
	c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error { return upstreamErr(domain.BotMusic) })
	c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error { return upstreamErr(domain.BotMusic) })
	c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error { return nil })
	c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error { return upstreamErr(domain.BotMusic) })
	c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error { return upstreamErr(domain.BotMusic) })

	if got := c.Circuit(domain.BotMusic).State; got != breaker.Closed {
		t.Fatalf("circuit = %v, want closed (success resets failures)", got)
	}
}

func TestHealthPolling_DegradedThenDown(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	probeErr := errors.New("probe refused")
	c.probe = func(context.Context, domain.BotType) error { return probeErr }
	ctx := context.Background()

	c.checkOnce(ctx, domain.BotSpeaker)
	if got := c.Health(domain.BotSpeaker); got.Status != domain.HealthHealthy || got.ConsecutiveFailures != 1 {
		t.Fatalf("after 1 failure: %+v", got)
	}

	c.checkOnce(ctx, domain.BotSpeaker)
	if got := c.Health(domain.BotSpeaker).Status; got != domain.HealthDegraded {
		t.Fatalf("after 2 failures: status = %s, want degraded", got)
	}

	c.checkOnce(ctx, domain.BotSpeaker)
	c.checkOnce(ctx, domain.BotSpeaker)
	if got := c.Health(domain.BotSpeaker).Status; got != domain.HealthDown {
		t.Fatalf("after 4 failures: status = %s, want down", got)
	}

	// Recovery resets the counter and the status.
	c.probe = func(context.Context, domain.BotType) error { return nil }
	c.checkOnce(ctx, domain.BotSpeaker)
	if got := c.Health(domain.BotSpeaker); got.Status != domain.HealthHealthy || got.ConsecutiveFailures != 0 {
		t.Fatalf("after recovery: %+v", got)
	}
}

func TestHealthPolling_DownFeedsBreaker(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	c.probe = func(context.Context, domain.BotType) error { return errors.New("probe refused") }
	ctx := context.Background()

	// DownAfter=4, so failures 4..6 each feed the breaker; threshold=3 opens it.
	for i := 0; i < 7; i++ {
		c.checkOnce(ctx, domain.BotMusic)
	}
	if got := c.Circuit(domain.BotMusic).State; got != breaker.Open {
		t.Fatalf("circuit = %v, want open (down health feeds failure counter)", got)
	}

	// Calls are now short-circuited without reaching the worker.
	err := c.Execute(ctx, domain.BotMusic, "join", func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("err = %v, want breaker.ErrOpen", err)
	}
}

func TestHealthPolling_HealthFailuresBelowDownDoNotTouchCircuit(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	c.probe = func(context.Context, domain.BotType) error { return errors.New("probe refused") }
	ctx := context.Background()

	// Three failures: degraded, but not down. Circuit stays untouched;
	// health is advisory and only call failures (or down status) count.
	for i := 0; i < 3; i++ {
		c.checkOnce(ctx, domain.BotSoundboard)
	}
	snap := c.Circuit(domain.BotSoundboard)
	if snap.State != breaker.Closed || snap.Failures != 0 {
		t.Fatalf("circuit touched by degraded health: %+v", snap)
	}
}

func TestDiagnostics_CoversEveryWorker(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	diags := c.Diagnostics()
	if len(diags) != domain.NumBotTypes {
		t.Fatalf("len = %d, want %d", len(diags), domain.NumBotTypes)
	}
	for i, d := range diags {
		if d.BotType != domain.AllBotTypes[i] {
			t.Fatalf("diags[%d].BotType = %s, want %s", i, d.BotType, domain.AllBotTypes[i])
		}
		if d.Circuit.State != breaker.Closed {
			t.Fatalf("fresh circuit = %v, want closed", d.Circuit.State)
		}
	}
}

func TestStartStop(t *testing.T) {
	c := New(testConfig(), testClients(), zerolog.Nop())
	var probes int32
	done := make(chan struct{})
	c.probe = func(context.Context, domain.BotType) error {
		if atomic.AddInt32(&probes, 1) == domain.NumBotTypes {
			close(done)
		}
		return nil
	}

	c.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("initial probes did not fire")
	}
	c.Stop()
}
