// Package breaker implements the per-worker circuit breaker that gates every
// outbound call from the orchestrator. The breaker is the enforcement
// mechanism deciding whether a call is attempted at all; advisory health
// status lives elsewhere and only feeds the failure counters.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow when the circuit is open and the call must be
// short-circuited locally without a network attempt. Callers can match it
// with errors.Is to distinguish fast-fail from a genuine upstream failure.
var ErrOpen = errors.New("worker unavailable: circuit open")

// State is the breaker's position.
type State int

const (
	// Closed passes calls through normally.
	Closed State = iota
	// Open short-circuits every call locally.
	Open
	// HalfOpen allows exactly one probe call through.
	HalfOpen
)

// String returns the conventional lowercase state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a Breaker. Zero values fall back to the defaults noted below.
type Config struct {
	// FailureThreshold is the number of consecutive call failures that opens
	// the circuit. Default 5.
	FailureThreshold int
	// CoolDown is the open interval before a probe is allowed. Default 15s.
	CoolDown time.Duration
	// MaxCoolDown caps the cool-down as it doubles on successive reopenings.
	// Default 2m.
	MaxCoolDown time.Duration
	// OnStateChange, when set, is invoked (synchronously, with the lock
	// released) on every transition.
	OnStateChange func(from, to State)
}

// Breaker is a single worker's circuit. Safe for concurrent use; the
// open/closed transition is applied exactly once under the mutex no matter
// how many callers race into it.
type Breaker struct {
	mu sync.Mutex

	state      State
	failures   int
	openedAt   time.Time
	coolDown   time.Duration
	reopenings int
	probing    bool

	threshold     int
	baseCoolDown  time.Duration
	maxCoolDown   time.Duration
	onStateChange func(from, to State)

	now func() time.Time // test seam
}

// New constructs a closed Breaker from cfg.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 15 * time.Second
	}
	if cfg.MaxCoolDown < cfg.CoolDown {
		cfg.MaxCoolDown = 2 * time.Minute
		if cfg.MaxCoolDown < cfg.CoolDown {
			cfg.MaxCoolDown = cfg.CoolDown
		}
	}
	return &Breaker{
		state:         Closed,
		threshold:     cfg.FailureThreshold,
		coolDown:      cfg.CoolDown,
		baseCoolDown:  cfg.CoolDown,
		maxCoolDown:   cfg.MaxCoolDown,
		onStateChange: cfg.OnStateChange,
		now:           time.Now,
	}
}

// Allow reports whether a call may proceed. It returns nil when the call is
// permitted and ErrOpen when it must be rejected locally.
//
// When the cool-down of an open circuit has elapsed, the first caller to
// arrive becomes the half-open probe; concurrent callers during the probe
// window are rejected until the probe's result is reported.
func (b *Breaker) Allow() error {
	b.mu.Lock()

	switch b.state {
	case Closed:
		b.mu.Unlock()
		return nil
	case Open:
		if b.now().Sub(b.openedAt) < b.coolDown {
			b.mu.Unlock()
			return ErrOpen
		}
		// Cool-down elapsed: this caller is the probe.
		notify := b.transition(HalfOpen)
		b.probing = true
		b.mu.Unlock()
		notify()
		return nil
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		// Probe slot free again (its owner reported); next caller takes it.
		b.probing = true
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	return ErrOpen
}

// Report records the outcome of a permitted call. A call that needed client
// retries to succeed still reports success; validation and not-found failures
// must not be reported at all (they say nothing about worker availability).
func (b *Breaker) Report(success bool) {
	b.mu.Lock()
	var notify func()

	if success {
		switch b.state {
		case Closed:
			b.failures = 0
		case HalfOpen:
			// Probe succeeded: recover fully.
			b.probing = false
			b.failures = 0
			b.reopenings = 0
			b.coolDown = b.baseCoolDown
			notify = b.transition(Closed)
		}
	} else {
		switch b.state {
		case Closed:
			b.failures++
			if b.failures >= b.threshold {
				b.openedAt = b.now()
				notify = b.transition(Open)
			}
		case HalfOpen:
			// Probe failed: reopen with a longer cool-down.
			b.probing = false
			b.reopenings++
			next := b.coolDown * 2
			if next > b.maxCoolDown {
				next = b.maxCoolDown
			}
			b.coolDown = next
			b.openedAt = b.now()
			notify = b.transition(Open)
		}
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// transition switches state and returns the callback to run once the lock is
// released. Must be called with the mutex held.
func (b *Breaker) transition(to State) func() {
	if b.state == to {
		return func() {}
	}
	from := b.state
	b.state = to
	if from == Open || to == Closed {
		b.failures = 0
	}
	if b.onStateChange == nil {
		return func() {}
	}
	cb := b.onStateChange
	return func() { cb(from, to) }
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time view of the breaker for diagnostics.
type Snapshot struct {
	State      State         `json:"state"`
	Failures   int           `json:"failure_count"`
	OpenedAt   time.Time     `json:"opened_at,omitempty"`
	CoolDown   time.Duration `json:"cool_down"`
	Reopenings int           `json:"reopenings"`
}

// Snapshot returns the current counters without disturbing them.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:      b.state,
		Failures:   b.failures,
		OpenedAt:   b.openedAt,
		CoolDown:   b.coolDown,
		Reopenings: b.reopenings,
	}
}

// MarshalText serializes the state name for JSON diagnostics payloads.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
