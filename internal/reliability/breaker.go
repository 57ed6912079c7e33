package reliability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the position of a circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a failing queue manager until a cooldown has passed,
// then lets a limited number of probes through.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
	requests  int64
	rejected  int64

	name             string
	failureThreshold int
	successThreshold int
	halfOpenProbes   int
	cooldown         time.Duration
	failure          func(error) bool
	now              func() time.Time
	logger           *slog.Logger
}

// BreakerOption configures a Breaker
type BreakerOption func(*Breaker)

// WithName names the breaker in logs and errors
func WithName(name string) BreakerOption {
	return func(b *Breaker) {
		b.name = name
	}
}

// WithFailureThreshold sets the consecutive failures that open the circuit
func WithFailureThreshold(n int) BreakerOption {
	return func(b *Breaker) {
		b.failureThreshold = n
	}
}

// WithSuccessThreshold sets the probe successes that close the circuit
func WithSuccessThreshold(n int) BreakerOption {
	return func(b *Breaker) {
		b.successThreshold = n
	}
}

// WithHalfOpenProbes limits concurrent calls while half-open
func WithHalfOpenProbes(n int) BreakerOption {
	return func(b *Breaker) {
		b.halfOpenProbes = n
	}
}

// WithCooldown sets how long the circuit stays open
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		b.cooldown = d
	}
}

// WithFailurePredicate decides which errors count as failures
func WithFailurePredicate(fn func(error) bool) BreakerOption {
	return func(b *Breaker) {
		b.failure = fn
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		b.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// NewBreaker creates a closed breaker
func NewBreaker(options ...BreakerOption) *Breaker {
	b := &Breaker{
		name:             "default",
		failureThreshold: 5,
		successThreshold: 2,
		halfOpenProbes:   1,
		cooldown:         30 * time.Second,
		failure:          isFailure,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Execute calls fn unless the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests++
	switch b.state {
	case StateOpen:
		if b.now().Before(b.openedAt.Add(b.cooldown)) {
			b.rejected++
			return b.openError()
		}
		b.transition(StateHalfOpen)
		b.probes = 1
		return nil
	case StateHalfOpen:
		if b.probes >= b.halfOpenProbes {
			b.rejected++
			return b.openError()
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probes--
	}

	if b.failure(err) {
		b.failures++
		switch {
		case b.state == StateHalfOpen:
			b.trip(err)
		case b.state == StateClosed && b.failures >= b.failureThreshold:
			b.trip(err)
		}
		return
	}

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) trip(err error) {
	b.openedAt = b.now()
	b.transition(StateOpen)
	b.logger.Warn("circuit opened", "circuit", b.name, "failures", b.failures, "error", err)
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.successes = 0
	if to == StateClosed {
		b.failures = 0
	}
	if to != StateHalfOpen {
		b.probes = 0
	}
	b.logger.Info("circuit state changed", "circuit", b.name, "from", from.String(), "to", to.String())
}

func (b *Breaker) openError() error {
	return &CircuitOpenError{
		Name:      b.name,
		State:     b.state,
		Failures:  b.failures,
		NextProbe: b.openedAt.Add(b.cooldown),
	}
}

// State returns the current position
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerStats is a snapshot of a breaker
type BreakerStats struct {
	Name     string
	State    State
	Failures int
	Requests int64
	Rejected int64
	OpenedAt time.Time
}

// Stats returns a snapshot
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		Name:     b.name,
		State:    b.state,
		Failures: b.failures,
		Requests: b.requests,
		Rejected: b.rejected,
		OpenedAt: b.openedAt,
	}
}

// Reset closes the circuit
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
	b.failures = 0
}
