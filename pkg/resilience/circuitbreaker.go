// Package resilience provides fault-tolerance primitives used around the
// embedding provider and other remote calls: a circuit breaker and an
// exponential-backoff retry helper.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker open")

// State is the breaker phase.
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
	}
	return "unknown"
}

// BreakerConfig controls when the breaker trips and how it recovers.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenProbes   int
}

// Breaker trips open after FailureThreshold consecutive failures. After
// ResetTimeout it allows up to HalfOpenProbes probe calls; a successful
// probe closes the circuit, a failed one re-opens it.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	failures  int
	probes    int
	trippedAt time.Time
}

// NewBreaker constructs a Breaker, filling in defaults for zero values.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		logger: slog.Default().With("component", "breaker", "name", name),
	}
}

// Do runs fn if the circuit allows it and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current breaker phase.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if time.Since(b.trippedAt) < b.cfg.ResetTimeout {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
		}
		b.state = StateHalfOpen
		b.probes = 0
		b.logger.Info("circuit half-open")
		fallthrough
	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenProbes {
			return fmt.Errorf("%w: %s (probe limit)", ErrCircuitOpen, b.name)
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.state == StateHalfOpen {
			b.logger.Info("circuit closed")
		}
		b.state = StateClosed
		b.failures = 0
		b.probes = 0
		return
	}
	b.failures++
	b.trippedAt = time.Now()
	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != StateOpen {
			b.logger.Warn("circuit opened", "consecutive_failures", b.failures)
		}
		b.state = StateOpen
	}
}
