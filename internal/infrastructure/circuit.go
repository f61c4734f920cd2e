package infrastructure

import (
	"context"
	"errors"
	"sync"
	"time"

	"casepulse/internal/interfaces"
)

// ErrCircuitOpen is returned while the breaker is refusing model calls.
var ErrCircuitOpen = errors.New("llm circuit open")

const (
	circuitClosed   = "closed"
	circuitOpen     = "open"
	circuitHalfOpen = "half_open"
)

// CircuitBreaker trips after consecutive failures and lets a single probe
// through once the cooldown has passed.
type CircuitBreaker struct {
	mu        sync.Mutex
	state     string
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	now       func() time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		state:     circuitClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed right now.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cooldown {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	case circuitHalfOpen:
		// One probe at a time; further callers wait for its verdict.
		return false
	}
	return true
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = circuitClosed
	cb.failures = 0
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == circuitHalfOpen {
		cb.state = circuitOpen
		cb.openedAt = cb.now()
		return
	}
	cb.failures++
	if cb.failures >= cb.threshold {
		cb.state = circuitOpen
		cb.openedAt = cb.now()
	}
}

// State returns the current breaker state for status endpoints.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GuardedLLM wraps an LLM client with the breaker so repeated provider
// failures fall back instantly instead of burning the request timeout.
type GuardedLLM struct {
	inner   interfaces.LLMClient
	breaker *CircuitBreaker
}

func NewGuardedLLM(inner interfaces.LLMClient, breaker *CircuitBreaker) *GuardedLLM {
	return &GuardedLLM{inner: inner, breaker: breaker}
}

func (g *GuardedLLM) Complete(ctx context.Context, system, user string) (string, error) {
	if !g.breaker.Allow() {
		return "", ErrCircuitOpen
	}
	out, err := g.inner.Complete(ctx, system, user)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			g.breaker.RecordFailure()
		}
		return "", err
	}
	g.breaker.RecordSuccess()
	return out, nil
}

// Breaker exposes the underlying breaker for health reporting.
func (g *GuardedLLM) Breaker() *CircuitBreaker { return g.breaker }
