package cache

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("cache circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "closed"
}

// Breaker stops calling a failing store after Threshold consecutive
// failures and lets a single probe through once ResetTimeout has passed.
type Breaker struct {
	Threshold    int
	ResetTimeout time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
	now         func() time.Time
}

func NewBreaker(threshold int, resetTimeout time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

// Allow returns ErrCircuitOpen when the store must be skipped.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) <= b.ResetTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

// Record reports the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		switch b.state {
		case StateClosed:
			if b.failures >= b.Threshold {
				b.state = StateOpen
			}
		case StateHalfOpen:
			b.state = StateOpen
			b.probing = false
		}
		return
	}
	// Consecutive failures only.
	b.failures = 0
	b.state = StateClosed
	b.probing = false
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
