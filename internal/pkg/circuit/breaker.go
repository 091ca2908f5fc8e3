package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"tradegate/internal/logger"
)

// ErrOpen is returned by Do while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker trips after threshold consecutive failures and lets a single probe
// through once cooldown has elapsed.
type Breaker struct {
	mu            sync.Mutex
	notifyMu      sync.Mutex
	name          string
	state         State
	failures      int
	threshold     int
	cooldown      time.Duration
	lastFailure   time.Time
	probing       bool
	now           func() time.Time
	onStateChange func(name string, from, to State)
}

func New(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
	}
}

func (b *Breaker) SetStateChangeHandler(handler func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = handler
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn unless the breaker is open. fn's error counts as a failure.
func (b *Breaker) Do(fn func() error) error {
	return b.DoContext(context.Background(), func(context.Context) error { return fn() })
}

// DoContext is Do for calls bound to ctx. A failure after the caller
// cancelled ctx is not counted; an expired deadline is.
func (b *Breaker) DoContext(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow() {
		return ErrOpen
	}
	err := fn(ctx)
	switch {
	case err == nil:
		b.recordSuccess()
	case errors.Is(ctx.Err(), context.Canceled):
		b.release()
	default:
		b.recordFailure()
	}
	return err
}

type stateChange struct {
	from, to State
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	var ev *stateChange
	ok := true
	switch b.state {
	case StateClosed:
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cooldown {
			ok = false
			break
		}
		ev = b.transition(StateHalfOpen)
		b.probing = true
	default:
		// one probe at a time while half-open
		if b.probing {
			ok = false
			break
		}
		b.probing = true
	}
	b.unlockAndNotify(ev)
	return ok
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	var ev *stateChange
	b.failures = 0
	b.probing = false
	if b.state == StateHalfOpen {
		ev = b.transition(StateClosed)
	}
	b.unlockAndNotify(ev)
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	var ev *stateChange
	b.failures++
	b.lastFailure = b.now()
	b.probing = false

	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			ev = b.transition(StateOpen)
		}
	case StateHalfOpen:
		ev = b.transition(StateOpen)
	}
	b.unlockAndNotify(ev)
}

// release frees a half-open probe slot without judging the outcome.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) *stateChange {
	from := b.state
	b.state = to
	return &stateChange{from: from, to: to}
}

// unlockAndNotify releases mu and reports ev. notifyMu is taken before mu is
// released, so handlers observe transitions in the order they happened and
// may still read the breaker.
func (b *Breaker) unlockAndNotify(ev *stateChange) {
	if ev == nil {
		b.mu.Unlock()
		return
	}
	handler := b.onStateChange
	failures := b.failures
	b.notifyMu.Lock()
	b.mu.Unlock()
	defer b.notifyMu.Unlock()

	if handler != nil {
		handler(b.name, ev.from, ev.to)
		return
	}
	logger.Warnf("[circuit] %s state change: %s -> %s (failures=%d/%d, cooldown=%s)",
		b.name, ev.from, ev.to, failures, b.threshold, b.cooldown)
}
