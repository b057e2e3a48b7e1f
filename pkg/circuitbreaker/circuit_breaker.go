package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the current mode of a breaker.
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
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker guards calls to an external service. After maxFailures consecutive
// failures it opens and rejects calls outright; once the cooldown passes it
// admits a few probe calls (half-open) and closes again when they succeed.
type Breaker struct {
	name          string
	maxFailures   uint32
	cooldown      time.Duration
	halfOpenProbe uint32

	mu              sync.Mutex
	state           State
	failures        uint32
	successes       uint32
	halfOpenCalls   uint32
	lastFailureTime time.Time

	logger *logrus.Logger
}

func New(name string, maxFailures uint32, cooldown time.Duration, logger *logrus.Logger) *Breaker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Breaker{
		name:          name,
		maxFailures:   maxFailures,
		cooldown:      cooldown,
		halfOpenProbe: 3,
		state:         StateClosed,
		logger:        logger,
	}
}

// Do executes fn when the breaker admits the call, recording the outcome.
// When the breaker is open an *OpenError is returned without calling fn.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.admit() {
		return &OpenError{Name: b.name, State: b.CurrentState()}
	}

	if err := fn(ctx); err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.lastFailureTime) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.halfOpenCalls = 0
		b.successes = 0
		b.logger.WithFields(logrus.Fields{
			"circuit_breaker": b.name,
			"state":           b.state.String(),
		}).Info("Circuit breaker transitioned to half-open")
		return true
	case StateHalfOpen:
		return b.halfOpenCalls < b.halfOpenProbe
	default:
		return false
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateHalfOpen {
		return
	}
	b.halfOpenCalls++
	b.successes++
	if b.successes >= b.halfOpenProbe {
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		b.halfOpenCalls = 0
		b.logger.WithFields(logrus.Fields{
			"circuit_breaker": b.name,
			"state":           b.state.String(),
		}).Info("Circuit breaker closed after successful recovery")
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.maxFailures {
			b.trip()
		}
	case StateHalfOpen:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.logger.WithFields(logrus.Fields{
		"circuit_breaker": b.name,
		"failures":        b.failures,
		"state":           b.state.String(),
	}).Warn("Circuit breaker opened due to failures")
}

// CurrentState returns the breaker's state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OpenError is returned when a call is rejected without being attempted.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

// IsOpenError reports whether err is a breaker rejection.
func IsOpenError(err error) bool {
	_, ok := err.(*OpenError)
	return ok
}
