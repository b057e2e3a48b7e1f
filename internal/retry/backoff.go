package retry

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Policy describes exponential backoff behaviour for a retried operation.
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
	Jitter       bool
}

// DefaultPolicy is tuned for startup dependencies such as opening the database.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  3,
		Jitter:       true,
	}
}

// Do runs operation until it succeeds, the attempts are exhausted, or the
// context is cancelled. The last operation error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delayFor(attempt)):
		}
	}

	return lastErr
}

func (p Policy) delayFor(attempt int) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
	}
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		// +-25% randomness spreads out concurrent restarts.
		jitter := delay * 0.25
		delay += (secureFloat64() - 0.5) * 2 * jitter
		if delay < 0 {
			delay = float64(p.InitialDelay)
		}
		if delay > float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
		}
	}

	return time.Duration(delay)
}

func secureFloat64() float64 {
	upper := big.NewInt(0).SetUint64(math.MaxUint64)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return float64(time.Now().UnixNano()%1000000) / 1000000.0
	}
	return float64(n.Uint64()) / float64(math.MaxUint64)
}
