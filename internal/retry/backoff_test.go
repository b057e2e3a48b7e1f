package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("still down")
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastPolicy().Do(ctx, func() error {
		return errors.New("never reached")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  5,
	}
	assert.Equal(t, 100*time.Millisecond, p.delayFor(1))
	assert.Equal(t, 200*time.Millisecond, p.delayFor(2))
	assert.Equal(t, 300*time.Millisecond, p.delayFor(3))
	assert.Equal(t, 300*time.Millisecond, p.delayFor(4))
}

func TestDelayJitterStaysInBounds(t *testing.T) {
	p := Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  3,
		Jitter:       true,
	}
	for i := 0; i < 50; i++ {
		d := p.delayFor(2)
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}
