package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	bars  []Bar
	err   error
	delay time.Duration
	calls int
}

func (s *scriptedProvider) Bars(_ context.Context, _, _ string, _ int) ([]Bar, error) {
	s.calls++
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.bars, s.err
}

func oneBar() []Bar {
	return []Bar{{Time: time.Now().UTC(), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}}
}

func TestGuardPassesThrough(t *testing.T) {
	inner := &scriptedProvider{bars: oneBar()}
	g := NewGuard(inner, GuardConfig{})

	bars, err := g.Bars(context.Background(), "BTC_USDT", "1h", 1)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestGuardEmptyWindowIsUnavailable(t *testing.T) {
	g := NewGuard(&scriptedProvider{}, GuardConfig{})

	_, err := g.Bars(context.Background(), "BTC_USDT", "1h", 1)
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestGuardTimesOutSlowProvider(t *testing.T) {
	inner := &scriptedProvider{bars: oneBar(), delay: 200 * time.Millisecond}
	g := NewGuard(inner, GuardConfig{Timeout: 20 * time.Millisecond})

	_, err := g.Bars(context.Background(), "BTC_USDT", "1h", 1)
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestGuardOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedProvider{err: errors.New("exchange down")}
	g := NewGuard(inner, GuardConfig{FailureThreshold: 3, OpenFor: time.Minute})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := g.Bars(ctx, "BTC_USDT", "1h", 1)
		require.Error(t, err)
	}
	assert.Equal(t, 3, inner.calls)

	// Breaker is open now: the provider is not called again.
	_, err := g.Bars(ctx, "BTC_USDT", "1h", 1)
	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, 3, inner.calls)
}

func TestGuardHonorsCallerContext(t *testing.T) {
	inner := &scriptedProvider{bars: oneBar()}
	g := NewGuard(inner, GuardConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Bars(ctx, "BTC_USDT", "1h", 1)
	require.Error(t, err)
}
