package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Guard wraps a Provider with a per-call timeout, a circuit breaker and a
// rate limiter. Breaker-open, limiter and timeout failures all surface as
// ErrDataUnavailable so the runtime degrades that symbol to HOLD for the
// cycle instead of faulting the whole loop.
type Guard struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

// GuardConfig tunes the wrapper. Zero values fall back to defaults.
type GuardConfig struct {
	Timeout          time.Duration
	RequestsPerSec   float64
	Burst            int
	FailureThreshold uint32
	OpenFor          time.Duration
}

func NewGuard(inner Provider, cfg GuardConfig) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "marketdata",
		Timeout: cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logger.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("market data breaker state change")
		},
	})

	return &Guard{
		inner:   inner,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		timeout: cfg.Timeout,
	}
}

type barsResult struct {
	bars []Bar
	err  error
}

func (g *Guard) Bars(ctx context.Context, symbol, timeframe string, lookback int) ([]Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", ErrDataUnavailable, err)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		// Providers that ignore ctx (exchange SDKs) are still bounded:
		// the fetch runs in its own goroutine and we give up at timeout.
		ch := make(chan barsResult, 1)
		go func() {
			bars, err := g.inner.Bars(ctx, symbol, timeframe, lookback)
			ch <- barsResult{bars: bars, err: err}
		}()

		select {
		case res := <-ch:
			return res.bars, res.err
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: fetch timed out for %s", ErrDataUnavailable, symbol)
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: breaker open", ErrDataUnavailable)
		}
		return nil, err
	}

	bars, ok := out.([]Bar)
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty window for %s", ErrDataUnavailable, symbol)
	}
	return bars, nil
}
