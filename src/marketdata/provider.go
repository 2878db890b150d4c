// Package marketdata supplies OHLC price history to the bot runtimes.
package marketdata

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable signals that the provider could not return bars for the
// symbol this cycle. The runtime treats it as a per-symbol failure.
var ErrDataUnavailable = errors.New("market data unavailable")

// Bar is one OHLC candle. Series are always ascending by time.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider fetches recent price history for a symbol.
type Provider interface {
	// Bars returns up to lookback bars for the symbol at the given
	// timeframe ("1m", "1h", "4h", "1d"), oldest first.
	Bars(ctx context.Context, symbol, timeframe string, lookback int) ([]Bar, error)
}

// ValidTimeframe reports whether every provider understands the timeframe.
func ValidTimeframe(timeframe string) bool {
	switch timeframe {
	case "1m", "1h", "4h", "1d":
		return true
	}
	return false
}

// Closes extracts the closing-price series from a bar window.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
