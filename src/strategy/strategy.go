// Package strategy turns price history into BUY/SELL/HOLD signals.
// Every strategy is a pure function of its input window; all state lives
// with the caller.
package strategy

import (
	"errors"
	"fmt"

	"tradingbot/src/marketdata"
	"tradingbot/src/model"
)

// ErrInsufficientData means the window is shorter than the strategy's
// minimum lookback. Callers treat it as HOLD for the cycle.
var ErrInsufficientData = errors.New("insufficient data for strategy lookback")

// ErrUnknownStrategy means the configured identifier is not registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Signal is a single strategy recommendation for one symbol.
type Signal struct {
	Symbol     string
	Action     string // model.ActionBuy / ActionSell / ActionHold
	Price      float64
	Confidence float64
	Strategy   string
}

// Strategy evaluates a price window into a signal. Implementations are
// stateless and safe for concurrent use.
type Strategy interface {
	Name() string
	// MinBars is the shortest window Evaluate accepts.
	MinBars() int
	Evaluate(symbol string, bars []marketdata.Bar) (Signal, error)
}

func hold(name, symbol string, price float64) Signal {
	return Signal{Symbol: symbol, Action: model.ActionHold, Price: price, Confidence: 0, Strategy: name}
}

func lastClose(bars []marketdata.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func checkWindow(s Strategy, bars []marketdata.Bar) error {
	if len(bars) < s.MinBars() {
		return fmt.Errorf("%w: %s needs %d bars, got %d", ErrInsufficientData, s.Name(), s.MinBars(), len(bars))
	}
	return nil
}

// paramOr reads a numeric parameter with a default.
func paramOr(params map[string]float64, key string, def float64) float64 {
	if params == nil {
		return def
	}
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
