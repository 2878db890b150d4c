package strategy

import (
	"fmt"

	"tradingbot/src/model"
)

type constructor func(params map[string]float64) (Strategy, error)

var registry = map[string]constructor{
	"moving_average": func(p map[string]float64) (Strategy, error) { return NewMovingAverageCrossover(p) },
	"rsi":            func(p map[string]float64) (Strategy, error) { return NewRSIStrategy(p) },
	"macd":           func(p map[string]float64) (Strategy, error) { return NewMACDStrategy(p) },
	"bollinger_bands": func(p map[string]float64) (Strategy, error) {
		return NewBollingerBandsStrategy(p)
	},
}

// New resolves a strategy configuration into a ready instance. Unrecognized
// identifiers fail with ErrUnknownStrategy; bad parameters fail with the
// strategy's own validation error.
func New(cfg model.StrategyConfig) (Strategy, error) {
	build, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Name)
	}
	return build(cfg.Params)
}

// Known reports whether the identifier is registered.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Descriptor describes an available strategy for the API listing.
type Descriptor struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	DefaultParams map[string]float64 `json:"default_params"`
}

// List returns the available strategies with their default parameters,
// in a stable order.
func List() []Descriptor {
	return []Descriptor{
		{
			Name:          "moving_average",
			Description:   "Fast/slow moving average crossover",
			DefaultParams: map[string]float64{"fast_period": 10, "slow_period": 30, "ema": 0},
		},
		{
			Name:          "rsi",
			Description:   "RSI leaving oversold/overbought zones",
			DefaultParams: map[string]float64{"period": 14, "oversold": 30, "overbought": 70},
		},
		{
			Name:          "macd",
			Description:   "MACD line crossing its signal line",
			DefaultParams: map[string]float64{"fast_period": 12, "slow_period": 26, "signal_period": 9},
		},
		{
			Name:          "bollinger_bands",
			Description:   "Price re-entering the Bollinger bands",
			DefaultParams: map[string]float64{"period": 20, "std_dev": 2},
		},
	}
}
