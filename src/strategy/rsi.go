package strategy

import (
	"fmt"
	"math"

	"tradingbot/src/indicators"
	"tradingbot/src/marketdata"
	"tradingbot/src/model"
)

// RSIStrategy signals on the RSI leaving its extreme zones: crossing up
// through the oversold level is a BUY, crossing down through the overbought
// level a SELL. Confidence scales with how deep into the zone the previous
// bar was.
type RSIStrategy struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSIStrategy builds the strategy from numeric parameters: period
// (default 14), oversold (default 30), overbought (default 70).
func NewRSIStrategy(params map[string]float64) (*RSIStrategy, error) {
	s := &RSIStrategy{
		Period:     int(paramOr(params, "period", 14)),
		Oversold:   paramOr(params, "oversold", 30),
		Overbought: paramOr(params, "overbought", 70),
	}

	if s.Period <= 0 {
		return nil, fmt.Errorf("rsi: period must be positive")
	}
	if !(0 < s.Oversold && s.Oversold < s.Overbought && s.Overbought < 100) {
		return nil, fmt.Errorf("rsi: invalid oversold/overbought levels")
	}
	return s, nil
}

func (s *RSIStrategy) Name() string { return "rsi" }

func (s *RSIStrategy) MinBars() int { return s.Period + 2 }

func (s *RSIStrategy) Evaluate(symbol string, bars []marketdata.Bar) (Signal, error) {
	if err := checkWindow(s, bars); err != nil {
		return Signal{}, err
	}

	closes := marketdata.Closes(bars)
	rsi := indicators.RSI(closes, s.Period)

	last := len(closes) - 1
	cur, prev := rsi[last], rsi[last-1]
	price := closes[last]

	if math.IsNaN(cur) || math.IsNaN(prev) {
		return hold(s.Name(), symbol, price), nil
	}

	if prev <= s.Oversold && cur > s.Oversold {
		confidence := clamp01((s.Oversold - prev + 5) / 10)
		return Signal{Symbol: symbol, Action: model.ActionBuy, Price: price, Confidence: confidence, Strategy: s.Name()}, nil
	}
	if prev >= s.Overbought && cur < s.Overbought {
		confidence := clamp01((prev - s.Overbought + 5) / 10)
		return Signal{Symbol: symbol, Action: model.ActionSell, Price: price, Confidence: confidence, Strategy: s.Name()}, nil
	}

	return hold(s.Name(), symbol, price), nil
}
