package strategy

import (
	"fmt"
	"math"

	"tradingbot/src/indicators"
	"tradingbot/src/marketdata"
	"tradingbot/src/model"
)

// MACDStrategy signals on the MACD line crossing its signal line. Confidence
// grows with the histogram magnitude at the crossover.
type MACDStrategy struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// NewMACDStrategy builds the strategy from numeric parameters: fast_period
// (default 12), slow_period (default 26), signal_period (default 9).
func NewMACDStrategy(params map[string]float64) (*MACDStrategy, error) {
	s := &MACDStrategy{
		FastPeriod:   int(paramOr(params, "fast_period", 12)),
		SlowPeriod:   int(paramOr(params, "slow_period", 26)),
		SignalPeriod: int(paramOr(params, "signal_period", 9)),
	}

	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 || s.SignalPeriod <= 0 {
		return nil, fmt.Errorf("macd: all periods must be positive")
	}
	if s.FastPeriod >= s.SlowPeriod {
		return nil, fmt.Errorf("macd: fast period must be less than slow period")
	}
	return s, nil
}

func (s *MACDStrategy) Name() string { return "macd" }

func (s *MACDStrategy) MinBars() int { return s.SlowPeriod + s.SignalPeriod }

func (s *MACDStrategy) Evaluate(symbol string, bars []marketdata.Bar) (Signal, error) {
	if err := checkWindow(s, bars); err != nil {
		return Signal{}, err
	}

	closes := marketdata.Closes(bars)
	line, signalLine, _ := indicators.MACD(closes, s.FastPeriod, s.SlowPeriod, s.SignalPeriod)

	last := len(closes) - 1
	curLine, curSignal := line[last], signalLine[last]
	prevLine, prevSignal := line[last-1], signalLine[last-1]
	price := closes[last]

	if math.IsNaN(curLine) || math.IsNaN(curSignal) || math.IsNaN(prevLine) || math.IsNaN(prevSignal) {
		return hold(s.Name(), symbol, price), nil
	}

	if prevLine <= prevSignal && curLine > curSignal {
		confidence := clamp01(0.6 + math.Abs(curLine-curSignal)*0.1)
		return Signal{Symbol: symbol, Action: model.ActionBuy, Price: price, Confidence: confidence, Strategy: s.Name()}, nil
	}
	if prevLine >= prevSignal && curLine < curSignal {
		confidence := clamp01(0.6 + math.Abs(curLine-curSignal)*0.1)
		return Signal{Symbol: symbol, Action: model.ActionSell, Price: price, Confidence: confidence, Strategy: s.Name()}, nil
	}

	return hold(s.Name(), symbol, price), nil
}
