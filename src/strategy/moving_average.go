package strategy

import (
	"fmt"
	"math"

	"tradingbot/src/indicators"
	"tradingbot/src/marketdata"
	"tradingbot/src/model"
)

// MovingAverageCrossover signals on the fast average crossing the slow one:
// strictly below then at-or-above is a BUY edge, the mirror image a SELL
// edge. A bar where the averages are merely equal without a prior crossing
// produces no signal.
type MovingAverageCrossover struct {
	FastPeriod int
	SlowPeriod int
	UseEMA     bool
}

// NewMovingAverageCrossover builds the strategy from numeric parameters:
// fast_period (default 10), slow_period (default 30), ema (non-zero selects
// EMA instead of SMA).
func NewMovingAverageCrossover(params map[string]float64) (*MovingAverageCrossover, error) {
	s := &MovingAverageCrossover{
		FastPeriod: int(paramOr(params, "fast_period", 10)),
		SlowPeriod: int(paramOr(params, "slow_period", 30)),
		UseEMA:     paramOr(params, "ema", 0) != 0,
	}

	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 {
		return nil, fmt.Errorf("moving_average: periods must be positive")
	}
	if s.FastPeriod >= s.SlowPeriod {
		return nil, fmt.Errorf("moving_average: fast period must be less than slow period")
	}
	return s, nil
}

func (s *MovingAverageCrossover) Name() string { return "moving_average" }

func (s *MovingAverageCrossover) MinBars() int { return s.SlowPeriod + 1 }

func (s *MovingAverageCrossover) Evaluate(symbol string, bars []marketdata.Bar) (Signal, error) {
	if err := checkWindow(s, bars); err != nil {
		return Signal{}, err
	}

	closes := marketdata.Closes(bars)
	var fast, slow []float64
	if s.UseEMA {
		fast = indicators.EMA(closes, s.FastPeriod)
		slow = indicators.EMA(closes, s.SlowPeriod)
	} else {
		fast = indicators.SMA(closes, s.FastPeriod)
		slow = indicators.SMA(closes, s.SlowPeriod)
	}

	last := len(closes) - 1
	curFast, curSlow := fast[last], slow[last]
	prevFast, prevSlow := fast[last-1], slow[last-1]
	price := closes[last]

	if math.IsNaN(curFast) || math.IsNaN(curSlow) || math.IsNaN(prevFast) || math.IsNaN(prevSlow) {
		return hold(s.Name(), symbol, price), nil
	}

	if prevFast <= prevSlow && curFast > curSlow {
		return Signal{Symbol: symbol, Action: model.ActionBuy, Price: price, Confidence: 0.8, Strategy: s.Name()}, nil
	}
	if prevFast >= prevSlow && curFast < curSlow {
		return Signal{Symbol: symbol, Action: model.ActionSell, Price: price, Confidence: 0.8, Strategy: s.Name()}, nil
	}

	return hold(s.Name(), symbol, price), nil
}
