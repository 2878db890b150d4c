package strategy

import (
	"fmt"
	"math"

	"tradingbot/src/indicators"
	"tradingbot/src/marketdata"
	"tradingbot/src/model"
)

// BollingerBandsStrategy signals on price re-entering the bands: crossing up
// through the lower band is a BUY, crossing down through the upper band a
// SELL. Confidence grows with the distance from the middle band.
type BollingerBandsStrategy struct {
	Period int
	StdDev float64
}

// NewBollingerBandsStrategy builds the strategy from numeric parameters:
// period (default 20), std_dev (default 2).
func NewBollingerBandsStrategy(params map[string]float64) (*BollingerBandsStrategy, error) {
	s := &BollingerBandsStrategy{
		Period: int(paramOr(params, "period", 20)),
		StdDev: paramOr(params, "std_dev", 2),
	}

	if s.Period <= 0 {
		return nil, fmt.Errorf("bollinger_bands: period must be positive")
	}
	if s.StdDev <= 0 {
		return nil, fmt.Errorf("bollinger_bands: standard deviation must be positive")
	}
	return s, nil
}

func (s *BollingerBandsStrategy) Name() string { return "bollinger_bands" }

func (s *BollingerBandsStrategy) MinBars() int { return s.Period + 1 }

func (s *BollingerBandsStrategy) Evaluate(symbol string, bars []marketdata.Bar) (Signal, error) {
	if err := checkWindow(s, bars); err != nil {
		return Signal{}, err
	}

	closes := marketdata.Closes(bars)
	upper, middle, lower := indicators.BollingerBands(closes, s.Period, s.StdDev)

	last := len(closes) - 1
	price, prevPrice := closes[last], closes[last-1]
	curUpper, curMiddle, curLower := upper[last], middle[last], lower[last]
	prevUpper, prevLower := upper[last-1], lower[last-1]

	if math.IsNaN(curUpper) || math.IsNaN(curLower) || math.IsNaN(prevUpper) || math.IsNaN(prevLower) {
		return hold(s.Name(), symbol, price), nil
	}

	if prevPrice <= prevLower && price > curLower {
		distancePct := (curMiddle - price) / curMiddle * 100
		confidence := clamp01(0.6 + distancePct/10)
		return Signal{Symbol: symbol, Action: model.ActionBuy, Price: price, Confidence: confidence, Strategy: s.Name()}, nil
	}
	if prevPrice >= prevUpper && price < curUpper {
		distancePct := (price - curMiddle) / curMiddle * 100
		confidence := clamp01(0.6 + distancePct/10)
		return Signal{Symbol: symbol, Action: model.ActionSell, Price: price, Confidence: confidence, Strategy: s.Name()}, nil
	}

	return hold(s.Name(), symbol, price), nil
}
