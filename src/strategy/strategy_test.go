package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingbot/src/marketdata"
	"tradingbot/src/model"
)

func barsFromCloses(closes ...float64) []marketdata.Bar {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]marketdata.Bar, len(closes))
	for i, c := range closes {
		bars[i] = marketdata.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestMovingAverageCrossoverBuy(t *testing.T) {
	s, err := NewMovingAverageCrossover(map[string]float64{"fast_period": 2, "slow_period": 4})
	require.NoError(t, err)

	series := []float64{10, 10, 10, 10, 12, 14}

	// Insufficient lookback fails with ErrInsufficientData.
	_, err = s.Evaluate("AAPL", barsFromCloses(series[:4]...))
	assert.ErrorIs(t, err, ErrInsufficientData)

	// The crossover bar: fast (10+12)/2 = 11 rises above slow 10.5 while the
	// prior bar had fast == slow.
	signal, err := s.Evaluate("AAPL", barsFromCloses(series[:5]...))
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, signal.Action)
	assert.Equal(t, 12.0, signal.Price)
	assert.Equal(t, 0.8, signal.Confidence)

	// One bar later the fast average is already above: no fresh edge.
	signal, err = s.Evaluate("AAPL", barsFromCloses(series...))
	require.NoError(t, err)
	assert.Equal(t, model.ActionHold, signal.Action)
}

func TestMovingAverageCrossoverSell(t *testing.T) {
	s, err := NewMovingAverageCrossover(map[string]float64{"fast_period": 2, "slow_period": 4})
	require.NoError(t, err)

	signal, err := s.Evaluate("AAPL", barsFromCloses(14, 14, 14, 14, 12, 10))
	require.NoError(t, err)
	assert.Equal(t, model.ActionSell, signal.Action)
}

func TestMovingAverageNoSignalOnEqualWithoutCrossing(t *testing.T) {
	s, err := NewMovingAverageCrossover(map[string]float64{"fast_period": 2, "slow_period": 4})
	require.NoError(t, err)

	signal, err := s.Evaluate("AAPL", barsFromCloses(10, 10, 10, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, model.ActionHold, signal.Action)
}

func TestMovingAverageParamValidation(t *testing.T) {
	_, err := NewMovingAverageCrossover(map[string]float64{"fast_period": 30, "slow_period": 10})
	assert.Error(t, err)

	_, err = NewMovingAverageCrossover(map[string]float64{"fast_period": 0, "slow_period": 10})
	assert.Error(t, err)
}

func TestRSIStrategyBuyOnOversoldExit(t *testing.T) {
	s, err := NewRSIStrategy(map[string]float64{"period": 3, "oversold": 30, "overbought": 70})
	require.NoError(t, err)

	// Steady decline keeps RSI pinned at 0, then a bounce lifts it back
	// through the oversold level.
	signal, err := s.Evaluate("AAPL", barsFromCloses(100, 96, 92, 88, 84, 95))
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, signal.Action)
	assert.InDelta(t, 1.0, signal.Confidence, 1e-9)
}

func TestRSIStrategySellOnOverboughtExit(t *testing.T) {
	s, err := NewRSIStrategy(map[string]float64{"period": 3, "oversold": 30, "overbought": 70})
	require.NoError(t, err)

	signal, err := s.Evaluate("AAPL", barsFromCloses(100, 104, 108, 112, 116, 105))
	require.NoError(t, err)
	assert.Equal(t, model.ActionSell, signal.Action)
}

func TestRSIParamValidation(t *testing.T) {
	_, err := NewRSIStrategy(map[string]float64{"oversold": 80, "overbought": 20})
	assert.Error(t, err)
}

func TestMACDStrategyInsufficientData(t *testing.T) {
	s, err := NewMACDStrategy(nil)
	require.NoError(t, err)

	_, err = s.Evaluate("AAPL", barsFromCloses(1, 2, 3))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMACDStrategyBuyOnUpturn(t *testing.T) {
	s, err := NewMACDStrategy(map[string]float64{"fast_period": 3, "slow_period": 6, "signal_period": 3})
	require.NoError(t, err)

	// A long decline followed by a recovery bar drives the MACD line up
	// through its signal line on the final bar.
	closes := []float64{100, 98, 96, 94, 92, 90, 88, 86, 84, 82, 80, 85}
	signal, err := s.Evaluate("AAPL", barsFromCloses(closes...))
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, signal.Action)
	assert.GreaterOrEqual(t, signal.Confidence, 0.6)
	assert.LessOrEqual(t, signal.Confidence, 1.0)
}

func TestBollingerBandsBuyOnLowerBandReentry(t *testing.T) {
	s, err := NewBollingerBandsStrategy(map[string]float64{"period": 5, "std_dev": 1})
	require.NoError(t, err)

	// Price pierces the lower band then recovers back inside it.
	closes := []float64{100, 101, 100, 101, 100, 90, 99}
	signal, err := s.Evaluate("AAPL", barsFromCloses(closes...))
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, signal.Action)
}

func TestRegistryResolvesKnownStrategies(t *testing.T) {
	for _, d := range List() {
		s, err := New(model.StrategyConfig{Name: d.Name})
		require.NoErrorf(t, err, "strategy %s", d.Name)
		assert.Equal(t, d.Name, s.Name())
		assert.Greater(t, s.MinBars(), 1)
	}
}

func TestRegistryRejectsUnknownStrategy(t *testing.T) {
	_, err := New(model.StrategyConfig{Name: "astrology"})
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestAggregateMajorityVote(t *testing.T) {
	buy := Signal{Symbol: "AAPL", Action: model.ActionBuy, Price: 100, Confidence: 0.8}
	sell := Signal{Symbol: "AAPL", Action: model.ActionSell, Price: 100, Confidence: 0.9}
	holdSig := Signal{Symbol: "AAPL", Action: model.ActionHold, Price: 100}

	t.Run("buy majority", func(t *testing.T) {
		out := Aggregate([]Signal{buy, buy, sell})
		assert.Equal(t, model.ActionBuy, out.Action)
		assert.InDelta(t, 0.8, out.Confidence, 1e-9)
	})

	t.Run("tie resolves to hold", func(t *testing.T) {
		out := Aggregate([]Signal{buy, sell})
		assert.Equal(t, model.ActionHold, out.Action)
	})

	t.Run("all hold", func(t *testing.T) {
		out := Aggregate([]Signal{holdSig, holdSig})
		assert.Equal(t, model.ActionHold, out.Action)
	})

	t.Run("empty input", func(t *testing.T) {
		out := Aggregate(nil)
		assert.Equal(t, model.ActionHold, out.Action)
	})
}
