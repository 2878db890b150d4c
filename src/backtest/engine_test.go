package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingbot/src/marketdata"
	"tradingbot/src/model"
	"tradingbot/src/risk"
)

func barsFromCloses(closes ...float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, len(closes))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = marketdata.Bar{
			Time: base.Add(time.Duration(i) * time.Hour),
			Open: c, High: c, Low: c, Close: c,
		}
	}
	return bars
}

func maConfig() Config {
	return Config{
		Symbol: "AAPL",
		Strategies: []model.StrategyConfig{
			{Name: "moving_average", Params: map[string]float64{"fast_period": 2, "slow_period": 4}},
		},
		InitialCapital: 10000,
		Limits:         risk.DefaultLimits(),
	}
}

func TestRunRejectsShortSeries(t *testing.T) {
	_, err := Run(maConfig(), barsFromCloses(10, 10, 10))
	require.ErrorIs(t, err, ErrNotEnoughBars)
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := maConfig()
	cfg.InitialCapital = 0
	_, err := Run(cfg, barsFromCloses(10, 10, 10, 10, 10))
	require.Error(t, err)

	cfg = maConfig()
	cfg.Strategies = []model.StrategyConfig{{Name: "astrology"}}
	_, err = Run(cfg, barsFromCloses(10, 10, 10, 10, 10))
	require.Error(t, err)
}

func TestRunFlatSeriesNeverTrades(t *testing.T) {
	result, err := Run(maConfig(), barsFromCloses(10, 10, 10, 10, 10, 10, 10, 10))
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 10000.0, result.FinalValue)
	assert.Equal(t, 0.0, result.TotalReturnPct)
	assert.Equal(t, 0.0, result.MaxDrawdownPct)
	// one hold vote per evaluated bar
	assert.Equal(t, 4, result.SignalCount)
}

func TestRunBuyThenTakeProfitExit(t *testing.T) {
	// Crossover fires on the 12 bar; the jump to 14 breaches the 13.2 take
	// profit on the next bar before evaluation.
	result, err := Run(maConfig(), barsFromCloses(10, 10, 10, 10, 12, 14))
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)

	buy := result.Trades[0]
	assert.Equal(t, model.ActionBuy, buy.Action)
	assert.Equal(t, 4, buy.Index)
	assert.Equal(t, 83.0, buy.Quantity) // floor(10000*0.1/12)
	assert.Equal(t, 12.0, buy.Price)

	sell := result.Trades[1]
	assert.Equal(t, model.ActionSell, sell.Action)
	assert.Equal(t, 5, sell.Index)
	assert.Equal(t, "take_profit", sell.Trigger)
	assert.Equal(t, 14.0, sell.Price)
	assert.InDelta(t, 166.0, sell.Pnl, 1e-9) // (14-12)*83

	assert.InDelta(t, 10166.0, result.FinalValue, 1e-9)
	assert.InDelta(t, 1.66, result.TotalReturnPct, 1e-9)
	assert.Equal(t, 1.0, result.WinRate)
	assert.Equal(t, 0.0, result.MaxDrawdownPct)

	require.Len(t, result.EquityCurve, 2)
	assert.InDelta(t, 10000.0, result.EquityCurve[0].Value, 1e-9)
	assert.InDelta(t, 10166.0, result.EquityCurve[1].Value, 1e-9)
}

func TestRunStopLossCapsDrawdown(t *testing.T) {
	// Buy at 12, then the slide to 11 breaches the 11.4 stop.
	result, err := Run(maConfig(), barsFromCloses(10, 10, 10, 10, 12, 11, 11, 11))
	require.NoError(t, err)

	require.NotEmpty(t, result.Trades)
	var exit *TradeRecord
	for i := range result.Trades {
		if result.Trades[i].Trigger == "stop_loss" {
			exit = &result.Trades[i]
		}
	}
	require.NotNil(t, exit)
	assert.Equal(t, model.ActionSell, exit.Action)
	assert.Equal(t, 11.0, exit.Price)
	assert.InDelta(t, -83.0, exit.Pnl, 1e-9) // (11-12)*83

	assert.Less(t, result.FinalValue, result.InitialCapital)
	assert.Greater(t, result.MaxDrawdownPct, 0.0)
	assert.Equal(t, 0.0, result.WinRate)
}
