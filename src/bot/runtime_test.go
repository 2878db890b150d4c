package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tradingbot/src/marketdata"
	"tradingbot/src/model"
	"tradingbot/src/portfolio"
	"tradingbot/src/repository"
)

type fakeProvider struct {
	bars  map[string][]marketdata.Bar
	err   error
	calls int
}

func (f *fakeProvider) Bars(_ context.Context, symbol, _ string, _ int) ([]marketdata.Bar, error) {
	f.calls++
	if f.err != nil && f.bars[symbol] == nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

func barsFromCloses(closes ...float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, len(closes))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = marketdata.Bar{
			Time:  base.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return bars
}

type testEnv struct {
	db      *gorm.DB
	bots    *repository.BotRepository
	signals *repository.SignalRepository
	ledger  *portfolio.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Bot{},
		&model.Portfolio{},
		&model.PortfolioSnapshot{},
		&model.Position{},
		&model.Signal{},
		&model.Trade{},
	))

	return &testEnv{
		db:      db,
		bots:    repository.NewBotRepository().WithDB(db),
		signals: repository.NewSignalRepository().WithDB(db),
		ledger: portfolio.NewLedger(
			repository.NewPortfolioRepository().WithDB(db),
			repository.NewPositionRepository().WithDB(db),
			repository.NewTradeRepository().WithDB(db),
		),
	}
}

func (e *testEnv) newBot(t *testing.T, provider marketdata.Provider, cfg model.BotConfig) (*Runtime, *model.Bot) {
	t.Helper()
	ctx := context.Background()

	pf, err := e.ledger.Ensure(ctx, "test-"+t.Name(), cfg.InitialCapital)
	require.NoError(t, err)

	b := &model.Bot{
		Name:        "bot-" + t.Name(),
		PortfolioID: pf.ID,
		Config:      cfg,
		Status:      model.BotStatusStopped,
		IsActive:    true,
	}
	require.NoError(t, e.bots.Create(ctx, b))

	rt, err := NewRuntime(b, Deps{
		Bots:    e.bots,
		Signals: e.signals,
		Ledger:  e.ledger,
		Market:  provider,
	})
	require.NoError(t, err)
	return rt, b
}

func maCrossoverConfig() model.BotConfig {
	return model.BotConfig{
		Symbols: []string{"AAPL"},
		Strategies: []model.StrategyConfig{
			{Name: "moving_average", Params: map[string]float64{"fast_period": 2, "slow_period": 4}},
		},
		InitialCapital:   10000,
		MaxPositionSize:  0.1,
		StopLossPct:      0.05,
		TakeProfitPct:    0.10,
		MaxPortfolioRisk: 0.02,
		MaxPositions:     10,
		Timeframe:        "1h",
		PaperTrading:     true,
	}
}

func TestNewRuntimeRejectsEmptyConfig(t *testing.T) {
	_, err := NewRuntime(&model.Bot{Config: model.BotConfig{}}, Deps{})
	require.Error(t, err)

	_, err = NewRuntime(&model.Bot{Config: model.BotConfig{
		Symbols:    []string{"AAPL"},
		Strategies: []model.StrategyConfig{{Name: "no_such_strategy"}},
	}}, Deps{})
	require.Error(t, err)
}

func TestCycleExecutesApprovedBuy(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(10, 10, 10, 10, 12),
	}}
	rt, b := env.newBot(t, provider, maCrossoverConfig())
	ctx := context.Background()

	require.NoError(t, rt.cycle(ctx))

	// floor(10000 * 0.1 / 12) = 83 shares
	summary, err := env.ledger.Summary(ctx, b.PortfolioID)
	require.NoError(t, err)
	require.Len(t, summary.Positions, 1)
	assert.Equal(t, 83.0, summary.Positions[0].Quantity)
	assert.Equal(t, 12.0, summary.Positions[0].EntryPrice)
	require.NotNil(t, summary.Positions[0].StopLoss)
	assert.InDelta(t, 11.4, *summary.Positions[0].StopLoss, 1e-9)
	require.NotNil(t, summary.Positions[0].TakeProfit)
	assert.InDelta(t, 13.2, *summary.Positions[0].TakeProfit, 1e-9)

	// One strategy signal plus the executed aggregate signal.
	signals, err := env.signals.Search(ctx, repository.SignalSearchOptions{BotID: &b.ID})
	require.NoError(t, err)
	require.Len(t, signals, 2)
	executed := 0
	for _, sig := range signals {
		assert.Equal(t, model.ActionBuy, sig.Action)
		if sig.Executed {
			executed++
			assert.Equal(t, "aggregate", sig.Strategy)
		}
	}
	assert.Equal(t, 1, executed)

	stored, err := env.bots.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRunAt)
}

func TestCyclePersistsHoldWithoutTrade(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(10, 10, 10, 10, 10, 10),
	}}
	rt, b := env.newBot(t, provider, maCrossoverConfig())
	ctx := context.Background()

	require.NoError(t, rt.cycle(ctx))

	signals, err := env.signals.Search(ctx, repository.SignalSearchOptions{BotID: &b.ID})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, model.ActionHold, signals[0].Action)
	assert.False(t, signals[0].Executed)

	summary, err := env.ledger.Summary(ctx, b.PortfolioID)
	require.NoError(t, err)
	assert.Empty(t, summary.Positions)
	assert.Equal(t, 10000.0, summary.Cash)
}

// rejectingLedger delegates to the real ledger but fails every ApplyTrade,
// standing in for a sibling bot winning the ledger lock first.
type rejectingLedger struct {
	Ledger
	rejectWith error
}

func (l *rejectingLedger) ApplyTrade(context.Context, portfolio.TradeRequest) (*model.Trade, error) {
	return nil, l.rejectWith
}

func TestCycleLedgerRejectionLeavesSignalUnexecuted(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(10, 10, 10, 10, 12),
	}}
	rt, b := env.newBot(t, provider, maCrossoverConfig())
	rt.deps.Ledger = &rejectingLedger{
		Ledger:     env.ledger,
		rejectWith: fmt.Errorf("debit cash: %w", portfolio.ErrInsufficientFunds),
	}
	ctx := context.Background()

	require.NoError(t, rt.cycle(ctx))
	assert.Equal(t, 0, rt.failures)

	signals, err := env.signals.Search(ctx, repository.SignalSearchOptions{BotID: &b.ID})
	require.NoError(t, err)
	require.Len(t, signals, 2)
	for _, sig := range signals {
		assert.False(t, sig.Executed)
	}

	summary, err := env.ledger.Summary(ctx, b.PortfolioID)
	require.NoError(t, err)
	assert.Empty(t, summary.Positions)
	assert.Equal(t, 10000.0, summary.Cash)
}

func TestCycleRecordsHoldForShortStrategyWindow(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(10, 10, 10, 10, 10, 10),
	}}
	cfg := maCrossoverConfig()
	cfg.Strategies = append(cfg.Strategies, model.StrategyConfig{
		Name: "rsi", Params: map[string]float64{"period": 30},
	})
	rt, b := env.newBot(t, provider, cfg)
	ctx := context.Background()

	require.NoError(t, rt.cycle(ctx))

	signals, err := env.signals.Search(ctx, repository.SignalSearchOptions{BotID: &b.ID})
	require.NoError(t, err)
	require.Len(t, signals, 2)

	var degraded *model.Signal
	for i := range signals {
		assert.Equal(t, model.ActionHold, signals[i].Action)
		assert.False(t, signals[i].Executed)
		if signals[i].Strategy == "rsi" {
			degraded = &signals[i]
		}
	}
	require.NotNil(t, degraded)
	assert.Equal(t, 0.0, degraded.Confidence)
	assert.Equal(t, 10.0, degraded.Price)
}

func TestCycleProtectiveStopLossExit(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(90, 90, 90, 90, 90, 90),
	}}
	rt, b := env.newBot(t, provider, maCrossoverConfig())
	ctx := context.Background()

	stop := 95.0
	_, err := env.ledger.ApplyTrade(ctx, portfolio.TradeRequest{
		PortfolioID: b.PortfolioID,
		BotID:       b.ID,
		Symbol:      "AAPL",
		Action:      model.ActionBuy,
		Quantity:    10,
		Price:       100,
		StopLoss:    &stop,
	})
	require.NoError(t, err)

	require.NoError(t, rt.cycle(ctx))

	summary, err := env.ledger.Summary(ctx, b.PortfolioID)
	require.NoError(t, err)
	assert.Empty(t, summary.Positions)
	// 10000 - 1000 entry + 900 exit proceeds
	assert.Equal(t, 9900.0, summary.Cash)

	signals, err := env.signals.Search(ctx, repository.SignalSearchOptions{BotID: &b.ID})
	require.NoError(t, err)
	var exit *model.Signal
	for i := range signals {
		if signals[i].Strategy == "stop_loss" {
			exit = &signals[i]
		}
	}
	require.NotNil(t, exit)
	assert.Equal(t, model.ActionSell, exit.Action)
	assert.True(t, exit.Executed)
}

func TestCycleFaultsAfterConsecutiveFailures(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{err: errors.New("exchange down")}
	rt, b := env.newBot(t, provider, maCrossoverConfig())
	ctx := context.Background()

	require.NoError(t, rt.cycle(ctx))
	require.NoError(t, rt.cycle(ctx))
	require.Error(t, rt.cycle(ctx))

	stored, err := env.bots.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BotStatusError, stored.Status)
}

func TestCycleFailureCounterResetsOnCleanCycle(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{err: errors.New("exchange down")}
	rt, _ := env.newBot(t, provider, maCrossoverConfig())
	ctx := context.Background()

	require.NoError(t, rt.cycle(ctx))
	require.NoError(t, rt.cycle(ctx))

	provider.err = nil
	provider.bars = map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(10, 10, 10, 10, 10, 10),
	}
	require.NoError(t, rt.cycle(ctx))
	assert.Equal(t, 0, rt.failures)

	provider.err = errors.New("exchange down again")
	require.NoError(t, rt.cycle(ctx))
	assert.Equal(t, 1, rt.failures)
}

func TestCyclePartialFailureIsNotAFault(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{
		err: errors.New("exchange down"),
		bars: map[string][]marketdata.Bar{
			"AAPL": barsFromCloses(10, 10, 10, 10, 10, 10),
		},
	}
	cfg := maCrossoverConfig()
	cfg.Symbols = []string{"AAPL", "MSFT"} // MSFT fetch fails every time
	rt, _ := env.newBot(t, provider, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, rt.cycle(ctx))
	}
	assert.Equal(t, 0, rt.failures)
}

func TestCycleHonorsCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(10, 10, 10, 10, 12),
	}}
	rt, _ := env.newBot(t, provider, maCrossoverConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, rt.cycle(ctx))
	assert.Equal(t, 0, provider.calls)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)
	provider := &fakeProvider{bars: map[string][]marketdata.Bar{
		"AAPL": barsFromCloses(10, 10, 10, 10, 10, 10),
	}}
	cfg := maCrossoverConfig()
	cfg.RunIntervalSeconds = 1
	rt, _ := env.newBot(t, provider, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop after cancel")
	}
	assert.GreaterOrEqual(t, provider.calls, 1)
}
