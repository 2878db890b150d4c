// Package bot runs one trading bot: a periodic cycle that fetches market
// data, evaluates strategies, persists signals and routes approved trades
// through the portfolio ledger.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradingbot/src/marketdata"
	"tradingbot/src/model"
	"tradingbot/src/portfolio"
	"tradingbot/src/repository"
	"tradingbot/src/risk"
	"tradingbot/src/strategy"
)

// Ledger is the slice of the portfolio ledger a runtime drives.
type Ledger interface {
	UpdatePrices(ctx context.Context, portfolioID uint, prices map[string]float64) error
	OpenPositions(ctx context.Context, portfolioID uint) ([]model.Position, error)
	Summary(ctx context.Context, portfolioID uint) (*portfolio.Summary, error)
	ApplyTrade(ctx context.Context, req portfolio.TradeRequest) (*model.Trade, error)
}

// Deps are the collaborators a runtime needs. The manager wires one set and
// shares it across every bot.
type Deps struct {
	Bots    *repository.BotRepository
	Signals *repository.SignalRepository
	Ledger  Ledger
	Market  marketdata.Provider
}

// Runtime drives the evaluation loop of a single bot. Run blocks until the
// context is cancelled or the bot faults; one Runtime never runs twice.
type Runtime struct {
	bot        *model.Bot
	deps       Deps
	config     Config
	strategies []strategy.Strategy
	limits     risk.Limits
	lookback   int

	failures int
	log      *logger.Entry
}

// NewRuntime builds the strategy set and risk limits from the bot config.
func NewRuntime(bot *model.Bot, deps Deps) (*Runtime, error) {
	if len(bot.Config.Symbols) == 0 {
		return nil, errors.New("bot has no symbols configured")
	}
	if len(bot.Config.Strategies) == 0 {
		return nil, errors.New("bot has no strategies configured")
	}

	strategies := make([]strategy.Strategy, 0, len(bot.Config.Strategies))
	lookback := 0
	for _, cfg := range bot.Config.Strategies {
		s, err := strategy.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", cfg.Name, err)
		}
		strategies = append(strategies, s)
		if s.MinBars() > lookback {
			lookback = s.MinBars()
		}
	}

	config := GetConfig()
	return &Runtime{
		bot:        bot,
		deps:       deps,
		config:     config,
		strategies: strategies,
		limits:     risk.LimitsFromConfig(bot.Config),
		lookback:   lookback + config.LookbackPadding,
		log: logger.WithFields(logger.Fields{
			"bot_id":   bot.ID,
			"bot_name": bot.Name,
		}),
	}, nil
}

func (r *Runtime) interval() time.Duration {
	if r.bot.Config.RunIntervalSeconds > 0 {
		return time.Duration(r.bot.Config.RunIntervalSeconds) * time.Second
	}
	return r.config.DefaultRunInterval
}

// Run executes cycles until ctx is cancelled or too many cycles fail in a
// row. The first cycle runs immediately, then on every tick. A tick that
// fires while a cycle is still in flight is dropped, not queued.
func (r *Runtime) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()

	r.log.WithFields(logger.Fields{
		"interval":      r.interval(),
		"paper_trading": r.bot.Config.PaperTrading,
	}).Info("bot loop started")

	if err := r.cycle(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Info("bot loop stopped")
			return nil

		case <-ticker.C:
			if err := r.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// cycle processes every configured symbol once. Individual symbol errors are
// logged and skipped; a cycle only counts as failed when every attempted
// symbol failed. MaxCycleFailures consecutive failed cycles fault the bot
// into error status; any healthier cycle resets the counter.
func (r *Runtime) cycle(ctx context.Context) error {
	attempted, failed := 0, 0
	for _, symbol := range r.bot.Config.Symbols {
		// Stop requests take effect between symbols, never mid-trade.
		if ctx.Err() != nil {
			return nil
		}
		attempted++
		if err := r.processSymbol(ctx, symbol); err != nil {
			r.log.WithError(err).WithField("symbol", symbol).Error("symbol processing failed")
			failed++
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	if err := r.deps.Bots.UpdateLastRun(ctx, r.bot.ID, time.Now()); err != nil {
		r.log.WithError(err).Error("failed to record last run")
	}

	if attempted == 0 || failed < attempted {
		r.failures = 0
		return nil
	}

	r.failures++
	if r.failures < r.config.MaxCycleFailures {
		r.log.WithField("consecutive_failures", r.failures).Warn("cycle failed")
		return nil
	}

	r.log.WithField("consecutive_failures", r.failures).Error("bot faulted, stopping loop")
	if err := r.deps.Bots.UpdateStatus(context.WithoutCancel(ctx), r.bot.ID, model.BotStatusError); err != nil {
		r.log.WithError(err).Error("failed to set error status")
	}
	return fmt.Errorf("bot %d faulted after %d consecutive failed cycles", r.bot.ID, r.failures)
}

func (r *Runtime) processSymbol(ctx context.Context, symbol string) error {
	bars, err := r.deps.Market.Bars(ctx, symbol, r.bot.Config.Timeframe, r.lookback)
	if err != nil {
		return fmt.Errorf("fetch bars: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("fetch bars: %w", marketdata.ErrDataUnavailable)
	}

	price := bars[len(bars)-1].Close
	if err := r.deps.Ledger.UpdatePrices(ctx, r.bot.PortfolioID, map[string]float64{symbol: price}); err != nil {
		return fmt.Errorf("update prices: %w", err)
	}

	// Protective exits run before strategy evaluation so a breached stop is
	// acted on even when every strategy holds.
	if err := r.checkProtectiveExit(ctx, symbol, price); err != nil {
		return err
	}

	votes := make([]strategy.Signal, 0, len(r.strategies))
	for _, s := range r.strategies {
		sig, err := s.Evaluate(symbol, bars)
		switch {
		case errors.Is(err, strategy.ErrInsufficientData):
			// A short window degrades the strategy to a HOLD vote; the
			// verdict is still recorded like any other.
			r.log.WithFields(logger.Fields{"symbol": symbol, "strategy": s.Name()}).
				Warn("not enough bars for strategy")
			sig = strategy.Signal{
				Symbol:   symbol,
				Action:   model.ActionHold,
				Strategy: s.Name(),
				Price:    price,
			}
		case err != nil:
			return fmt.Errorf("evaluate %s: %w", s.Name(), err)
		}

		// Every strategy verdict is recorded, executed or not.
		if err := r.deps.Signals.Create(ctx, &model.Signal{
			BotID:      r.bot.ID,
			Symbol:     symbol,
			Action:     sig.Action,
			Strategy:   sig.Strategy,
			Price:      sig.Price,
			Confidence: sig.Confidence,
		}); err != nil {
			return fmt.Errorf("persist signal: %w", err)
		}
		votes = append(votes, sig)
	}

	if len(votes) == 0 {
		return nil
	}

	combined := strategy.Aggregate(votes)
	if combined.Action == model.ActionHold {
		return nil
	}
	return r.execute(ctx, combined)
}

// checkProtectiveExit sells the full position when the latest price breaches
// its stop loss or take profit.
func (r *Runtime) checkProtectiveExit(ctx context.Context, symbol string, price float64) error {
	open, err := r.deps.Ledger.OpenPositions(ctx, r.bot.PortfolioID)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	for i := range open {
		p := &open[i]
		if p.Symbol != symbol {
			continue
		}

		var trigger string
		switch {
		case p.StopLoss != nil && price <= *p.StopLoss:
			trigger = "stop_loss"
		case p.TakeProfit != nil && price >= *p.TakeProfit:
			trigger = "take_profit"
		default:
			return nil
		}

		sig := &model.Signal{
			BotID:      r.bot.ID,
			Symbol:     symbol,
			Action:     model.ActionSell,
			Strategy:   trigger,
			Price:      price,
			Confidence: 1,
		}
		if err := r.deps.Signals.Create(ctx, sig); err != nil {
			return fmt.Errorf("persist exit signal: %w", err)
		}

		_, err := r.deps.Ledger.ApplyTrade(ctx, portfolio.TradeRequest{
			PortfolioID: r.bot.PortfolioID,
			BotID:       r.bot.ID,
			SignalID:    &sig.ID,
			Symbol:      symbol,
			Action:      model.ActionSell,
			Quantity:    p.Quantity,
			Price:       price,
			Strategy:    trigger,
		})
		if err != nil {
			// A sibling bot may have closed the position first.
			if errors.Is(err, portfolio.ErrNoPosition) {
				r.log.WithField("symbol", symbol).Warn("protective exit lost to a concurrent close")
				return nil
			}
			return fmt.Errorf("apply %s exit: %w", trigger, err)
		}
		if err := r.deps.Signals.MarkExecuted(ctx, sig.ID); err != nil {
			return fmt.Errorf("mark exit signal executed: %w", err)
		}

		r.log.WithFields(logger.Fields{
			"symbol":  symbol,
			"trigger": trigger,
			"price":   price,
			"qty":     p.Quantity,
		}).Info("protective exit executed")
		return nil
	}
	return nil
}

// execute runs one aggregated signal through the risk gate and, when
// approved, applies the trade and marks the signal executed.
func (r *Runtime) execute(ctx context.Context, sig strategy.Signal) error {
	record := &model.Signal{
		BotID:      r.bot.ID,
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Strategy:   sig.Strategy,
		Price:      sig.Price,
		Confidence: sig.Confidence,
	}
	if err := r.deps.Signals.Create(ctx, record); err != nil {
		return fmt.Errorf("persist aggregate signal: %w", err)
	}

	summary, err := r.deps.Ledger.Summary(ctx, r.bot.PortfolioID)
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	decision := risk.Approve(risk.Proposal{
		Symbol: sig.Symbol,
		Action: sig.Action,
		Price:  decimal.NewFromFloat(sig.Price),
	}, summary.RiskSnapshot(), r.limits)

	if !decision.Approved {
		r.log.WithFields(logger.Fields{
			"symbol": sig.Symbol,
			"action": sig.Action,
			"reason": decision.Reason,
		}).Info("trade rejected by risk gate")
		return nil
	}

	req := portfolio.TradeRequest{
		PortfolioID: r.bot.PortfolioID,
		BotID:       r.bot.ID,
		SignalID:    &record.ID,
		Symbol:      sig.Symbol,
		Action:      sig.Action,
		Quantity:    decision.Quantity.InexactFloat64(),
		Price:       sig.Price,
		Strategy:    sig.Strategy,
	}
	if sig.Action == model.ActionBuy {
		entry := decimal.NewFromFloat(sig.Price)
		stop := risk.StopLossPrice(entry, r.limits).InexactFloat64()
		take := risk.TakeProfitPrice(entry, r.limits).InexactFloat64()
		req.StopLoss = &stop
		req.TakeProfit = &take
	}

	if _, err := r.deps.Ledger.ApplyTrade(ctx, req); err != nil {
		// On a shared portfolio another bot can win the ledger lock between
		// the gate's snapshot and this apply. The signal stays unexecuted
		// and the cycle goes on.
		if errors.Is(err, portfolio.ErrInsufficientFunds) || errors.Is(err, portfolio.ErrNoPosition) {
			r.log.WithError(err).WithFields(logger.Fields{
				"symbol": sig.Symbol,
				"action": sig.Action,
			}).Warn("trade rejected by ledger")
			return nil
		}
		return fmt.Errorf("apply trade: %w", err)
	}
	if err := r.deps.Signals.MarkExecuted(ctx, record.ID); err != nil {
		return fmt.Errorf("mark signal executed: %w", err)
	}

	r.log.WithFields(logger.Fields{
		"symbol":     sig.Symbol,
		"action":     sig.Action,
		"qty":        decision.Quantity,
		"price":      sig.Price,
		"confidence": sig.Confidence,
	}).Info("trade executed")
	return nil
}
