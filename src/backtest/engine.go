// Package backtest replays a historical bar series through a strategy set
// and the risk gate against an in-memory book, producing performance
// metrics. No database or exchange is touched.
package backtest

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradingbot/src/marketdata"
	"tradingbot/src/model"
	"tradingbot/src/risk"
	"tradingbot/src/strategy"
)

// ErrNotEnoughBars means the series is shorter than the largest strategy
// warm-up window, so not a single evaluation could run.
var ErrNotEnoughBars = errors.New("not enough bars for backtest")

// Config describes one backtest run.
type Config struct {
	Symbol         string
	Strategies     []model.StrategyConfig
	InitialCapital float64
	Limits         risk.Limits
}

// TradeRecord is one fill in the replay.
type TradeRecord struct {
	Index    int     `json:"bar_index"`
	Action   string  `json:"action"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Pnl      float64 `json:"pnl"` // realized, SELL fills only
	Trigger  string  `json:"trigger"`
}

// EquityPoint is the book's value after one bar.
type EquityPoint struct {
	Index int     `json:"bar_index"`
	Value float64 `json:"value"`
}

// Result summarizes a completed run.
type Result struct {
	Symbol         string        `json:"symbol"`
	Bars           int           `json:"bars"`
	InitialCapital float64       `json:"initial_capital"`
	FinalValue     float64       `json:"final_value"`
	TotalReturnPct float64       `json:"total_return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	WinRate        float64       `json:"win_rate"`
	SignalCount    int           `json:"signal_count"`
	Trades         []TradeRecord `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
}

// book is the in-memory single-symbol position and cash state.
type book struct {
	cash       float64
	quantity   float64
	entryPrice float64
	stopLoss   float64
	takeProfit float64
}

func (b *book) value(price float64) float64 {
	return b.cash + b.quantity*price
}

func (b *book) snapshot(price float64) risk.Snapshot {
	snap := risk.Snapshot{
		Cash:       decimal.NewFromFloat(b.cash),
		TotalValue: decimal.NewFromFloat(b.value(price)),
	}
	if b.quantity > 0 {
		snap.Positions = []risk.PositionExposure{{
			Symbol:   "",
			Quantity: decimal.NewFromFloat(b.quantity),
			Value:    decimal.NewFromFloat(b.quantity * price),
		}}
	}
	return snap
}

// Run replays the bars in order. Each bar first checks protective exits,
// then evaluates the strategies on everything seen so far, exactly like the
// live cycle does.
func Run(cfg Config, bars []marketdata.Bar) (*Result, error) {
	if cfg.InitialCapital <= 0 {
		return nil, errors.New("initial capital must be positive")
	}

	strategies := make([]strategy.Strategy, 0, len(cfg.Strategies))
	minBars := 0
	for _, sc := range cfg.Strategies {
		s, err := strategy.New(sc)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", sc.Name, err)
		}
		strategies = append(strategies, s)
		if s.MinBars() > minBars {
			minBars = s.MinBars()
		}
	}
	if len(strategies) == 0 {
		return nil, errors.New("no strategies configured")
	}
	if len(bars) < minBars {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughBars, len(bars), minBars)
	}

	b := &book{cash: cfg.InitialCapital}
	result := &Result{
		Symbol:         cfg.Symbol,
		Bars:           len(bars),
		InitialCapital: cfg.InitialCapital,
		EquityCurve:    make([]EquityPoint, 0, len(bars)-minBars+1),
	}

	for i := minBars - 1; i < len(bars); i++ {
		window := bars[:i+1]
		price := bars[i].Close

		if exit := checkExit(b, price); exit != "" {
			sellAll(b, price, i, exit, result)
		}

		votes := make([]strategy.Signal, 0, len(strategies))
		for _, s := range strategies {
			sig, err := s.Evaluate(cfg.Symbol, window)
			if err != nil {
				if errors.Is(err, strategy.ErrInsufficientData) {
					continue
				}
				return nil, fmt.Errorf("bar %d: evaluate %s: %w", i, s.Name(), err)
			}
			result.SignalCount++
			votes = append(votes, sig)
		}

		if len(votes) > 0 {
			combined := strategy.Aggregate(votes)
			if combined.Action != model.ActionHold {
				applySignal(b, combined, cfg.Limits, i, result)
			}
		}

		result.EquityCurve = append(result.EquityCurve, EquityPoint{Index: i, Value: b.value(price)})
	}

	finish(b, bars, cfg, result)
	return result, nil
}

func checkExit(b *book, price float64) string {
	if b.quantity <= 0 {
		return ""
	}
	if b.stopLoss > 0 && price <= b.stopLoss {
		return "stop_loss"
	}
	if b.takeProfit > 0 && price >= b.takeProfit {
		return "take_profit"
	}
	return ""
}

func sellAll(b *book, price float64, index int, trigger string, result *Result) {
	pnl := (price - b.entryPrice) * b.quantity
	result.Trades = append(result.Trades, TradeRecord{
		Index:    index,
		Action:   model.ActionSell,
		Quantity: b.quantity,
		Price:    price,
		Pnl:      pnl,
		Trigger:  trigger,
	})
	b.cash += b.quantity * price
	b.quantity = 0
	b.entryPrice = 0
	b.stopLoss = 0
	b.takeProfit = 0
}

func applySignal(b *book, sig strategy.Signal, limits risk.Limits, index int, result *Result) {
	decision := risk.Approve(risk.Proposal{
		Symbol: sig.Symbol,
		Action: sig.Action,
		Price:  decimal.NewFromFloat(sig.Price),
	}, b.snapshot(sig.Price), limits)
	if !decision.Approved {
		return
	}

	qty := decision.Quantity.InexactFloat64()
	switch sig.Action {
	case model.ActionBuy:
		cost := qty * sig.Price
		total := b.quantity + qty
		b.entryPrice = (b.entryPrice*b.quantity + sig.Price*qty) / total
		b.quantity = total
		b.cash -= cost
		entry := decimal.NewFromFloat(b.entryPrice)
		b.stopLoss = risk.StopLossPrice(entry, limits).InexactFloat64()
		b.takeProfit = risk.TakeProfitPrice(entry, limits).InexactFloat64()
		result.Trades = append(result.Trades, TradeRecord{
			Index:    index,
			Action:   model.ActionBuy,
			Quantity: qty,
			Price:    sig.Price,
			Trigger:  sig.Strategy,
		})
	case model.ActionSell:
		pnl := (sig.Price - b.entryPrice) * qty
		b.cash += qty * sig.Price
		b.quantity -= qty
		if b.quantity <= 0 {
			b.quantity = 0
			b.entryPrice = 0
			b.stopLoss = 0
			b.takeProfit = 0
		}
		result.Trades = append(result.Trades, TradeRecord{
			Index:    index,
			Action:   model.ActionSell,
			Quantity: qty,
			Price:    sig.Price,
			Pnl:      pnl,
			Trigger:  sig.Strategy,
		})
	}
}

func finish(b *book, bars []marketdata.Bar, cfg Config, result *Result) {
	lastPrice := bars[len(bars)-1].Close
	result.FinalValue = b.value(lastPrice)
	result.TotalReturnPct = (result.FinalValue - cfg.InitialCapital) / cfg.InitialCapital * 100

	wins, sells := 0, 0
	for _, tr := range result.Trades {
		if tr.Action != model.ActionSell {
			continue
		}
		sells++
		if tr.Pnl > 0 {
			wins++
		}
	}
	if sells > 0 {
		result.WinRate = float64(wins) / float64(sells)
	}

	peak := result.InitialCapital
	for _, p := range result.EquityCurve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := (peak - p.Value) / peak * 100
			if dd > result.MaxDrawdownPct {
				result.MaxDrawdownPct = dd
			}
		}
	}

	logger.WithFields(logger.Fields{
		"symbol":       cfg.Symbol,
		"bars":         result.Bars,
		"trades":       len(result.Trades),
		"final_value":  result.FinalValue,
		"return_pct":   result.TotalReturnPct,
		"max_drawdown": result.MaxDrawdownPct,
	}).Info("backtest finished")
}
