package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradingbot/src/model"
	"tradingbot/src/risk"
)

// PositionSummary is the read-model for one open position.
type PositionSummary struct {
	Symbol           string   `json:"symbol"`
	Quantity         float64  `json:"quantity"`
	EntryPrice       float64  `json:"entry_price"`
	CurrentPrice     float64  `json:"current_price"`
	MarketValue      float64  `json:"market_value"`
	UnrealizedPnl    float64  `json:"unrealized_pnl"`
	UnrealizedPnlPct float64  `json:"unrealized_pnl_pct"`
	StopLoss         *float64 `json:"stop_loss,omitempty"`
	TakeProfit       *float64 `json:"take_profit,omitempty"`
}

// Summary is the read-model for a portfolio: cash, open positions at their
// latest stored marks and the derived totals.
type Summary struct {
	PortfolioID    uint              `json:"portfolio_id"`
	Name           string            `json:"name"`
	InitialCapital float64           `json:"initial_capital"`
	Cash           float64           `json:"cash"`
	PositionsValue float64           `json:"positions_value"`
	TotalValue     float64           `json:"total_value"`
	TotalPnl       float64           `json:"total_pnl"`
	TotalPnlPct    float64           `json:"total_pnl_pct"`
	Positions      []PositionSummary `json:"positions"`
	AsOf           time.Time         `json:"as_of"`
}

// Summary reads the current portfolio state. It takes no lock: reads observe
// whatever mutation committed last.
func (l *Ledger) Summary(ctx context.Context, portfolioID uint) (*Summary, error) {
	pf, err := l.portfolios.FindByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if pf == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownPortfolio, portfolioID)
	}

	open, err := l.positions.FindOpenByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		PortfolioID:    pf.ID,
		Name:           pf.Name,
		InitialCapital: pf.InitialCapital,
		Cash:           pf.CurrentCash,
		Positions:      make([]PositionSummary, 0, len(open)),
		AsOf:           time.Now(),
	}
	for i := range open {
		p := &open[i]
		out.PositionsValue += p.MarketValue()
		out.Positions = append(out.Positions, PositionSummary{
			Symbol:           p.Symbol,
			Quantity:         p.Quantity,
			EntryPrice:       p.EntryPrice,
			CurrentPrice:     p.CurrentPrice,
			MarketValue:      p.MarketValue(),
			UnrealizedPnl:    p.UnrealizedPnl(),
			UnrealizedPnlPct: p.UnrealizedPnlPct(),
			StopLoss:         p.StopLoss,
			TakeProfit:       p.TakeProfit,
		})
	}

	out.TotalValue = out.Cash + out.PositionsValue
	out.TotalPnl = out.TotalValue - pf.InitialCapital
	if pf.InitialCapital != 0 {
		out.TotalPnlPct = out.TotalPnl / pf.InitialCapital * 100
	}
	return out, nil
}

// OpenPositions returns the open positions rows as stored.
func (l *Ledger) OpenPositions(ctx context.Context, portfolioID uint) ([]model.Position, error) {
	return l.positions.FindOpenByPortfolio(ctx, portfolioID)
}

// Snapshots returns the most recent valuation snapshots, newest first.
func (l *Ledger) Snapshots(ctx context.Context, portfolioID uint, limit int) ([]model.PortfolioSnapshot, error) {
	return l.portfolios.ListSnapshots(ctx, portfolioID, limit)
}

// RiskSnapshot converts the summary into the view the risk gate decides on.
func (s *Summary) RiskSnapshot() risk.Snapshot {
	snap := risk.Snapshot{
		Cash:       decimal.NewFromFloat(s.Cash),
		TotalValue: decimal.NewFromFloat(s.TotalValue),
		Positions:  make([]risk.PositionExposure, 0, len(s.Positions)),
	}
	for _, p := range s.Positions {
		snap.Positions = append(snap.Positions, risk.PositionExposure{
			Symbol:   p.Symbol,
			Quantity: decimal.NewFromFloat(p.Quantity),
			Value:    decimal.NewFromFloat(p.MarketValue),
		})
	}
	return snap
}
