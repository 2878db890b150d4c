// Package portfolio is the ledger: the single writer of portfolio cash,
// positions, trades and valuation snapshots. Mutations are serialized per
// portfolio identity so bots sharing a portfolio never interleave partial
// updates; reads observe the latest committed state.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"tradingbot/src/model"
	"tradingbot/src/repository"
)

var (
	// ErrInsufficientFunds rejects a BUY whose cost exceeds available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoPosition rejects a SELL for a symbol with nothing held.
	ErrNoPosition = errors.New("no position held")
	// ErrUnknownPortfolio means the referenced portfolio row does not exist.
	ErrUnknownPortfolio = errors.New("portfolio not found")
)

// Ledger owns all portfolio mutation. One instance is shared by every bot
// runtime and the API layer.
type Ledger struct {
	portfolios *repository.PortfolioRepository
	positions  *repository.PositionRepository
	trades     *repository.TradeRepository

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewLedger(
	portfolios *repository.PortfolioRepository,
	positions *repository.PositionRepository,
	trades *repository.TradeRepository,
) *Ledger {
	return &Ledger{
		portfolios: portfolios,
		positions:  positions,
		trades:     trades,
		locks:      map[uint]*sync.Mutex{},
	}
}

// lockFor returns the mutex serializing mutations of one portfolio.
func (l *Ledger) lockFor(portfolioID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[portfolioID] = lock
	}
	return lock
}

// Ensure returns the active portfolio with the given name, creating it
// seeded with initialCapital when none exists.
func (l *Ledger) Ensure(ctx context.Context, name string, initialCapital float64) (*model.Portfolio, error) {
	existing, err := l.portfolios.FindActiveByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created := &model.Portfolio{
		Name:           name,
		InitialCapital: initialCapital,
		CurrentCash:    initialCapital,
		TotalValue:     initialCapital,
		IsActive:       true,
	}
	if err := l.portfolios.Create(ctx, created); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"portfolio_id":    created.ID,
		"name":            name,
		"initial_capital": initialCapital,
	}).Info("portfolio created")
	return created, nil
}

// TradeRequest describes an approved trade to apply.
type TradeRequest struct {
	PortfolioID uint
	BotID       uint
	SignalID    *uint
	Symbol      string
	Action      string // model.ActionBuy or model.ActionSell
	Quantity    float64
	Price       float64
	Strategy    string
	StopLoss    *float64
	TakeProfit  *float64
}

// ApplyTrade mutates cash and positions for one approved trade, persists the
// trade row and appends a valuation snapshot. It is the critical section per
// portfolio: concurrent calls for the same portfolio serialize, different
// portfolios proceed independently.
func (l *Ledger) ApplyTrade(ctx context.Context, req TradeRequest) (*model.Trade, error) {
	if req.Quantity <= 0 || req.Price <= 0 {
		return nil, fmt.Errorf("invalid trade request: quantity %v price %v", req.Quantity, req.Price)
	}

	lock := l.lockFor(req.PortfolioID)
	lock.Lock()
	defer lock.Unlock()

	pf, err := l.portfolios.FindByID(ctx, req.PortfolioID)
	if err != nil {
		return nil, err
	}
	if pf == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownPortfolio, req.PortfolioID)
	}

	switch req.Action {
	case model.ActionBuy:
		err = l.applyBuy(ctx, pf, &req)
	case model.ActionSell:
		err = l.applySell(ctx, pf, &req)
	default:
		err = fmt.Errorf("invalid trade action %q", req.Action)
	}
	if err != nil {
		return nil, err
	}

	trade := &model.Trade{
		Reference:   uuid.NewString(),
		PortfolioID: pf.ID,
		BotID:       req.BotID,
		SignalID:    req.SignalID,
		Symbol:      req.Symbol,
		Action:      req.Action,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Value:       req.Quantity * req.Price,
		Strategy:    req.Strategy,
	}
	if err := l.trades.Create(ctx, trade); err != nil {
		return nil, err
	}

	if err := l.commitValuation(ctx, pf); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"portfolio_id": pf.ID,
		"symbol":       req.Symbol,
		"action":       req.Action,
		"qty":          req.Quantity,
		"price":        req.Price,
	}).Info("trade applied")

	return trade, nil
}

func (l *Ledger) applyBuy(ctx context.Context, pf *model.Portfolio, req *TradeRequest) error {
	cost := req.Quantity * req.Price
	if cost > pf.CurrentCash {
		return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, cost, pf.CurrentCash)
	}

	position, err := l.positions.FindOpen(ctx, pf.ID, req.Symbol)
	if err != nil {
		return err
	}

	if position == nil {
		position = &model.Position{
			PortfolioID:  pf.ID,
			Symbol:       req.Symbol,
			Quantity:     req.Quantity,
			EntryPrice:   req.Price,
			CurrentPrice: req.Price,
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
			Status:       model.PositionStatusOpen,
			OpenedAt:     time.Now(),
		}
	} else {
		// Weighted-average the entry price across the combined quantity.
		total := position.Quantity + req.Quantity
		position.EntryPrice = (position.EntryPrice*position.Quantity + req.Price*req.Quantity) / total
		position.Quantity = total
		position.CurrentPrice = req.Price
	}

	if err := l.positions.Save(ctx, position); err != nil {
		return err
	}

	pf.CurrentCash -= cost
	return nil
}

func (l *Ledger) applySell(ctx context.Context, pf *model.Portfolio, req *TradeRequest) error {
	position, err := l.positions.FindOpen(ctx, pf.ID, req.Symbol)
	if err != nil {
		return err
	}
	if position == nil || position.Quantity <= 0 {
		return fmt.Errorf("%w: %s", ErrNoPosition, req.Symbol)
	}

	if req.Quantity > position.Quantity {
		req.Quantity = position.Quantity
	}

	proceeds := req.Quantity * req.Price
	position.Quantity -= req.Quantity
	position.CurrentPrice = req.Price

	if position.Quantity <= 0 {
		// No zero-quantity rows stay open.
		if err := l.positions.Close(ctx, pf.ID, req.Symbol); err != nil {
			return err
		}
	} else {
		if err := l.positions.Save(ctx, position); err != nil {
			return err
		}
	}

	pf.CurrentCash += proceeds
	return nil
}

// commitValuation recomputes total value from open positions and persists
// the portfolio row plus an append-only snapshot.
func (l *Ledger) commitValuation(ctx context.Context, pf *model.Portfolio) error {
	open, err := l.positions.FindOpenByPortfolio(ctx, pf.ID)
	if err != nil {
		return err
	}

	positionsValue := 0.0
	for i := range open {
		positionsValue += open[i].MarketValue()
	}
	pf.TotalValue = pf.CurrentCash + positionsValue

	if err := l.portfolios.UpdateValues(ctx, pf.ID, pf.CurrentCash, pf.TotalValue); err != nil {
		return err
	}

	totalPnl := pf.TotalValue - pf.InitialCapital
	totalPnlPct := 0.0
	if pf.InitialCapital != 0 {
		totalPnlPct = totalPnl / pf.InitialCapital * 100
	}

	return l.portfolios.CreateSnapshot(ctx, &model.PortfolioSnapshot{
		PortfolioID:    pf.ID,
		Cash:           pf.CurrentCash,
		PositionsValue: positionsValue,
		TotalValue:     pf.TotalValue,
		TotalPnl:       totalPnl,
		TotalPnlPct:    totalPnlPct,
	})
}

// UpdatePrices stores the latest observed price on each open position so
// valuations and stop/take checks see current marks. Serialized with trade
// application.
func (l *Ledger) UpdatePrices(ctx context.Context, portfolioID uint, prices map[string]float64) error {
	if len(prices) == 0 {
		return nil
	}

	lock := l.lockFor(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	open, err := l.positions.FindOpenByPortfolio(ctx, portfolioID)
	if err != nil {
		return err
	}

	for i := range open {
		price, ok := prices[open[i].Symbol]
		if !ok || price <= 0 {
			continue
		}
		open[i].CurrentPrice = price
		if err := l.positions.Save(ctx, &open[i]); err != nil {
			return err
		}
	}
	return nil
}
