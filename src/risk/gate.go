// Package risk guards trade execution. The gate is a pure decision
// function: it approves or rejects a proposed trade against a portfolio
// snapshot and sizes the approved quantity. All state mutation happens in
// the ledger after approval.
package risk

import (
	"github.com/shopspring/decimal"

	"tradingbot/src/model"
)

// ----- rejection reasons -----

const (
	ReasonApproved         = "approved"
	ReasonHold             = "hold signal"
	ReasonMaxPositions     = "max open positions reached"
	ReasonPositionTooLarge = "position would exceed max position size"
	ReasonInsufficientCash = "insufficient cash"
	ReasonPortfolioRisk    = "portfolio risk limit exceeded"
	ReasonNoPosition       = "no position held"
	ReasonZeroQuantity     = "sized quantity is zero"
	ReasonBadPrice         = "non-positive price"
)

// Limits carries the configured risk fractions. All fractions are in (0,1].
type Limits struct {
	MaxPositionSize  decimal.Decimal
	StopLossPct      decimal.Decimal
	TakeProfitPct    decimal.Decimal
	MaxPortfolioRisk decimal.Decimal
	MaxPositions     int
}

// DefaultLimits mirror the platform defaults: 10% position size, 5% stop
// loss, 10% take profit, 2% portfolio risk, 10 open positions.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:  decimal.NewFromFloat(0.10),
		StopLossPct:      decimal.NewFromFloat(0.05),
		TakeProfitPct:    decimal.NewFromFloat(0.10),
		MaxPortfolioRisk: decimal.NewFromFloat(0.02),
		MaxPositions:     10,
	}
}

// LimitsFromConfig builds limits from a bot configuration, falling back to
// defaults for unset fields.
func LimitsFromConfig(cfg model.BotConfig) Limits {
	limits := DefaultLimits()
	if cfg.MaxPositionSize > 0 {
		limits.MaxPositionSize = decimal.NewFromFloat(cfg.MaxPositionSize)
	}
	if cfg.StopLossPct > 0 {
		limits.StopLossPct = decimal.NewFromFloat(cfg.StopLossPct)
	}
	if cfg.TakeProfitPct > 0 {
		limits.TakeProfitPct = decimal.NewFromFloat(cfg.TakeProfitPct)
	}
	if cfg.MaxPortfolioRisk > 0 {
		limits.MaxPortfolioRisk = decimal.NewFromFloat(cfg.MaxPortfolioRisk)
	}
	if cfg.MaxPositions > 0 {
		limits.MaxPositions = cfg.MaxPositions
	}
	return limits
}

// PositionExposure is one open position as the gate sees it.
type PositionExposure struct {
	Symbol   string
	Quantity decimal.Decimal
	Value    decimal.Decimal
}

// Snapshot is a point-in-time view of the portfolio used for the decision.
type Snapshot struct {
	Cash       decimal.Decimal
	TotalValue decimal.Decimal
	Positions  []PositionExposure
}

// Proposal is a trade candidate derived from an aggregated signal.
type Proposal struct {
	Symbol string
	Action string // model.ActionBuy or model.ActionSell
	Price  decimal.Decimal
}

// Decision is the gate's verdict. Quantity is only meaningful when Approved.
type Decision struct {
	Approved bool
	Quantity decimal.Decimal
	Reason   string
}

func reject(reason string) Decision {
	return Decision{Approved: false, Quantity: decimal.Zero, Reason: reason}
}

// Approve checks the proposal against the limits and sizes the trade.
//
// BUY sizing: quantity = floor(total_value × max_position_size / price),
// whole units, additionally capped by available cash. SELL always liquidates
// the full held quantity.
func Approve(proposal Proposal, snap Snapshot, limits Limits) Decision {
	if proposal.Price.LessThanOrEqual(decimal.Zero) {
		return reject(ReasonBadPrice)
	}

	switch proposal.Action {
	case model.ActionBuy:
		return approveBuy(proposal, snap, limits)
	case model.ActionSell:
		return approveSell(proposal, snap)
	default:
		return reject(ReasonHold)
	}
}

func approveBuy(proposal Proposal, snap Snapshot, limits Limits) Decision {
	if len(snap.Positions) >= limits.MaxPositions {
		return reject(ReasonMaxPositions)
	}

	maxValue := snap.TotalValue.Mul(limits.MaxPositionSize)
	quantity := maxValue.Div(proposal.Price).Floor()
	if quantity.LessThanOrEqual(decimal.Zero) {
		return reject(ReasonZeroQuantity)
	}

	cost := quantity.Mul(proposal.Price)
	if cost.GreaterThan(snap.Cash) {
		// Shrink to what cash allows before giving up.
		quantity = snap.Cash.Div(proposal.Price).Floor()
		if quantity.LessThanOrEqual(decimal.Zero) {
			return reject(ReasonInsufficientCash)
		}
		cost = quantity.Mul(proposal.Price)
	}

	if cost.GreaterThan(maxValue) {
		return reject(ReasonPositionTooLarge)
	}

	// At-risk capital across open positions plus the new one, each weighted
	// by the stop-loss distance, must stay within the portfolio risk budget.
	atRisk := cost.Mul(limits.StopLossPct)
	for _, p := range snap.Positions {
		atRisk = atRisk.Add(p.Value.Mul(limits.StopLossPct))
	}
	if atRisk.GreaterThan(snap.TotalValue.Mul(limits.MaxPortfolioRisk)) {
		return reject(ReasonPortfolioRisk)
	}

	return Decision{Approved: true, Quantity: quantity, Reason: ReasonApproved}
}

func approveSell(proposal Proposal, snap Snapshot) Decision {
	for _, p := range snap.Positions {
		if p.Symbol == proposal.Symbol {
			if p.Quantity.LessThanOrEqual(decimal.Zero) {
				return reject(ReasonNoPosition)
			}
			return Decision{Approved: true, Quantity: p.Quantity, Reason: ReasonApproved}
		}
	}
	return reject(ReasonNoPosition)
}

// StopLossPrice is the exit price below entry at which a long position is
// abandoned.
func StopLossPrice(entry decimal.Decimal, limits Limits) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(1).Sub(limits.StopLossPct))
}

// TakeProfitPrice is the exit price above entry at which gains are realized.
func TakeProfitPrice(entry decimal.Decimal, limits Limits) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(1).Add(limits.TakeProfitPct))
}
