package model

import "time"

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

type Position struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PortfolioID  uint       `gorm:"not null;index" json:"portfolio_id"`
	Symbol       string     `gorm:"size:50;not null;index" json:"symbol"`
	Quantity     float64    `gorm:"not null" json:"quantity"`
	EntryPrice   float64    `gorm:"not null" json:"entry_price"`
	CurrentPrice float64    `gorm:"not null" json:"current_price"`
	StopLoss     *float64   `json:"stop_loss,omitempty"`
	TakeProfit   *float64   `json:"take_profit,omitempty"`
	Status       string     `gorm:"size:50;not null;default:open" json:"status"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MarketValue is the position's worth at the last observed price.
func (p *Position) MarketValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// CostBasis is what was paid for the position.
func (p *Position) CostBasis() float64 {
	return p.Quantity * p.EntryPrice
}

// UnrealizedPnl is the open profit or loss against the entry price.
func (p *Position) UnrealizedPnl() float64 {
	return (p.CurrentPrice - p.EntryPrice) * p.Quantity
}

// UnrealizedPnlPct is UnrealizedPnl as a percentage of cost basis.
func (p *Position) UnrealizedPnlPct() float64 {
	basis := p.CostBasis()
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPnl() / basis * 100
}
