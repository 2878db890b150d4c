package model

import "time"

// Portfolio tracks cash against an initial capital. Several bots may share
// one portfolio; mutations are serialized by the ledger, not here.
type Portfolio struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	InitialCapital float64   `gorm:"not null" json:"initial_capital"`
	CurrentCash    float64   `gorm:"not null" json:"current_cash"`
	TotalValue     float64   `gorm:"not null" json:"total_value"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PortfolioSnapshot is an append-only valuation record written after every
// applied trade and on demand.
type PortfolioSnapshot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PortfolioID    uint      `gorm:"not null;index" json:"portfolio_id"`
	Cash           float64   `gorm:"not null" json:"cash"`
	PositionsValue float64   `gorm:"not null" json:"positions_value"`
	TotalValue     float64   `gorm:"not null" json:"total_value"`
	TotalPnl       float64   `gorm:"not null" json:"total_pnl"`
	TotalPnlPct    float64   `gorm:"not null" json:"total_pnl_pct"`
	CreatedAt      time.Time `json:"created_at"`
}
