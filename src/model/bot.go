package model

import "time"

const (
	BotStatusStopped = "stopped"
	BotStatusRunning = "running"
	BotStatusPaused  = "paused"
	BotStatusError   = "error"
	BotStatusDeleted = "deleted"
)

// StrategyConfig names one strategy plus its tuning parameters.
// Params left empty means the strategy's defaults apply.
type StrategyConfig struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params,omitempty"`
}

// BotConfig is decoded once at creation/start and validated by the manager.
// It is stored serialized on the bot row, never re-parsed per cycle.
//
// The risk fields (MaxPositionSize, StopLossPct, TakeProfitPct,
// MaxPortfolioRisk, MaxPositions) fall back to the risk package defaults when
// left at zero; an omitted Timeframe defaults to "1d" at creation.
type BotConfig struct {
	Symbols            []string         `json:"symbols"`
	Strategies         []StrategyConfig `json:"strategies"`
	InitialCapital     float64          `json:"initial_capital"`
	MaxPositionSize    float64          `json:"max_position_size"`
	StopLossPct        float64          `json:"stop_loss_pct"`
	TakeProfitPct      float64          `json:"take_profit_pct"`
	MaxPortfolioRisk   float64          `json:"max_portfolio_risk"`
	MaxPositions       int              `json:"max_positions"`
	Timeframe          string           `json:"timeframe"`
	DataSource         string           `json:"data_source"`
	PaperTrading       bool             `json:"paper_trading"`
	RunIntervalSeconds int              `json:"run_interval_seconds"`
}

// Bot is a configured trading bot. Rows are soft-deleted only: status goes to
// "deleted" and IsActive is cleared, history keeps referencing the row.
type Bot struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string     `gorm:"size:512" json:"description"`
	PortfolioID uint       `gorm:"index" json:"portfolio_id"`
	Status      string     `gorm:"size:50;not null;default:stopped" json:"status"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	Config      BotConfig  `gorm:"serializer:json" json:"config"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
