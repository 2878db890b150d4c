package model

import "time"

// Trade is an executed change to portfolio holdings. Rows are immutable and
// only exist for signals the risk gate approved and the ledger applied.
type Trade struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Reference   string    `gorm:"size:64;not null;uniqueIndex" json:"reference"`
	PortfolioID uint      `gorm:"not null;index" json:"portfolio_id"`
	BotID       uint      `gorm:"index" json:"bot_id"`
	SignalID    *uint     `gorm:"index" json:"signal_id,omitempty"`
	Symbol      string    `gorm:"size:50;not null;index" json:"symbol"`
	Action      string    `gorm:"size:10;not null" json:"action"`
	Quantity    float64   `gorm:"not null" json:"quantity"`
	Price       float64   `gorm:"not null" json:"price"`
	Value       float64   `gorm:"not null" json:"value"`
	Strategy    string    `gorm:"size:100" json:"strategy"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
