package model

import "time"

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Signal is one strategy recommendation for one symbol in one poll cycle.
// Rows are immutable after creation except Executed, which flips to true at
// most once when a resulting trade is applied.
type Signal struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BotID      uint      `gorm:"not null;index" json:"bot_id"`
	Symbol     string    `gorm:"size:50;not null;index" json:"symbol"`
	Action     string    `gorm:"size:10;not null" json:"action"`
	Strategy   string    `gorm:"size:100;not null" json:"strategy"`
	Price      float64   `gorm:"not null" json:"price"`
	Confidence float64   `gorm:"not null" json:"confidence"`
	Executed   bool      `gorm:"not null;default:false" json:"executed"`
	CreatedAt  time.Time `json:"created_at"`
}
