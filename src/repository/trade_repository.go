package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingbot/src/database"
	"tradingbot/src/model"
)

// TradeRepository handles persistence of executed trades.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.DB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade row.
func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":         "TradeRepository",
		"op":           "Create",
		"portfolio_id": trade.PortfolioID,
		"symbol":       trade.Symbol,
		"action":       trade.Action,
		"qty":          trade.Quantity,
	}).Debug("Creating trade")

	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithError(err).WithField("portfolio_id", trade.PortfolioID).Error("Failed to create trade")
		return err
	}
	return nil
}

// TradeSearchOptions filters trade listings.
type TradeSearchOptions struct {
	PortfolioID   *uint
	BotID         *uint
	Symbol        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// Search lists trades newest first with optional filters.
func (r *TradeRepository) Search(ctx context.Context, options TradeSearchOptions) ([]model.Trade, error) {
	if options.Limit <= 0 {
		options.Limit = 50
	}

	query := r.db.WithContext(ctx).Model(&model.Trade{})
	if options.PortfolioID != nil {
		query = query.Where("portfolio_id = ?", *options.PortfolioID)
	}
	if options.BotID != nil {
		query = query.Where("bot_id = ?", *options.BotID)
	}
	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}
	if options.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *options.CreatedAfter)
	}
	if options.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *options.CreatedBefore)
	}

	var trades []model.Trade
	err := query.
		Order("created_at DESC, id DESC").
		Limit(options.Limit).
		Offset(options.Offset).
		Find(&trades).Error
	if err != nil {
		logger.WithError(err).Error("Failed to search trades")
		return nil, err
	}
	return trades, nil
}
