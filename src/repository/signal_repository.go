package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingbot/src/database"
	"tradingbot/src/model"
)

// SignalRepository handles persistence of strategy signals.
type SignalRepository struct {
	db *gorm.DB
}

func NewSignalRepository() *SignalRepository {
	return &SignalRepository{db: database.DB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SignalRepository) WithDB(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create inserts a new signal row.
func (r *SignalRepository) Create(ctx context.Context, signal *model.Signal) error {
	logger.WithFields(map[string]interface{}{
		"repo":     "SignalRepository",
		"op":       "Create",
		"bot_id":   signal.BotID,
		"symbol":   signal.Symbol,
		"action":   signal.Action,
		"strategy": signal.Strategy,
	}).Debug("Creating signal")

	if err := r.db.WithContext(ctx).Create(signal).Error; err != nil {
		logger.WithError(err).WithField("bot_id", signal.BotID).Error("Failed to create signal")
		return err
	}
	return nil
}

// MarkExecuted flips the executed flag. Set at most once, when the resulting
// trade has been applied to the ledger.
func (r *SignalRepository) MarkExecuted(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&model.Signal{}).
		Where("id = ?", id).
		Update("executed", true).Error
	if err != nil {
		logger.WithError(err).WithField("id", id).Error("Failed to mark signal executed")
	}
	return err
}

// SignalSearchOptions filters signal listings.
type SignalSearchOptions struct {
	BotID         *uint
	Symbol        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// Search lists signals newest first with optional filters.
func (r *SignalRepository) Search(ctx context.Context, options SignalSearchOptions) ([]model.Signal, error) {
	if options.Limit <= 0 {
		options.Limit = 50
	}

	query := r.db.WithContext(ctx).Model(&model.Signal{})
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

	var signals []model.Signal
	err := query.
		Order("created_at DESC, id DESC").
		Limit(options.Limit).
		Offset(options.Offset).
		Find(&signals).Error
	if err != nil {
		logger.WithError(err).Error("Failed to search signals")
		return nil, err
	}
	return signals, nil
}
