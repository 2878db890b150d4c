package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingbot/src/database"
	"tradingbot/src/model"
)

// PositionRepository handles read/write operations for open positions.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.DB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// FindOpenByPortfolio returns all open positions for a portfolio.
func (r *PositionRepository) FindOpenByPortfolio(ctx context.Context, portfolioID uint) ([]model.Position, error) {
	var positions []model.Position
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND status = ?", portfolioID, model.PositionStatusOpen).
		Order("symbol ASC").
		Find(&positions).Error
	if err != nil {
		logger.WithError(err).WithField("portfolio_id", portfolioID).
			Error("Failed to fetch open positions")
		return nil, err
	}
	return positions, nil
}

// FindOpen returns the open position for one symbol, or (nil, nil).
func (r *PositionRepository) FindOpen(ctx context.Context, portfolioID uint, symbol string) (*model.Position, error) {
	var position model.Position
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND symbol = ? AND status = ?", portfolioID, symbol, model.PositionStatusOpen).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithFields(map[string]interface{}{
			"portfolio_id": portfolioID,
			"symbol":       symbol,
		}).Error("Failed to fetch open position")
		return nil, err
	}
	return &position, nil
}

// Save inserts or updates a position row.
func (r *PositionRepository) Save(ctx context.Context, position *model.Position) error {
	if err := r.db.WithContext(ctx).Save(position).Error; err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"portfolio_id": position.PortfolioID,
			"symbol":       position.Symbol,
		}).Error("Failed to save position")
		return err
	}
	return nil
}

// Close marks the open position for a symbol closed.
func (r *PositionRepository) Close(ctx context.Context, portfolioID uint, symbol string) error {
	logger.WithFields(map[string]interface{}{
		"repo":         "PositionRepository",
		"op":           "Close",
		"portfolio_id": portfolioID,
		"symbol":       symbol,
	}).Debug("Closing position")

	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("portfolio_id = ? AND symbol = ? AND status = ?", portfolioID, symbol, model.PositionStatusOpen).
		Updates(map[string]interface{}{
			"status":     model.PositionStatusClosed,
			"closed_at":  now,
			"updated_at": now,
		}).Error
	if err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"portfolio_id": portfolioID,
			"symbol":       symbol,
		}).Error("Failed to close position")
	}
	return err
}
