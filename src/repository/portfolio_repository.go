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

// PortfolioRepository handles read/write operations for portfolios and their
// valuation snapshots.
type PortfolioRepository struct {
	db *gorm.DB
}

func NewPortfolioRepository() *PortfolioRepository {
	return &PortfolioRepository{db: database.DB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PortfolioRepository) WithDB(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// Create inserts a new portfolio seeded with its initial capital.
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *model.Portfolio) error {
	logger.WithFields(map[string]interface{}{
		"repo":            "PortfolioRepository",
		"op":              "Create",
		"name":            portfolio.Name,
		"initial_capital": portfolio.InitialCapital,
	}).Debug("Creating new portfolio")

	if err := r.db.WithContext(ctx).Create(portfolio).Error; err != nil {
		logger.WithError(err).WithField("name", portfolio.Name).Error("Failed to create portfolio")
		return err
	}
	return nil
}

// FindByID fetches a portfolio by primary key. Returns (nil, nil) when not found.
func (r *PortfolioRepository) FindByID(ctx context.Context, id uint) (*model.Portfolio, error) {
	var portfolio model.Portfolio
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&portfolio).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithField("id", id).Error("Failed to fetch portfolio by ID")
		return nil, err
	}
	return &portfolio, nil
}

// FindActiveByName fetches the most recent active portfolio with the given
// name. Returns (nil, nil) when none exists.
func (r *PortfolioRepository) FindActiveByName(ctx context.Context, name string) (*model.Portfolio, error) {
	var portfolio model.Portfolio
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		Order("created_at DESC").
		First(&portfolio).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithField("name", name).Error("Failed to fetch portfolio by name")
		return nil, err
	}
	return &portfolio, nil
}

// UpdateValues persists the cash balance and recomputed total value.
func (r *PortfolioRepository) UpdateValues(ctx context.Context, id uint, cash, totalValue float64) error {
	err := r.db.WithContext(ctx).
		Model(&model.Portfolio{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_cash": cash,
			"total_value":  totalValue,
			"updated_at":   time.Now(),
		}).Error
	if err != nil {
		logger.WithError(err).WithField("id", id).Error("Failed to update portfolio values")
	}
	return err
}

// CreateSnapshot appends a valuation snapshot.
func (r *PortfolioRepository) CreateSnapshot(ctx context.Context, snapshot *model.PortfolioSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		logger.WithError(err).WithField("portfolio_id", snapshot.PortfolioID).
			Error("Failed to create portfolio snapshot")
		return err
	}
	return nil
}

// ListSnapshots returns the most recent snapshots for a portfolio, newest first.
func (r *PortfolioRepository) ListSnapshots(ctx context.Context, portfolioID uint, limit int) ([]model.PortfolioSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	var snapshots []model.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("id DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		logger.WithError(err).WithField("portfolio_id", portfolioID).
			Error("Failed to list portfolio snapshots")
		return nil, err
	}
	return snapshots, nil
}
