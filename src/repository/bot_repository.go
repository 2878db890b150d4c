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

// BotRepository handles read/write operations for bot rows.
type BotRepository struct {
	db *gorm.DB
}

// NewBotRepository creates a new repository instance using the main database.
func NewBotRepository() *BotRepository {
	return &BotRepository{db: database.DB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *BotRepository) WithDB(db *gorm.DB) *BotRepository {
	return &BotRepository{db: db}
}

// Create inserts a new bot. The given bot is updated with the generated ID
// and timestamps.
func (r *BotRepository) Create(ctx context.Context, bot *model.Bot) error {
	logger.WithFields(map[string]interface{}{
		"repo": "BotRepository",
		"op":   "Create",
		"name": bot.Name,
	}).Debug("Creating new bot")

	if err := r.db.WithContext(ctx).Create(bot).Error; err != nil {
		logger.WithError(err).WithField("name", bot.Name).Error("Failed to create bot")
		return err
	}
	return nil
}

// FindByID fetches a bot by primary key. Returns (nil, nil) when not found.
func (r *BotRepository) FindByID(ctx context.Context, id uint) (*model.Bot, error) {
	var bot model.Bot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithField("id", id).Error("Failed to fetch bot by ID")
		return nil, err
	}
	return &bot, nil
}

// FindByName fetches a bot by its unique name. Returns (nil, nil) when not found.
func (r *BotRepository) FindByName(ctx context.Context, name string) (*model.Bot, error) {
	var bot model.Bot
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&bot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithField("name", name).Error("Failed to fetch bot by name")
		return nil, err
	}
	return &bot, nil
}

// List returns bots ordered by creation time. When activeOnly is set,
// soft-deleted bots are excluded.
func (r *BotRepository) List(ctx context.Context, activeOnly bool) ([]model.Bot, error) {
	var bots []model.Bot
	query := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&bots).Error; err != nil {
		logger.WithError(err).Error("Failed to list bots")
		return nil, err
	}
	return bots, nil
}

// Update persists changed bot fields.
func (r *BotRepository) Update(ctx context.Context, bot *model.Bot) error {
	if err := r.db.WithContext(ctx).Save(bot).Error; err != nil {
		logger.WithError(err).WithField("id", bot.ID).Error("Failed to update bot")
		return err
	}
	return nil
}

// UpdateStatus sets the lifecycle status of a bot.
func (r *BotRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "BotRepository",
		"op":     "UpdateStatus",
		"id":     id,
		"status": status,
	}).Debug("Updating bot status")

	err := r.db.WithContext(ctx).
		Model(&model.Bot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
	if err != nil {
		logger.WithError(err).WithField("id", id).Error("Failed to update bot status")
	}
	return err
}

// UpdateLastRun stamps last_run_at after a completed poll cycle.
func (r *BotRepository) UpdateLastRun(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.Bot{}).
		Where("id = ?", id).
		Update("last_run_at", at).Error
	if err != nil {
		logger.WithError(err).WithField("id", id).Error("Failed to update bot last_run_at")
	}
	return err
}

// SoftDelete marks the bot deleted and clears the active flag. The row is
// never removed while signals and trades reference it.
func (r *BotRepository) SoftDelete(ctx context.Context, id uint) error {
	logger.WithFields(map[string]interface{}{
		"repo": "BotRepository",
		"op":   "SoftDelete",
		"id":   id,
	}).Info("Soft-deleting bot")

	err := r.db.WithContext(ctx).
		Model(&model.Bot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.BotStatusDeleted,
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		logger.WithError(err).WithField("id", id).Error("Failed to soft-delete bot")
	}
	return err
}
