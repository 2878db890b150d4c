package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradingbot/src/model"
)

// DB is the read/write database connection used by the application.
var DB *gorm.DB

// Init opens the database connection and runs migrations. The DSN selects
// the driver: a postgres:// URL opens PostgreSQL, anything else is treated
// as a SQLite file path. Call once at startup.
func Init() error {
	config := GetConfig()

	var dialector gorm.Dialector
	if strings.HasPrefix(config.DatabaseURL, "postgres://") || strings.HasPrefix(config.DatabaseURL, "postgresql://") {
		dialector = postgres.Open(config.DatabaseURL)
	} else {
		if dir := filepath.Dir(config.DatabaseURL); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(config.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	// Assign to the global only after a successful connection.
	DB = db

	logrus.Info("[database] connection established")

	if err := DB.AutoMigrate(
		&model.Bot{},
		&model.Portfolio{},
		&model.PortfolioSnapshot{},
		&model.Position{},
		&model.Signal{},
		&model.Trade{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("[database] migrations completed")

	return nil
}
