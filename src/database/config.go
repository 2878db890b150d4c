package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogLevel     string `envconfig:"LOG_LEVEL" default:"debug"`  // "debug", "info", "warn", "error"
	LogFormat    string `envconfig:"LOG_FORMAT" default:"text"`  // "json" or "text"
	DatabaseURL  string `envconfig:"DATABASE_URL" default:"data/trading_bot.db"`
	GormLogLevel int    `envconfig:"GORM_LOG_LEVEL" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
