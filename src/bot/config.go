package bot

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DefaultRunInterval time.Duration `envconfig:"BOT_RUN_INTERVAL" default:"60s"`
	LookbackPadding    int           `envconfig:"BOT_LOOKBACK_PADDING" default:"10"`
	MaxCycleFailures   int           `envconfig:"BOT_MAX_CYCLE_FAILURES" default:"3"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
