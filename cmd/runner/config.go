package runner

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// BotNames limits the runner to specific bots, comma separated. Empty
	// means every active bot.
	BotNames []string `envconfig:"RUN_BOTS"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
