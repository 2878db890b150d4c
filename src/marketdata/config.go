package marketdata

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	// DataSource selects the provider: binance, http or sim.
	DataSource    string `envconfig:"DATA_SOURCE" default:"sim"`
	HTTPBaseURL   string `envconfig:"MARKET_HTTP_BASE_URL" default:"https://data.alpaca.markets"`
	HTTPAPIKey    string `envconfig:"MARKET_HTTP_API_KEY"`
	HTTPAPISecret string `envconfig:"MARKET_HTTP_API_SECRET"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// FromEnv builds the provider named by DATA_SOURCE, wrapped in the guard.
func FromEnv() Provider {
	return New("")
}

// New builds the named provider wrapped in the guard. An empty source uses
// the environment default; unknown sources fall back to the simulator.
func New(source string) Provider {
	config := GetConfig()
	if source == "" {
		source = config.DataSource
	}

	var inner Provider
	switch source {
	case "binance":
		inner = NewBinanceProvider()
	case "http":
		inner = NewHTTPProvider(config.HTTPBaseURL, config.HTTPAPIKey, config.HTTPAPISecret)
	case "sim":
		inner = NewSimProvider()
	default:
		logger.WithField("data_source", source).Warn("unknown data source, using simulator")
		inner = NewSimProvider()
	}

	logger.WithField("data_source", source).Info("market data provider ready")
	return NewGuard(inner, GuardConfig{})
}
