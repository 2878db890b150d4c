package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// APITokenHash is a bcrypt hash of the API token. Preferred in
	// production so the token never sits in the environment in clear.
	APITokenHash string `envconfig:"API_TOKEN_HASH"`
	// APIToken is the clear-text token, for local setups. Ignored when a
	// hash is configured.
	APIToken string `envconfig:"API_TOKEN"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
