package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

// Config drives the optional live-server suite. Leaving E2E_SERVER_URL
// empty skips every scenario, so the suite is safe to run in CI.
type Config struct {
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	StreamURL string `envconfig:"E2E_STREAM_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
