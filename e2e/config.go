package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_MAX_PEERS is the relay capacity used by the scenarios
	MaxPeers     int `envconfig:"E2E_MAX_PEERS" default:"2"`
	BufferLength int `envconfig:"E2E_BUFFER_LENGTH" default:"32"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
