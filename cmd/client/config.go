package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SocketPath string `envconfig:"RELAY_SOCKET_PATH" default:"/tmp/socket_test"`
	// RELAY_BUFFER_LENGTH is the size of one read, it should match the relay's BUFFER_LENGTH
	BufferLength int `envconfig:"RELAY_BUFFER_LENGTH" default:"128"`
	// RELAY_COLOURS enables colorized output
	Colours bool `envconfig:"RELAY_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
