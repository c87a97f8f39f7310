package internal

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	SocketPath      string        `env:"SOCKET_PATH,default=/tmp/socket_test" validate:"required,max=107"`
	MaxPeers        int           `env:"MAX_PEERS,default=32" validate:"min=1"`
	BufferLength    int           `env:"BUFFER_LENGTH,default=128" validate:"min=2"`
	PublishInterval time.Duration `env:"PUBLISH_INTERVAL,default=1s" validate:"gt=0"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=10s" validate:"gt=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := Validate(config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func Validate(config Config) error {
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
