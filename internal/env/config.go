package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config carries the environment-derived defaults for a session. Command
// line flags take precedence over every field here.
type Config struct {
	Host      string `env:"RCON_HOST"`
	Port      int    `env:"RCON_PORT"`
	Protocol  string `env:"RCON_PROTOCOL"`
	Password  string `env:"RCON_PASSWORD"`
	TimeoutMS int    `env:"RCON_TIMEOUT_MS"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
