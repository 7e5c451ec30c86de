package loka

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the environment-derived runtime configuration consumed by the
// CLI and the serve command.
type EnvConfig struct {
	LoopCap        int    `env:"LOKA_LOOP_CAP" envDefault:"10000"`
	NotifyCommands bool   `env:"LOKA_NOTIFY_COMMANDS" envDefault:"false"`
	Addr           string `env:"LOKA_ADDR" envDefault:":3000"`
	Debug          bool   `env:"LOKA_DEBUG" envDefault:"false"`
}

// LoadEnvConfig parses LOKA_* environment variables.
func LoadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("loka: parse environment: %w", err)
	}
	if cfg.LoopCap <= 0 {
		return EnvConfig{}, fmt.Errorf("loka: LOKA_LOOP_CAP must be positive, got %d", cfg.LoopCap)
	}
	return cfg, nil
}

// RuntimeConfig converts the environment configuration into a runtime
// Config.
func (c EnvConfig) RuntimeConfig() Config {
	return Config{
		LoopCap:        c.LoopCap,
		NotifyCommands: c.NotifyCommands,
	}
}
