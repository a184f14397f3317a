package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the secrets that may be supplied through the
// environment instead of the config file. Set values win over the file.
type envOverrides struct {
	Token     string `env:"MUSICBOT_TOKEN"`
	APIToken  string `env:"MUSICBOT_API_TOKEN"`
	BridgeURL string `env:"MUSICBOT_BRIDGE_URL"`
}

func applyEnv(cfg *Config) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if v := strings.TrimSpace(overrides.Token); v != "" {
		cfg.Bot.Token = v
	}
	if v := strings.TrimSpace(overrides.APIToken); v != "" {
		cfg.Bot.APIToken = v
	}
	if v := strings.TrimSpace(overrides.BridgeURL); v != "" {
		cfg.Bot.BridgeURL = v
	}
	return nil
}
