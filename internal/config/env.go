package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g. XYSIM_TEMPERATURE or
// XYSIM_SCAN_WORKERS.
const EnvPrefix = "XYSIM_"

// ApplyEnv overrides cfg with any XYSIM_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
