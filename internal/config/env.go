package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// applyEnv overlays POSEKIT_* variables onto cfg. Unset variables leave the
// file or default value in place.
func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}
