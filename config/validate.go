package config

import "fmt"

// MaxPositionsLimit bounds the slot count so a positions buffer stays within a
// single account allocation.
const MaxPositionsLimit = 1024

func ValidateConfig(c GlobalConfig) error {
	if _, err := c.Staking(); err != nil {
		return fmt.Errorf("staking: %w", err)
	}
	if c.MaxPositions <= 0 || c.MaxPositions > MaxPositionsLimit {
		return fmt.Errorf("staking: max_positions must be within [1, %d]", MaxPositionsLimit)
	}
	if c.EpochDuration == 0 {
		return fmt.Errorf("staking: epoch_duration must be positive")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB, BackendBolt:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: path required for %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}
