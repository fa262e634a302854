package config

import (
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable. The rescan interval is
// intentionally not validated here: the engine clamps out-of-range values at
// start and logs the adjustment instead of refusing to run.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateRetire(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatch() error {
	for _, root := range c.Watch.Roots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("watch.roots entry %q must be an absolute path", root)
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Policy {
	case OutputPolicyCoexist, OutputPolicyReplace:
	default:
		return fmt.Errorf("output.policy must be %q or %q, got %q", OutputPolicyCoexist, OutputPolicyReplace, c.Output.Policy)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100, got %d", c.Output.Quality)
	}
	return nil
}

func (c *Config) validateRetire() error {
	switch c.Retire.Strategy {
	case RetireStrategyTrashDir, RetireStrategySystem:
	default:
		return fmt.Errorf("retire.strategy must be %q or %q, got %q", RetireStrategyTrashDir, RetireStrategySystem, c.Retire.Strategy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
