package broadcast

import (
	"fmt"
	"time"
)

// Config shapes a broadcast session. Zero values fall back to defaults, so
// an empty Config runs the complete scenario at the standard pacing.
type Config struct {
	// Scenario is the per-tick message sequence. Zero: complete.
	Scenario Scenario
	// Interval is the pause between ticks; the time controller driving
	// the agent runs at this tick size. Zero: 2s.
	Interval time.Duration
	// MessageGap is the pause between messages inside one tick. The
	// flight and everything sequences run at half this gap. Zero: 100ms;
	// negative disables the gap.
	MessageGap time.Duration
	// BaseTopic prefixes broker topics: <base>/drones/<uid>,
	// <base>/status, <base>/system. Zero: "wardragon".
	BaseTopic string
}

// ApplyDefaults returns cfg with zero fields replaced by their defaults.
func (cfg Config) ApplyDefaults() Config {
	if cfg.Scenario == "" {
		cfg.Scenario = ScenarioComplete
	}
	if cfg.Interval == 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MessageGap == 0 {
		cfg.MessageGap = 100 * time.Millisecond
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "wardragon"
	}
	return cfg
}

// Validate rejects values ApplyDefaults cannot repair.
func (cfg Config) Validate() error {
	if _, err := ParseScenario(string(cfg.Scenario)); err != nil {
		return err
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("broadcast: interval must be positive, got %v", cfg.Interval)
	}
	if cfg.BaseTopic == "" {
		return fmt.Errorf("broadcast: base topic must not be empty")
	}
	return nil
}
