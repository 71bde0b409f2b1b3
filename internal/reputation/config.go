// Package reputation implements the trust scoring engine: the per-server
// score table, its time decay, the multi-factor score update and the
// feedback derivation step.
package reputation

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// weightTolerance absorbs float representation error when checking that the
// factor weights sum to 1.0.
const weightTolerance = 1e-9

// Config holds the reputation policy parameters.
type Config struct {
	// Factor weights. Must sum to 1.0.
	WeightSatisfaction float64 `yaml:"weight_satisfaction"`
	WeightReliability  float64 `yaml:"weight_reliability"`
	WeightLatency      float64 `yaml:"weight_latency"`
	WeightCost         float64 `yaml:"weight_cost"`

	// MinThreshold is the score below which routing is blocked.
	MinThreshold float64 `yaml:"min_threshold"`
	// Alpha is the EMA smoothing factor.
	Alpha float64 `yaml:"alpha"`
	// MaxAcceptableLatency is the latency ceiling in seconds; at or beyond
	// it the latency factor is zero.
	MaxAcceptableLatency float64 `yaml:"max_acceptable_latency"`
	// CostBenchmark is the fallback unit cost when no market average exists.
	CostBenchmark float64 `yaml:"cost_benchmark"`
	// InitialScore is the starting score for unverified servers and the
	// baseline decay converges to.
	InitialScore float64 `yaml:"initial_score"`
	// DecayHalfLifeHours is the reputation decay half-life.
	DecayHalfLifeHours float64 `yaml:"decay_half_life_hours"`
	// ProbeRate is the probability of admitting the best below-threshold
	// candidate as a recovery probe. Zero disables probing.
	ProbeRate float64 `yaml:"probe_rate"`
}

// DefaultConfig returns the baseline reputation policy.
func DefaultConfig() *Config {
	return &Config{
		WeightSatisfaction:   0.40,
		WeightReliability:    0.30,
		WeightLatency:        0.20,
		WeightCost:           0.10,
		MinThreshold:         0.70,
		Alpha:                0.1,
		MaxAcceptableLatency: 0.8,
		CostBenchmark:        0.005,
		InitialScore:         0.50,
		DecayHalfLifeHours:   24,
		ProbeRate:            0,
	}
}

// Validate checks the configuration. A failure here indicates corrupt
// configuration and should halt the process at startup.
func (c *Config) Validate() error {
	sum := c.WeightSatisfaction + c.WeightReliability + c.WeightLatency + c.WeightCost
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("factor weights must sum to 1.0, got %v", sum)
	}
	if c.WeightSatisfaction < 0 || c.WeightReliability < 0 || c.WeightLatency < 0 || c.WeightCost < 0 {
		return fmt.Errorf("factor weights must be non-negative")
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1], got %v", c.Alpha)
	}
	if c.MaxAcceptableLatency <= 0 {
		return fmt.Errorf("max_acceptable_latency must be positive, got %v", c.MaxAcceptableLatency)
	}
	if c.CostBenchmark <= 0 {
		return fmt.Errorf("cost_benchmark must be positive, got %v", c.CostBenchmark)
	}
	if c.InitialScore < 0 || c.InitialScore > 1 {
		return fmt.Errorf("initial_score must be in [0, 1], got %v", c.InitialScore)
	}
	if c.MinThreshold < 0 || c.MinThreshold > 1 {
		return fmt.Errorf("min_threshold must be in [0, 1], got %v", c.MinThreshold)
	}
	if c.DecayHalfLifeHours <= 0 {
		return fmt.Errorf("decay_half_life_hours must be positive, got %v", c.DecayHalfLifeHours)
	}
	if c.ProbeRate < 0 || c.ProbeRate >= 1 {
		return fmt.Errorf("probe_rate must be in [0, 1), got %v", c.ProbeRate)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromHome loads configuration from ~/.trustplane/config.yaml.
func LoadConfigFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(filepath.Join(home, ".trustplane", "config.yaml"))
}

// round4 rounds a score to 4 decimal digits for stable comparisons and
// persistence.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// clamp01 clamps a value to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
