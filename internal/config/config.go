// Package config loads the engine's YAML runtime configuration and
// the exercise catalog.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gymgate/engine/internal/domain"
)

// EconomyConfig selects which apps participate in the earn/spend
// economy. Apps listed here have measured usage charged against the
// wallet; all other apps are tracked only.
type EconomyConfig struct {
	TrackedApps []string `yaml:"tracked_apps"`
}

// ExerciseOverride adjusts catalog defaults for one exercise type.
// Zero-valued fields keep the built-in default.
type ExerciseOverride struct {
	UpAngle         float64 `yaml:"up_angle"`
	DownAngle       float64 `yaml:"down_angle"`
	RatePerUnit     float64 `yaml:"rate_per_unit"`
	MinimumUnits    float64 `yaml:"minimum_units"`
	BonusThreshold  float64 `yaml:"bonus_threshold"`
	BonusMultiplier float64 `yaml:"bonus_multiplier"`
}

// Config holds the engine's runtime configuration.
type Config struct {
	DBPath          string                      `yaml:"db_path"`
	ListenAddr      string                      `yaml:"listen_addr"`
	SchedulePath    string                      `yaml:"schedule_path"`
	SyncIntervalSec int                         `yaml:"sync_interval_sec"`
	UsageSourceURL  string                      `yaml:"usage_source_url"`
	Economy         EconomyConfig               `yaml:"economy"`
	Exercises       map[string]ExerciseOverride `yaml:"exercises"`
}

// Load reads a YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9810"
	}
	if c.SyncIntervalSec == 0 {
		c.SyncIntervalSec = 30
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.DBPath == "" {
		problems = append(problems, "db_path is required")
	}
	if c.SyncIntervalSec < 0 {
		problems = append(problems, "sync_interval_sec must not be negative")
	}
	for name, ov := range c.Exercises {
		if _, ok := defaultCatalog[domain.ExerciseType(name)]; !ok {
			problems = append(problems, fmt.Sprintf("unknown exercise %q", name))
		}
		if ov.RatePerUnit < 0 {
			problems = append(problems, fmt.Sprintf("exercise %q: rate_per_unit must not be negative", name))
		}
		if ov.BonusMultiplier != 0 && ov.BonusMultiplier <= 1 {
			problems = append(problems, fmt.Sprintf("exercise %q: bonus_multiplier must exceed 1", name))
		}
		if ov.UpAngle != 0 && ov.DownAngle != 0 && ov.UpAngle <= ov.DownAngle {
			problems = append(problems, fmt.Sprintf("exercise %q: up_angle must exceed down_angle", name))
		}
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}

// Catalog returns the exercise catalog with this config's overrides
// applied. The returned map is a fresh copy on every call.
func (c *Config) Catalog() map[domain.ExerciseType]domain.ExerciseSpec {
	out := make(map[domain.ExerciseType]domain.ExerciseSpec, len(defaultCatalog))
	for t, spec := range defaultCatalog {
		if spec.Rep != nil {
			cp := *spec.Rep
			spec.Rep = &cp
		}
		if spec.Hold != nil {
			cp := *spec.Hold
			spec.Hold = &cp
		}
		if ov, ok := c.Exercises[string(t)]; ok {
			applyOverride(&spec, ov)
		}
		out[t] = spec
	}
	return out
}

func applyOverride(spec *domain.ExerciseSpec, ov ExerciseOverride) {
	if spec.Rep != nil {
		if ov.UpAngle != 0 {
			spec.Rep.UpAngle = ov.UpAngle
		}
		if ov.DownAngle != 0 {
			spec.Rep.DownAngle = ov.DownAngle
		}
	}
	if ov.RatePerUnit != 0 {
		spec.Reward.RatePerUnit = ov.RatePerUnit
	}
	if ov.MinimumUnits != 0 {
		spec.Reward.MinimumUnits = ov.MinimumUnits
	}
	if ov.BonusThreshold != 0 {
		spec.Reward.BonusThreshold = ov.BonusThreshold
	}
	if ov.BonusMultiplier != 0 {
		spec.Reward.BonusMultiplier = ov.BonusMultiplier
	}
}

// TrackedSet returns the economy membership as a lookup set.
func (c *Config) TrackedSet() map[string]bool {
	set := make(map[string]bool, len(c.Economy.TrackedApps))
	for _, app := range c.Economy.TrackedApps {
		set[app] = true
	}
	return set
}
