package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/l1jgo/ecscore/internal/core/ecs"
)

type Config struct {
	ECS     ECSConfig     `toml:"ecs"`
	Logging LoggingConfig `toml:"logging"`
}

// ECSConfig holds the registry growth tunables. Zero leaves the built-in
// default in place.
type ECSConfig struct {
	EntityGrow     uint32 `toml:"entity_grow"`
	ComponentGrow  uint32 `toml:"component_grow"`
	RangeGrow      uint32 `toml:"range_grow"`
	HierarchyBlock uint32 `toml:"hierarchy_block"` // power of two
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func (c ECSConfig) Tunables() ecs.Tunables {
	return ecs.Tunables{
		EntityGrow:     c.EntityGrow,
		ComponentGrow:  c.ComponentGrow,
		RangeGrow:      c.RangeGrow,
		HierarchyBlock: c.HierarchyBlock,
	}
}

func (c *Config) Validate() error {
	if b := c.ECS.HierarchyBlock; b != 0 && b&(b-1) != 0 {
		return fmt.Errorf("ecs.hierarchy_block %d is not a power of two", b)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format %q: want json or console", c.Logging.Format)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults(), nil
	}
	return cfg, err
}

func Defaults() *Config { return defaults() }

func defaults() *Config {
	return &Config{
		ECS: ECSConfig{
			EntityGrow:     ecs.DefaultEntityGrow,
			ComponentGrow:  ecs.DefaultComponentGrow,
			RangeGrow:      ecs.DefaultRangeGrow,
			HierarchyBlock: ecs.DefaultHierarchyBlock,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
