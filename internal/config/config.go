// Package config loads the engine configuration recognized by the
// standard harness (spec.md §6): arraySize, maxSteps, stableSteps,
// executionMode, recordTrajectory, and seed. The engine package itself
// never reads this configuration directly — construction happens
// through sortengine's own constructor arguments — this package exists
// only so that a harness (cmd/emergesort, or any external caller) has
// one common, validated place to load it from a TOML file, the way the
// example pack's joeycumines-go-utilpkg carries BurntSushi/toml as an
// ambient dependency for exactly this kind of config-file loading.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ExecutionMode mirrors sortengine's execution-mode enumeration at the
// configuration boundary, as a string so it round-trips cleanly
// through TOML.
type ExecutionMode string

const (
	Sequential ExecutionMode = "SEQUENTIAL"
	ParallelM  ExecutionMode = "PARALLEL"
	LockBasedM ExecutionMode = "LOCK_BASED"
)

// Config is the engine configuration recognized by the standard
// harness, per spec.md §6.
type Config struct {
	ArraySize        int           `toml:"arraySize"`
	MaxSteps         int           `toml:"maxSteps"`
	StableSteps      int           `toml:"stableSteps"`
	ExecutionMode    ExecutionMode `toml:"executionMode"`
	RecordTrajectory bool          `toml:"recordTrajectory"`
	Seed             *int64        `toml:"seed"`
}

// Default returns the configuration the spec's default detector
// assumes: K=3, sequential, recording on, no fixed seed.
func Default() Config {
	return Config{
		ArraySize:        0,
		MaxSteps:         1000,
		StableSteps:      3,
		ExecutionMode:    Sequential,
		RecordTrajectory: true,
	}
}

// Load reads and validates a Config from a TOML file at path. Fields
// absent from the file keep Default's values.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated constraints from spec.md §6/§7.
func (c Config) Validate() error {
	if c.ArraySize <= 0 {
		return fmt.Errorf("config: arraySize must be positive, got %d", c.ArraySize)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("config: maxSteps must be positive, got %d", c.MaxSteps)
	}
	if c.StableSteps <= 0 {
		return fmt.Errorf("config: stableSteps must be positive, got %d", c.StableSteps)
	}
	switch c.ExecutionMode {
	case Sequential, ParallelM, LockBasedM:
	default:
		return fmt.Errorf("config: unrecognized executionMode %q", c.ExecutionMode)
	}
	return nil
}
