// pkg/config/env.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvironmentOverrides replaces values in config with the ones found in
// QUADCOLLIDE_* environment variables and validates the result.
func ApplyEnvironmentOverrides(config *Config) error {
	if v, ok := lookup("QUADCOLLIDE_DEPTH"); ok {
		depth, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid QUADCOLLIDE_DEPTH: %w", err)
		}
		config.Collision.Depth = uint(depth)
	}

	if v, ok := lookup("QUADCOLLIDE_POOL_DEPTH"); ok {
		depth, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid QUADCOLLIDE_POOL_DEPTH: %w", err)
		}
		config.Collision.PoolDepth = uint(depth)
	}

	if v, ok := lookup("QUADCOLLIDE_BOUNDS"); ok {
		bounds, err := ParseBounds(v)
		if err != nil {
			return fmt.Errorf("invalid QUADCOLLIDE_BOUNDS: %w", err)
		}
		config.Collision.Bounds = bounds
	}

	if v, ok := lookup("QUADCOLLIDE_BODIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QUADCOLLIDE_BODIES: %w", err)
		}
		config.Simulation.Bodies = n
	}

	if v, ok := lookup("QUADCOLLIDE_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid QUADCOLLIDE_SEED: %w", err)
		}
		config.Simulation.Seed = seed
	}

	if v, ok := lookup("QUADCOLLIDE_METRICS_ADDR"); ok {
		config.Metrics.Addr = v
		config.Metrics.Enabled = true
	}

	return config.Validate()
}

// ParseBounds parses bounds written as "x,y,width,height"
func ParseBounds(s string) (BoundsConfig, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundsConfig{}, fmt.Errorf("expected x,y,width,height, got %q", s)
	}

	var values [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return BoundsConfig{}, fmt.Errorf("bad bounds component %q: %w", part, err)
		}
		values[i] = f
	}

	return BoundsConfig{
		X:      values[0],
		Y:      values[1],
		Width:  values[2],
		Height: values[3],
	}, nil
}

// lookup returns a trimmed, non-empty environment value
func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}
