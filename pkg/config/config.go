// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// MaxDepth is the deepest tree a configuration may ask for
const MaxDepth uint = 12

// Config contains configuration for a collision simulation
type Config struct {
	Collision  CollisionConfig  `json:"collision" yaml:"collision"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
	Resources  ResourcesConfig  `json:"resources" yaml:"resources"`
}

// CollisionConfig configures the collision group
type CollisionConfig struct {
	Name      string       `json:"name" yaml:"name"`
	Bounds    BoundsConfig `json:"bounds" yaml:"bounds"`
	Depth     uint         `json:"depth" yaml:"depth"`
	PoolDepth uint         `json:"poolDepth" yaml:"poolDepth"`
}

// BoundsConfig is the nominal region covered by the tree root
type BoundsConfig struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// AABB converts the bounds to a box
func (b BoundsConfig) AABB() physics.AABB {
	return physics.NewAABB(b.X, b.Y, b.Width, b.Height)
}

// SimulationConfig contains the parameters of the random body scene
type SimulationConfig struct {
	Bodies     int     `json:"bodies" yaml:"bodies"`
	Seed       uint64  `json:"seed" yaml:"seed"`
	TickRate   int     `json:"tickRate" yaml:"tickRate"`
	Ticks      int     `json:"ticks" yaml:"ticks"`
	MinSize    float64 `json:"minSize" yaml:"minSize"`
	MaxSize    float64 `json:"maxSize" yaml:"maxSize"`
	MaxSpeed   float64 `json:"maxSpeed" yaml:"maxSpeed"`
	CrossCheck bool    `json:"crossCheck" yaml:"crossCheck"`
	Physics    string  `json:"physics" yaml:"physics"`
}

// Motion models for SimulationConfig.Physics
const (
	// PhysicsKinematic moves bodies in straight lines and reflects them
	// off the bounds. Bodies pass through each other.
	PhysicsKinematic = "kinematic"
	// PhysicsChipmunk steps the bodies through a chipmunk space, so they
	// bounce off each other as well as the bounds.
	PhysicsChipmunk = "chipmunk"
)

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// ResourcesConfig limits the background tasks of the simulator
type ResourcesConfig struct {
	MaxGoroutines   int   `json:"maxGoroutines" yaml:"maxGoroutines"`
	MaxMemoryMB     int64 `json:"maxMemoryMB" yaml:"maxMemoryMB"`
	ShutdownSeconds int   `json:"shutdownSeconds" yaml:"shutdownSeconds"`
}

// ShutdownTimeout returns ShutdownSeconds as a duration
func (r ResourcesConfig) ShutdownTimeout() time.Duration {
	return time.Duration(r.ShutdownSeconds) * time.Second
}

// LoadConfig loads a configuration from a file. Files ending in .yaml or
// .yml are parsed as YAML, anything else as JSON. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// SaveConfig saves a configuration to a file, in YAML or JSON depending on
// the extension.
func SaveConfig(config *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a default simulation configuration
func DefaultConfig() *Config {
	return &Config{
		Collision: CollisionConfig{
			Name: "bodies",
			Bounds: BoundsConfig{
				Width:  1024,
				Height: 1024,
			},
			Depth:     collision.DefaultDepth,
			PoolDepth: collision.DefaultPoolDepth,
		},
		Simulation: SimulationConfig{
			Bodies:   500,
			Seed:     1,
			TickRate: 60,
			MinSize:  4,
			MaxSize:  24,
			MaxSpeed: 120,
			Physics:  PhysicsKinematic,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Resources: ResourcesConfig{
			MaxGoroutines:   16,
			MaxMemoryMB:     512,
			ShutdownSeconds: 10,
		},
	}
}

// Validate checks the configuration for values the simulator cannot use
func (c *Config) Validate() error {
	var errs []error

	b := c.Collision.Bounds
	if b.Width < 0 || b.Height < 0 {
		errs = append(errs, fmt.Errorf("bounds size must not be negative, got %gx%g", b.Width, b.Height))
	}
	if !b.AABB().IsFinite() {
		errs = append(errs, errors.New("bounds must be finite"))
	}
	if c.Collision.Depth > MaxDepth {
		errs = append(errs, fmt.Errorf("depth %d exceeds maximum %d", c.Collision.Depth, MaxDepth))
	}
	if c.Collision.PoolDepth > collision.MaxPoolDepth {
		errs = append(errs, fmt.Errorf("pool depth %d exceeds maximum %d", c.Collision.PoolDepth, collision.MaxPoolDepth))
	}

	s := c.Simulation
	if s.Bodies < 0 {
		errs = append(errs, fmt.Errorf("body count must not be negative, got %d", s.Bodies))
	}
	if s.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick rate must be positive, got %d", s.TickRate))
	}
	if s.Ticks < 0 {
		errs = append(errs, fmt.Errorf("tick count must not be negative, got %d", s.Ticks))
	}
	if s.MinSize < 0 || s.MaxSize < s.MinSize {
		errs = append(errs, fmt.Errorf("body sizes must satisfy 0 <= min <= max, got %g..%g", s.MinSize, s.MaxSize))
	}
	if s.MaxSpeed < 0 {
		errs = append(errs, fmt.Errorf("max speed must not be negative, got %g", s.MaxSpeed))
	}
	switch s.Physics {
	case "", PhysicsKinematic, PhysicsChipmunk:
	default:
		errs = append(errs, fmt.Errorf("unknown physics %q, want %q or %q", s.Physics, PhysicsKinematic, PhysicsChipmunk))
	}

	r := c.Resources
	if r.MaxGoroutines <= 0 {
		errs = append(errs, fmt.Errorf("goroutine limit must be positive, got %d", r.MaxGoroutines))
	}
	if r.MaxMemoryMB <= 0 {
		errs = append(errs, fmt.Errorf("memory limit must be positive, got %d", r.MaxMemoryMB))
	}
	if r.ShutdownSeconds < 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must not be negative, got %d", r.ShutdownSeconds))
	}

	return errors.Join(errs...)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
