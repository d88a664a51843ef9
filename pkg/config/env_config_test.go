package config

import (
	"testing"
)

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Run("NoVariables", func(t *testing.T) {
		for _, key := range []string{
			"QUADCOLLIDE_DEPTH",
			"QUADCOLLIDE_POOL_DEPTH",
			"QUADCOLLIDE_BOUNDS",
			"QUADCOLLIDE_BODIES",
			"QUADCOLLIDE_SEED",
			"QUADCOLLIDE_METRICS_ADDR",
		} {
			t.Setenv(key, "")
		}

		config := DefaultConfig()
		if err := ApplyEnvironmentOverrides(config); err != nil {
			t.Fatalf("ApplyEnvironmentOverrides() failed: %v", err)
		}
		if *config != *DefaultConfig() {
			t.Errorf("Expected defaults to be untouched, got %+v", config)
		}
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("QUADCOLLIDE_DEPTH", "8")
		t.Setenv("QUADCOLLIDE_POOL_DEPTH", "6")
		t.Setenv("QUADCOLLIDE_BOUNDS", "-500, -500, 1000, 1000")
		t.Setenv("QUADCOLLIDE_BODIES", "2000")
		t.Setenv("QUADCOLLIDE_SEED", "99")
		t.Setenv("QUADCOLLIDE_METRICS_ADDR", "127.0.0.1:9100")

		config := DefaultConfig()
		if err := ApplyEnvironmentOverrides(config); err != nil {
			t.Fatalf("ApplyEnvironmentOverrides() failed: %v", err)
		}

		if config.Collision.Depth != 8 {
			t.Errorf("Expected Depth 8, got %d", config.Collision.Depth)
		}
		if config.Collision.PoolDepth != 6 {
			t.Errorf("Expected PoolDepth 6, got %d", config.Collision.PoolDepth)
		}
		expected := BoundsConfig{X: -500, Y: -500, Width: 1000, Height: 1000}
		if config.Collision.Bounds != expected {
			t.Errorf("Expected bounds %+v, got %+v", expected, config.Collision.Bounds)
		}
		if config.Simulation.Bodies != 2000 {
			t.Errorf("Expected 2000 bodies, got %d", config.Simulation.Bodies)
		}
		if config.Simulation.Seed != 99 {
			t.Errorf("Expected seed 99, got %d", config.Simulation.Seed)
		}
		if !config.Metrics.Enabled || config.Metrics.Addr != "127.0.0.1:9100" {
			t.Errorf("Expected metrics on 127.0.0.1:9100, got %+v", config.Metrics)
		}
	})

	t.Run("InvalidValues", func(t *testing.T) {
		tests := []struct {
			key   string
			value string
		}{
			{"QUADCOLLIDE_DEPTH", "deep"},
			{"QUADCOLLIDE_DEPTH", "-1"},
			{"QUADCOLLIDE_DEPTH", "13"},
			{"QUADCOLLIDE_POOL_DEPTH", "11"},
			{"QUADCOLLIDE_BOUNDS", "1,2,3"},
			{"QUADCOLLIDE_BOUNDS", "0,0,-10,10"},
			{"QUADCOLLIDE_BODIES", "many"},
			{"QUADCOLLIDE_SEED", "-3"},
		}

		for _, tt := range tests {
			t.Run(tt.key+"="+tt.value, func(t *testing.T) {
				t.Setenv(tt.key, tt.value)
				if err := ApplyEnvironmentOverrides(DefaultConfig()); err == nil {
					t.Errorf("Expected error for %s=%q", tt.key, tt.value)
				}
			})
		}
	})
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		input    string
		expected BoundsConfig
		wantErr  bool
	}{
		{"0,0,100,50", BoundsConfig{Width: 100, Height: 50}, false},
		{" 1.5 , -2 , 3 , 4 ", BoundsConfig{X: 1.5, Y: -2, Width: 3, Height: 4}, false},
		{"", BoundsConfig{}, true},
		{"1,2,3,4,5", BoundsConfig{}, true},
		{"a,b,c,d", BoundsConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBounds(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBounds(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseBounds(%q) = %+v, expected %+v", tt.input, got, tt.expected)
			}
		})
	}
}
