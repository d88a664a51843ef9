// pkg/render/engo/scene_test.go
package engo

import (
	"testing"

	"github.com/opd-ai/go-quadcollide/pkg/config"
)

func TestNewScene(t *testing.T) {
	cfg := config.DefaultConfig()
	scene := NewScene(cfg, nil)

	if scene == nil {
		t.Fatal("NewScene() returned nil")
	}
	if scene.config != cfg {
		t.Error("Expected config to be set correctly")
	}
	if scene.logger == nil {
		t.Error("Expected a discard logger when none is given")
	}
	if scene.messages == nil {
		t.Error("Expected a message manager to be created")
	}
}

func TestScene_Type(t *testing.T) {
	scene := NewScene(config.DefaultConfig(), nil)

	if got := scene.Type(); got != "QuadcollideScene" {
		t.Errorf("Expected Type() to return %q, got %q", "QuadcollideScene", got)
	}
}
