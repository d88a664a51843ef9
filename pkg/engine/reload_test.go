package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/event"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWorld_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	writeFile(t, path, "collision:\n  depth: 7\n  bounds: {x: 0, y: 0, width: 64, height: 32}\n")

	w := NewWorld(testConfig(), nil)
	var reloaded []string
	w.EventBus.Subscribe(event.ConfigReloaded, func(e event.Event) {
		reloaded = append(reloaded, e.(*event.ConfigEvent).Path)
	})

	require.NoError(t, w.Reload(context.Background(), path))
	assert.Equal(t, uint(7), w.Group.Depth())
	assert.Equal(t, physics.NewAABB(0, 0, 64, 32), w.Group.Bounds())
	assert.Equal(t, []string{path}, reloaded)
}

func TestWorld_ReloadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	writeFile(t, path, "collision:\n  depth: 99\n")

	var buf bytes.Buffer
	w := NewWorld(testConfig(), logging.NewLoggerWithWriter(&buf, "json"))
	before := w.Config

	err := w.Reload(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth 99 exceeds maximum")
	assert.Same(t, before, w.Config)
	assert.Equal(t, uint(4), w.Group.Depth())
	assert.Contains(t, buf.String(), "config reload rejected")

	assert.Error(t, w.Reload(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestWorld_WatchConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	writeFile(t, path, "collision:\n  depth: 4\n")

	watcher, err := config.NewWatcher(path)
	require.NoError(t, err)
	defer watcher.Close()

	w := NewWorld(testConfig(), nil)
	done := make(chan struct{}, 1)
	w.EventBus.Subscribe(event.ConfigReloaded, func(event.Event) {
		select {
		case done <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.WatchConfig(ctx, watcher)
		close(stopped)
	}()

	writeFile(t, path, "collision:\n  depth: 9\n")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Equal(t, uint(9), w.Group.Depth())

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("WatchConfig did not return after cancel")
	}
}
