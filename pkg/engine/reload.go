package engine

import (
	"context"

	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/event"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
)

// WatchConfig applies every valid change to the watched file until ctx is
// done or the watcher is closed. Invalid files are logged and skipped.
func (w *World) WatchConfig(ctx context.Context, watcher *config.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-watcher.Events:
			if !ok {
				return
			}
			_ = w.Reload(ctx, path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.Logger.Error(ctx, "config watcher failed", err)
		}
	}
}

// Reload reads path, applies environment overrides and hands the result to
// ApplyConfig. The current settings are kept when the file is rejected.
func (w *World) Reload(ctx context.Context, path string) error {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		err = config.ApplyEnvironmentOverrides(cfg)
	}
	if err != nil {
		w.Logger.Error(ctx, "config reload rejected", err, "path", path)
		return logging.WrapError(err, "reload %s", path)
	}

	w.ApplyConfig(cfg)
	w.EventBus.Publish(event.NewConfigEvent(w, path))
	return nil
}
