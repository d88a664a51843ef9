// cmd/ebitenview/main.go
package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/engine"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
	ebitenrender "github.com/opd-ai/go-quadcollide/pkg/render/ebiten"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithRunID(context.Background(), logging.GenerateRunID())

	configPath := flag.String("config", "quadsim.yaml", "Path to configuration file (.yaml or .json)")
	width := flag.Int("width", 1024, "Window width")
	height := flag.Int("height", 768, "Window height")
	flag.Parse()

	cfg := config.DefaultConfig()
	watchable := false
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
	} else {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		watchable = true
	}
	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}

	world := engine.NewWorld(cfg, logger)
	world.Populate(rand.New(rand.NewPCG(cfg.Simulation.Seed, cfg.Simulation.Seed^0x9e3779b97f4a7c15)))
	world.Start()
	defer world.Stop()

	if watchable {
		if watcher, err := config.NewWatcher(*configPath); err == nil {
			defer watcher.Close()
			go world.WatchConfig(ctx, watcher)
		}
	}

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("quadcollide")
	ebiten.SetTPS(cfg.Simulation.TickRate)

	if err := ebiten.RunGame(ebitenrender.NewViewer(world, *width, *height)); err != nil {
		logger.Error(ctx, "Viewer stopped", err)
		os.Exit(1)
	}
}
