// cmd/quadsim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/engine"
	"github.com/opd-ai/go-quadcollide/pkg/event"
	"github.com/opd-ai/go-quadcollide/pkg/health"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
	"github.com/opd-ai/go-quadcollide/pkg/render"
	"github.com/opd-ai/go-quadcollide/pkg/resource"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithRunID(context.Background(), logging.GenerateRunID())

	configPath := flag.String("config", "quadsim.yaml", "Path to configuration file (.yaml or .json)")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	ticks := flag.Int("ticks", -1, "Number of ticks to run, 0 runs until interrupted (overrides config)")
	ascii := flag.Bool("ascii", false, "Draw every tick as ASCII art on stdout")
	watch := flag.Bool("watch", true, "Reload collision settings when the configuration file changes")
	physicsModel := flag.String("physics", "", "Motion model, kinematic or chipmunk (overrides config)")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	cfg, found, err := loadConfig(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}
	if !found {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
	}
	if *ticks >= 0 {
		cfg.Simulation.Ticks = *ticks
	}
	if *physicsModel != "" {
		cfg.Simulation.Physics = *physicsModel
		if err := cfg.Validate(); err != nil {
			logger.Error(ctx, "Invalid -physics flag", err, "physics", *physicsModel)
			os.Exit(1)
		}
	}

	world := engine.NewWorld(cfg, logger)
	world.Populate(rand.New(rand.NewPCG(cfg.Simulation.Seed, cfg.Simulation.Seed^0x9e3779b97f4a7c15)))

	world.EventBus.Subscribe(event.TickCompleted, func(e event.Event) {
		te := e.(*event.TickEvent)
		logger.Debug(ctx, "Tick completed",
			"tick", te.Tick,
			"collisions", te.Collisions,
			"nodes", te.Stats.Nodes,
			"overflow_nodes", te.Stats.OverflowNodes,
			"elapsed", te.Elapsed.String(),
		)
	})
	world.EventBus.Subscribe(event.ConfigReloaded, func(e event.Event) {
		logger.Info(ctx, "Configuration reloaded",
			"config_path", e.(*event.ConfigEvent).Path,
		)
	})

	if *ascii {
		drawTicks(world, render.NewTerminalRenderer(80, 40, 1))
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tasks := resource.NewManager(resource.LimitsFromConfig(cfg.Resources), logger)
	if err := tasks.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	if *watch && found {
		watcher, err := config.NewWatcher(*configPath)
		if err != nil {
			logger.Warn(ctx, "Configuration watcher unavailable", "error", err.Error())
		} else {
			defer watcher.Close()
			if err := tasks.Go("config-watcher", func(taskCtx context.Context) {
				world.WatchConfig(taskCtx, watcher)
			}); err != nil {
				logger.Warn(ctx, "Configuration watcher not started", "error", err.Error())
			}
		}
	}

	if cfg.Metrics.Enabled {
		server := newMetricsServer(world, tasks, cfg)
		if err := tasks.Go("metrics-server", func(taskCtx context.Context) {
			serveMetrics(taskCtx, logger, server)
		}); err != nil {
			logger.Warn(ctx, "Metrics server not started", "error", err.Error())
		}
	}

	logger.Info(ctx, "Starting simulation",
		"bodies", cfg.Simulation.Bodies,
		"seed", cfg.Simulation.Seed,
		"tick_rate", cfg.Simulation.TickRate,
		"ticks", cfg.Simulation.Ticks,
		"depth", cfg.Collision.Depth,
	)

	err = world.Run(runCtx, cfg.Simulation.Ticks)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Simulation failed", err)
	}

	logger.Info(ctx, "Simulation stopped",
		"ticks", world.CurrentTick,
		"last_collisions", world.LastCollisions,
		"mismatches", world.Mismatches,
	)

	if err := tasks.Shutdown(ctx); err != nil {
		logger.Error(ctx, "Background tasks did not stop", err)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

// loadConfig reads path when it exists and applies environment overrides.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg := config.DefaultConfig()
	found := true

	if _, err := os.Stat(path); os.IsNotExist(err) {
		found = false
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, true, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, found, err
	}
	return cfg, found, nil
}

// drawTicks renders the world after every tick with the hits of that tick.
func drawTicks(world *engine.World, term *render.TerminalRenderer) {
	var hits []collision.Details
	world.EventBus.Subscribe(event.BodyCollision, func(e event.Event) {
		hits = append(hits, e.(*event.CollisionEvent).Details)
	})
	world.EventBus.Subscribe(event.TickCompleted, func(event.Event) {
		term.Fit(world.Bounds())
		render.DrawFrame(term, world.BodyList(), hits)
		hits = hits[:0]
	})
}

func newMetricsServer(world *engine.World, tasks *resource.Manager, cfg *config.Config) *http.Server {
	monitor := health.NewMonitor(5 * time.Second)
	monitor.Register(health.NewRunningCheck(world.IsRunning))
	monitor.Register(health.NewTickCheck(time.Duration(10*world.TimeStep*float64(time.Second))+time.Second, world.LastStepTime))
	monitor.Register(health.NewTreeCheck(world.Stats))
	monitor.Register(health.NewMemoryCheck(cfg.Resources.MaxMemoryMB, tasks.MemoryUsage))
	monitor.Register(resource.NewHealthCheck(tasks))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	monitor.Mount(mux)

	return &http.Server{
		Addr:         cfg.Metrics.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// serveMetrics binds the metrics address, retrying while it is busy, and
// serves until ctx is cancelled.
func serveMetrics(ctx context.Context, logger *logging.Logger, server *http.Server) {
	var listener net.Listener
	retrier := resource.NewRetrier("metrics-listen", 3, 30*time.Second, logger)
	err := retrier.ExecuteWithRetry(ctx, func() error {
		l, err := net.Listen("tcp", server.Addr)
		if err != nil {
			return err
		}
		listener = l
		return nil
	})
	if err != nil {
		logger.Error(ctx, "Metrics server could not listen", err, "address", server.Addr)
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting metrics server", "address", listener.Addr().String())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Metrics server failed", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Metrics server shutdown failed", err)
		}
	}
}
