// pkg/render/engo/scene.go
package engo

import (
	"context"
	"image/color"
	"math/rand/v2"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/entity"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
)

// Scene shows randomly moving bodies and highlights the colliding ones
type Scene struct {
	config *config.Config
	logger *logging.Logger

	messages   *engo.MessageManager
	bodies     *BodySystem
	collisions *CollisionSystem
}

// NewScene creates a scene for the simulation described by cfg
func NewScene(cfg *config.Config, logger *logging.Logger) *Scene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scene{
		config:   cfg,
		logger:   logger,
		messages: &engo.MessageManager{},
	}
}

// Type returns the scene type (required by Engo)
func (scene *Scene) Type() string {
	return "QuadcollideScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *Scene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *Scene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	common.SetBackground(color.Black)

	render := &common.RenderSystem{}
	world.AddSystem(render)

	cfg := scene.config
	bounds := cfg.Collision.Bounds.AABB()
	scene.collisions = NewCollisionSystem(bounds, scene.messages, scene.logger,
		collision.WithDepth(cfg.Collision.Depth),
		collision.WithPoolDepth(cfg.Collision.PoolDepth),
	)
	scene.bodies = NewBodySystem(bounds, render, scene.collisions, scene.messages)

	world.AddSystem(scene.bodies)
	world.AddSystem(scene.collisions)

	sim := cfg.Simulation
	rng := rand.New(rand.NewPCG(sim.Seed, sim.Seed^0x9e3779b97f4a7c15))
	for _, b := range entity.Spawn(rng, sim.Bodies, bounds, entity.SpawnOptions{
		MinSize:  sim.MinSize,
		MaxSize:  sim.MaxSize,
		MaxSpeed: sim.MaxSpeed,
	}) {
		scene.bodies.AddBody(b)
	}

	scene.logger.Info(context.Background(), "scene ready",
		"bodies", scene.bodies.Len(),
		"bounds", bounds.String(),
	)
}

// Exit is called when the scene is exiting (required by Engo)
func (scene *Scene) Exit() {}

// Run opens a window and runs the scene until it is closed
func Run(cfg *config.Config, logger *logging.Logger, width, height int) {
	engo.Run(engo.RunOptions{
		Title:  "quadcollide",
		Width:  width,
		Height: height,
		VSync:  true,
	}, NewScene(cfg, logger))
}
