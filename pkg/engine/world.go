// pkg/engine/world.go
package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/entity"
	"github.com/opd-ai/go-quadcollide/pkg/event"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// ErrBodyNotFound is returned when removing a body the world does not hold
var ErrBodyNotFound = errors.New("body not found")

// maxDeltaTime caps the wall clock step taken by Update
const maxDeltaTime = 0.1

// World moves a set of bodies and reports their overlaps every tick
type World struct {
	Config      *config.Config
	Bodies      map[entity.ID]*entity.Body
	Group       *collision.Group
	EventBus    *event.Bus
	Logger      *logging.Logger
	BodyLock    sync.RWMutex
	Running     bool
	TimeStep    float64 // Seconds per tick
	CurrentTick uint64
	LastUpdate  time.Time

	// BruteForce checks every tick against an all-pairs scan and counts
	// the ticks where the two disagree.
	BruteForce bool
	Mismatches int

	LastStats      collision.Stats
	LastCollisions int
	LastStep       time.Time // Wall clock time the last tick finished
	lastTree       *collision.Tree

	// motion is nil for kinematic worlds
	motion *chipmunkMotion
}

// NewWorld creates an empty world with the specified configuration
func NewWorld(cfg *config.Config, logger *logging.Logger) *World {
	if logger == nil {
		logger = logging.Discard()
	}

	opts := []collision.Option{
		collision.WithName(cfg.Collision.Name),
		collision.WithDepth(cfg.Collision.Depth),
		collision.WithPoolDepth(cfg.Collision.PoolDepth),
		collision.WithLogger(logger),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, collision.WithMetrics())
	}

	timeStep := 1.0 / 60.0
	if cfg.Simulation.TickRate > 0 {
		timeStep = 1.0 / float64(cfg.Simulation.TickRate)
	}

	w := &World{
		Config:     cfg,
		Bodies:     make(map[entity.ID]*entity.Body),
		Group:      collision.NewGroup(cfg.Collision.Bounds.AABB(), opts...),
		EventBus:   event.NewEventBus(),
		Logger:     logger,
		TimeStep:   timeStep,
		LastUpdate: time.Now(),
		BruteForce: cfg.Simulation.CrossCheck,
	}
	if cfg.Simulation.Physics == config.PhysicsChipmunk {
		w.motion = newChipmunkMotion(w.Group.Bounds())
	}
	return w
}

// Populate spawns the configured number of random bodies inside the bounds
func (w *World) Populate(rng *rand.Rand) []*entity.Body {
	sim := w.Config.Simulation
	bodies := entity.Spawn(rng, sim.Bodies, w.Group.Bounds(), entity.SpawnOptions{
		MinSize:  sim.MinSize,
		MaxSize:  sim.MaxSize,
		MaxSpeed: sim.MaxSpeed,
	})
	for _, b := range bodies {
		w.AddBody(b)
	}
	return bodies
}

// AddBody puts a body into the world
func (w *World) AddBody(b *entity.Body) {
	w.BodyLock.Lock()
	w.Bodies[b.ID] = b
	w.Group.Add(b)
	if w.motion != nil {
		w.motion.add(b)
	}
	w.BodyLock.Unlock()

	w.EventBus.Publish(event.NewBodyEvent(event.BodyAdded, w, b.ID))
}

// RemoveBody takes a body out of the world
func (w *World) RemoveBody(id entity.ID) error {
	w.BodyLock.Lock()
	b, ok := w.Bodies[id]
	if !ok {
		w.BodyLock.Unlock()
		return ErrBodyNotFound
	}
	delete(w.Bodies, id)
	w.Group.Remove(b)
	if w.motion != nil {
		w.motion.remove(id)
	}
	w.BodyLock.Unlock()

	w.EventBus.Publish(event.NewBodyEvent(event.BodyRemoved, w, id))
	return nil
}

// Body returns the body with the given id
func (w *World) Body(id entity.ID) (*entity.Body, bool) {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()
	b, ok := w.Bodies[id]
	return b, ok
}

// ApplyConfig re-applies the collision settings of cfg. Body counts, seeds
// and the physics model only take effect on a new world.
func (w *World) ApplyConfig(cfg *config.Config) {
	w.BodyLock.Lock()
	defer w.BodyLock.Unlock()

	bounds := cfg.Collision.Bounds.AABB()
	if bounds != w.Group.Bounds() {
		w.Group.SetBounds(bounds)
		if w.motion != nil {
			w.motion.setBounds(bounds)
		}
	}
	if cfg.Collision.Depth != w.Group.Depth() {
		w.Group.SetDepth(cfg.Collision.Depth)
	}
	if cfg.Collision.PoolDepth != w.Group.PoolDepth() {
		w.Group.SetPoolDepth(cfg.Collision.PoolDepth)
	}
	w.BruteForce = cfg.Simulation.CrossCheck
	w.Config = cfg

	w.Logger.Info(context.Background(), "collision settings applied",
		"bounds", bounds.String(),
		"depth", cfg.Collision.Depth,
		"pool_depth", cfg.Collision.PoolDepth,
	)
}

// Start marks the world as running
func (w *World) Start() {
	w.BodyLock.Lock()
	defer w.BodyLock.Unlock()
	w.Running = true
	w.LastUpdate = time.Now()
}

// Stop halts the world
func (w *World) Stop() {
	w.BodyLock.Lock()
	defer w.BodyLock.Unlock()
	w.Running = false
}

// IsRunning reports whether Start was called without a matching Stop
func (w *World) IsRunning() bool {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()
	return w.Running
}

// LastStepTime returns when the last tick finished, zero before the first.
func (w *World) LastStepTime() time.Time {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()
	return w.LastStep
}

// Stats returns the tree statistics of the last tick
func (w *World) Stats() collision.Stats {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()
	return w.LastStats
}

// Update advances the world by the wall clock time since the last update
func (w *World) Update() ([]collision.Details, error) {
	return w.Step(w.calculateDeltaTime())
}

// calculateDeltaTime calculates the time since the last update and caps it.
func (w *World) calculateDeltaTime() float64 {
	now := time.Now()
	deltaTime := now.Sub(w.LastUpdate).Seconds()
	w.LastUpdate = now

	if deltaTime > maxDeltaTime {
		deltaTime = maxDeltaTime
	}
	return deltaTime
}

// Step moves every body by deltaTime, rebuilds the tree and publishes one
// event per overlapping pair followed by a tick summary.
func (w *World) Step(deltaTime float64) ([]collision.Details, error) {
	start := time.Now()

	w.BodyLock.Lock()
	bounds := w.Group.Bounds()
	if w.motion != nil {
		w.motion.step(deltaTime, bounds)
	} else {
		for _, b := range w.Bodies {
			b.Update(deltaTime)
			b.Bounce(bounds)
		}
	}

	tree := w.Group.Update()
	hits, err := tree.CollideSelf()
	if err != nil {
		w.BodyLock.Unlock()
		return nil, logging.WrapError(err, "tick %d", w.CurrentTick)
	}
	if w.BruteForce {
		w.crossCheck(hits)
	}

	w.lastTree = tree
	w.CurrentTick++
	tick := w.CurrentTick
	w.LastStats = tree.Stats()
	w.LastCollisions = len(hits)
	w.LastStep = time.Now()
	stats := w.LastStats
	w.BodyLock.Unlock()

	for _, d := range hits {
		w.EventBus.Publish(event.NewCollisionEvent(w, tick, d))
	}
	w.EventBus.Publish(event.NewTickEvent(w, tick, len(hits), stats, time.Since(start)))

	return hits, nil
}

// crossCheck compares hits with an all-pairs scan. Called with BodyLock held.
func (w *World) crossCheck(hits []collision.Details) {
	reference := collision.BruteForce(w.Group.Bodies())
	if samePairs(hits, reference) {
		return
	}
	w.Mismatches++
	w.Logger.Warn(context.Background(), "tree and brute force disagree",
		"tick", w.CurrentTick,
		"tree", len(hits),
		"brute_force", len(reference),
	)
}

// samePairs reports whether a and b name the same unordered body pairs,
// each the same number of times.
func samePairs(a, b []collision.Details) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[[2]collision.Collidable]int, len(a))
	for _, d := range a {
		seen[[2]collision.Collidable{d.Body1, d.Body2}]++
	}
	for _, d := range b {
		k := [2]collision.Collidable{d.Body1, d.Body2}
		if seen[k] == 0 {
			k = [2]collision.Collidable{d.Body2, d.Body1}
		}
		if seen[k] == 0 {
			return false
		}
		seen[k]--
	}
	return true
}

// Run steps the world at the configured tick rate until ctx is done or,
// when ticks is positive, that many ticks have run.
func (w *World) Run(ctx context.Context, ticks int) error {
	w.Start()
	defer w.Stop()

	ticker := time.NewTicker(time.Duration(w.TimeStep * float64(time.Second)))
	defer ticker.Stop()

	for n := 0; ticks <= 0 || n < ticks; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := w.Step(w.TimeStep); err != nil {
			return err
		}
	}
	return nil
}

// Tree returns the tree built by the last step, or nil before the first.
// It turns stale as soon as bodies are added or removed.
func (w *World) Tree() *collision.Tree {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()
	return w.lastTree
}

// Bounds returns the region the bodies are kept in
func (w *World) Bounds() physics.AABB {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()
	return w.Group.Bounds()
}

// BodyList returns the bodies in no particular order
func (w *World) BodyList() []*entity.Body {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()

	out := make([]*entity.Body, 0, len(w.Bodies))
	for _, b := range w.Bodies {
		out = append(out, b)
	}
	return out
}

// Snapshot returns the current box of every body, keyed by id
func (w *World) Snapshot() map[entity.ID]physics.AABB {
	w.BodyLock.RLock()
	defer w.BodyLock.RUnlock()

	out := make(map[entity.ID]physics.AABB, len(w.Bodies))
	for id, b := range w.Bodies {
		out[id] = b.AABB()
	}
	return out
}
