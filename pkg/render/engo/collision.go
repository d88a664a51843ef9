// pkg/render/engo/collision.go
package engo

import (
	"context"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// CollisionMessageType is the message type dispatched for every overlap
const CollisionMessageType = "CollisionMessage"

// CollisionMessage is dispatched once per overlapping pair and frame.
// Entity is the body found in the tree, To the body it was tested against.
type CollisionMessage struct {
	Entity      *ecs.BasicEntity
	To          *ecs.BasicEntity
	Overlap     float32
	SidesEntity collision.Side
	SidesTo     collision.Side
}

// Type implements engo.Message
func (CollisionMessage) Type() string { return CollisionMessageType }

// spaceBody indexes a SpaceComponent in a collision group
type spaceBody struct {
	basic *ecs.BasicEntity
	space *common.SpaceComponent
}

// AABB returns the axis aligned box around the (possibly rotated) space
func (s *spaceBody) AABB() physics.AABB {
	box := s.space.AABB()
	return physics.FromCorners(
		physics.Vector2D{X: float64(box.Min.X), Y: float64(box.Min.Y)},
		physics.Vector2D{X: float64(box.Max.X), Y: float64(box.Max.Y)},
	)
}

// CollisionSystem detects overlapping SpaceComponents with a quadtree and
// reports them on a message manager
type CollisionSystem struct {
	group    *collision.Group
	entities map[uint64]*spaceBody
	messages *engo.MessageManager
	logger   *logging.Logger
	tree     *collision.Tree
}

// NewCollisionSystem creates a collision system covering bounds. Messages
// are dispatched on messages, which must not be nil.
func NewCollisionSystem(bounds physics.AABB, messages *engo.MessageManager, logger *logging.Logger, opts ...collision.Option) *CollisionSystem {
	if logger == nil {
		logger = logging.Discard()
	}
	opts = append([]collision.Option{collision.WithName("engo"), collision.WithLogger(logger)}, opts...)
	return &CollisionSystem{
		group:    collision.NewGroup(bounds, opts...),
		entities: make(map[uint64]*spaceBody),
		messages: messages,
		logger:   logger,
	}
}

// Add registers an entity with the system
func (cs *CollisionSystem) Add(basic *ecs.BasicEntity, space *common.SpaceComponent) {
	if _, ok := cs.entities[basic.ID()]; ok {
		return
	}
	body := &spaceBody{basic: basic, space: space}
	cs.entities[basic.ID()] = body
	cs.group.Add(body)
}

// Remove satisfies the ecs.System interface
func (cs *CollisionSystem) Remove(basic ecs.BasicEntity) {
	body, ok := cs.entities[basic.ID()]
	if !ok {
		return
	}
	cs.group.Remove(body)
	delete(cs.entities, basic.ID())
}

// Update rebuilds the tree from the current space components and dispatches
// a CollisionMessage for every overlapping pair
func (cs *CollisionSystem) Update(dt float32) {
	cs.tree = cs.group.Update()
	hits, err := cs.tree.CollideSelf()
	if err != nil {
		cs.logger.Error(context.Background(), "collision query failed", err)
		return
	}

	for _, d := range hits {
		cs.messages.Dispatch(CollisionMessage{
			Entity:      d.Body1.(*spaceBody).basic,
			To:          d.Body2.(*spaceBody).basic,
			Overlap:     float32(d.Overlap),
			SidesEntity: d.SidesBody1,
			SidesTo:     d.SidesBody2,
		})
	}
}

// Tree returns the tree built by the last Update, or nil before the first
func (cs *CollisionSystem) Tree() *collision.Tree {
	return cs.tree
}

// Group exposes the underlying collision group
func (cs *CollisionSystem) Group() *collision.Group {
	return cs.group
}
