// pkg/entity/entity.go
package entity

import (
	"math"

	"github.com/google/uuid"

	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// ID is a unique identifier for an entity
type ID = uuid.UUID

// Entity is the base interface for all simulated objects
type Entity interface {
	GetID() ID
	GetPosition() physics.Vector2D
	AABB() physics.AABB
	Update(deltaTime float64)
}

// Body is a moving axis aligned box. Position is its top-left corner.
type Body struct {
	ID       ID
	Position physics.Vector2D
	Velocity physics.Vector2D
	Size     physics.Vector2D
}

// NewBody creates a body with a fresh random ID
func NewBody(position, size, velocity physics.Vector2D) *Body {
	return &Body{
		ID:       uuid.New(),
		Position: position,
		Velocity: velocity,
		Size:     size,
	}
}

// GetID returns the body's unique identifier
func (b *Body) GetID() ID {
	return b.ID
}

// GetPosition returns the body's position
func (b *Body) GetPosition() physics.Vector2D {
	return b.Position
}

// AABB returns the box currently covered by the body
func (b *Body) AABB() physics.AABB {
	return physics.AABB{Position: b.Position, Size: b.Size}
}

// Update moves the body by its velocity
func (b *Body) Update(deltaTime float64) {
	b.Position = b.Position.Add(b.Velocity.Scale(deltaTime))
}

// Bounce keeps the body inside bounds by clamping its position and turning
// its velocity back inwards. It reports whether the body touched an edge.
func (b *Body) Bounce(bounds physics.AABB) bool {
	bounced := false

	if b.Position.X < bounds.Left() {
		b.Position.X = bounds.Left()
		b.Velocity.X = math.Abs(b.Velocity.X)
		bounced = true
	} else if b.Position.X+b.Size.X > bounds.Right() {
		b.Position.X = bounds.Right() - b.Size.X
		b.Velocity.X = -math.Abs(b.Velocity.X)
		bounced = true
	}

	if b.Position.Y < bounds.Top() {
		b.Position.Y = bounds.Top()
		b.Velocity.Y = math.Abs(b.Velocity.Y)
		bounced = true
	} else if b.Position.Y+b.Size.Y > bounds.Bottom() {
		b.Position.Y = bounds.Bottom() - b.Size.Y
		b.Velocity.Y = -math.Abs(b.Velocity.Y)
		bounced = true
	}

	return bounced
}
