package engine

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/opd-ai/go-quadcollide/pkg/entity"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// chipmunkMotion moves the world's bodies through a chipmunk space so they
// bounce off each other and off the bounds instead of passing through.
type chipmunkMotion struct {
	space  *cp.Space
	walls  []*cp.Shape
	bodies map[entity.ID]*rigidBody
}

type rigidBody struct {
	body   *entity.Body
	cpBody *cp.Body
	shape  *cp.Shape
}

func newChipmunkMotion(bounds physics.AABB) *chipmunkMotion {
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{})

	m := &chipmunkMotion{
		space:  space,
		bodies: make(map[entity.ID]*rigidBody),
	}
	m.setBounds(bounds)
	return m
}

// setBounds replaces the four static walls
func (m *chipmunkMotion) setBounds(bounds physics.AABB) {
	for _, wall := range m.walls {
		m.space.RemoveShape(wall)
	}
	m.walls = m.walls[:0]

	l, t, r, b := bounds.Left(), bounds.Top(), bounds.Right(), bounds.Bottom()
	corners := [][2]cp.Vector{
		{{X: l, Y: t}, {X: r, Y: t}},
		{{X: r, Y: t}, {X: r, Y: b}},
		{{X: r, Y: b}, {X: l, Y: b}},
		{{X: l, Y: b}, {X: l, Y: t}},
	}
	for _, c := range corners {
		wall := cp.NewSegment(m.space.StaticBody, c[0], c[1], 0)
		wall.SetElasticity(1)
		wall.SetFriction(0)
		m.walls = append(m.walls, m.space.AddShape(wall))
	}
}

// add creates a rigid box for b. Rotation is locked with an infinite moment
// so the shape stays axis aligned.
func (m *chipmunkMotion) add(b *entity.Body) {
	mass := math.Max(b.Size.X*b.Size.Y, 1)
	cpBody := m.space.AddBody(cp.NewBody(mass, cp.INFINITY))
	m.place(cpBody, b)

	shape := cp.NewBox(cpBody, b.Size.X, b.Size.Y, 0)
	shape.SetElasticity(1)
	shape.SetFriction(0)
	m.space.AddShape(shape)

	m.bodies[b.ID] = &rigidBody{body: b, cpBody: cpBody, shape: shape}
}

func (m *chipmunkMotion) remove(id entity.ID) {
	rb, ok := m.bodies[id]
	if !ok {
		return
	}
	m.space.RemoveShape(rb.shape)
	m.space.RemoveBody(rb.cpBody)
	delete(m.bodies, id)
}

func (m *chipmunkMotion) count() int {
	return len(m.bodies)
}

// step advances the space and copies the result back onto the bodies.
// Anything that tunnelled through a wall is clamped the kinematic way and
// pushed back into the space.
func (m *chipmunkMotion) step(deltaTime float64, bounds physics.AABB) {
	if deltaTime > 0 {
		m.space.Step(deltaTime)
	}

	for _, rb := range m.bodies {
		center := rb.cpBody.Position()
		vel := rb.cpBody.Velocity()
		b := rb.body
		b.Position = physics.Vector2D{X: center.X - b.Size.X/2, Y: center.Y - b.Size.Y/2}
		b.Velocity = physics.Vector2D{X: vel.X, Y: vel.Y}

		if b.Bounce(bounds) {
			m.place(rb.cpBody, b)
		}
	}
}

// place moves cpBody to match b
func (m *chipmunkMotion) place(cpBody *cp.Body, b *entity.Body) {
	center := b.AABB().Center()
	cpBody.SetPosition(cp.Vector{X: center.X, Y: center.Y})
	cpBody.SetVelocity(b.Velocity.X, b.Velocity.Y)
}
