// pkg/render/engo/renderer.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-quadcollide/pkg/entity"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

var (
	idleColor = color.RGBA{90, 200, 90, 255}
	hitColor  = color.RGBA{230, 60, 60, 255}
)

// bodyEntity ties a simulated body to the components engo draws
type bodyEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
	body *entity.Body
}

// BodySystem moves bodies, mirrors them into space components and colours
// the ones that collided during the previous frame
type BodySystem struct {
	bounds   physics.AABB
	entities []*bodyEntity
	hits     map[uint64]bool

	render     *common.RenderSystem
	collisions *CollisionSystem
}

// NewBodySystem creates a body system. render may be nil when nothing is
// drawn; collisions receives every body added.
func NewBodySystem(bounds physics.AABB, render *common.RenderSystem, collisions *CollisionSystem, messages *engo.MessageManager) *BodySystem {
	bs := &BodySystem{
		bounds:     bounds,
		hits:       make(map[uint64]bool),
		render:     render,
		collisions: collisions,
	}
	messages.Listen(CollisionMessageType, func(msg engo.Message) {
		m, ok := msg.(CollisionMessage)
		if !ok {
			return
		}
		bs.hits[m.Entity.ID()] = true
		bs.hits[m.To.ID()] = true
	})
	return bs
}

// AddBody creates an entity for body
func (bs *BodySystem) AddBody(body *entity.Body) *ecs.BasicEntity {
	e := &bodyEntity{
		BasicEntity: ecs.NewBasic(),
		RenderComponent: common.RenderComponent{
			Drawable: common.Rectangle{BorderWidth: 1, BorderColor: idleColor},
			Color:    color.Transparent,
		},
		SpaceComponent: common.SpaceComponent{
			Position: toPoint(body.Position),
			Width:    float32(body.Size.X),
			Height:   float32(body.Size.Y),
		},
		body: body,
	}
	bs.entities = append(bs.entities, e)

	if bs.render != nil {
		bs.render.Add(&e.BasicEntity, &e.RenderComponent, &e.SpaceComponent)
	}
	if bs.collisions != nil {
		bs.collisions.Add(&e.BasicEntity, &e.SpaceComponent)
	}
	return &e.BasicEntity
}

// Remove satisfies the ecs.System interface
func (bs *BodySystem) Remove(basic ecs.BasicEntity) {
	for i, e := range bs.entities {
		if e.ID() != basic.ID() {
			continue
		}
		bs.entities = append(bs.entities[:i], bs.entities[i+1:]...)
		if bs.render != nil {
			bs.render.Remove(basic)
		}
		if bs.collisions != nil {
			bs.collisions.Remove(basic)
		}
		delete(bs.hits, basic.ID())
		return
	}
}

// Update advances every body by dt and refreshes its components
func (bs *BodySystem) Update(dt float32) {
	for _, e := range bs.entities {
		e.body.Update(float64(dt))
		e.body.Bounce(bs.bounds)
		e.SpaceComponent.Position = toPoint(e.body.Position)

		border := idleColor
		if bs.hits[e.ID()] {
			border = hitColor
		}
		e.RenderComponent.Drawable = common.Rectangle{BorderWidth: 1, BorderColor: border}
	}
	clear(bs.hits)
}

// Hit reports whether the entity collided since the last Update
func (bs *BodySystem) Hit(id uint64) bool {
	return bs.hits[id]
}

// Len returns the number of bodies
func (bs *BodySystem) Len() int {
	return len(bs.entities)
}

func toPoint(v physics.Vector2D) engo.Point {
	return engo.Point{X: float32(v.X), Y: float32(v.Y)}
}
