// pkg/collision/details.go
package collision

import (
	"math"
	"strings"

	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// Collidable is anything with a bounding box. Implementations are used as
// set keys, so the dynamic type must be comparable (pointers are the usual
// choice) and keep its identity between two Group.Update calls.
type Collidable interface {
	AABB() physics.AABB
}

// Side is a set of box edges taking part in a collision.
type Side uint8

const (
	SideLeft Side = 1 << iota
	SideRight
	SideTop
	SideBottom
)

// Has reports whether every edge in other is set
func (s Side) Has(other Side) bool {
	return s&other == other
}

func (s Side) String() string {
	if s == 0 {
		return "none"
	}
	names := make([]string, 0, 4)
	if s.Has(SideLeft) {
		names = append(names, "left")
	}
	if s.Has(SideRight) {
		names = append(names, "right")
	}
	if s.Has(SideTop) {
		names = append(names, "top")
	}
	if s.Has(SideBottom) {
		names = append(names, "bottom")
	}
	return strings.Join(names, "|")
}

// Details describes one overlap found by a query. Body1 is the group member
// stored in the tree, Body2 the body that was queried.
type Details struct {
	Overlap    float64
	Body1      Collidable
	Body2      Collidable
	SidesBody1 Side
	SidesBody2 Side
}

// computeDetails fills in the penetration and side flags of two boxes that
// are known to overlap. The axis with the smaller penetration is the
// colliding one; on a tie both axes are reported.
func computeDetails(body1 Collidable, box1 physics.AABB, body2 Collidable, box2 physics.AABB) Details {
	dx := math.Min(box1.Right(), box2.Right()) - math.Max(box1.Left(), box2.Left())
	dy := math.Min(box1.Bottom(), box2.Bottom()) - math.Max(box1.Top(), box2.Top())

	d := Details{
		Overlap: math.Min(dx, dy),
		Body1:   body1,
		Body2:   body2,
	}

	c1 := box1.Center()
	c2 := box2.Center()
	if dx <= dy {
		s1, s2 := facingSides(c1.X, c2.X, SideLeft, SideRight)
		d.SidesBody1 |= s1
		d.SidesBody2 |= s2
	}
	if dy <= dx {
		s1, s2 := facingSides(c1.Y, c2.Y, SideTop, SideBottom)
		d.SidesBody1 |= s1
		d.SidesBody2 |= s2
	}
	return d
}

// facingSides picks the edges two boxes meet on along one axis. low and
// high name the edges at the smaller and larger coordinate.
func facingSides(c1, c2 float64, low, high Side) (Side, Side) {
	switch {
	case c1 < c2:
		return high, low
	case c1 > c2:
		return low, high
	default:
		return low | high, low | high
	}
}
