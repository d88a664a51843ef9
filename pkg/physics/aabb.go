// pkg/physics/aabb.go
package physics

import (
	"strconv"
)

// Quadrant indexes the four children of a split box.
type Quadrant int

const (
	NorthWest Quadrant = iota
	NorthEast
	SouthWest
	SouthEast
)

// AABB is an axis aligned bounding box. Y grows downward, so Top is the
// smaller Y coordinate. Sizes are expected to be non-negative.
type AABB struct {
	Position Vector2D
	Size     Vector2D
}

// NewAABB builds a box from its top-left corner and size
func NewAABB(x, y, w, h float64) AABB {
	return AABB{
		Position: Vector2D{X: x, Y: y},
		Size:     Vector2D{X: w, Y: h},
	}
}

// FromCorners builds the box spanning lo and hi
func FromCorners(lo, hi Vector2D) AABB {
	return AABB{Position: lo, Size: hi.Sub(lo)}
}

func (b AABB) Left() float64   { return b.Position.X }
func (b AABB) Right() float64  { return b.Position.X + b.Size.X }
func (b AABB) Top() float64    { return b.Position.Y }
func (b AABB) Bottom() float64 { return b.Position.Y + b.Size.Y }

// Center returns the midpoint of the box
func (b AABB) Center() Vector2D {
	return b.Position.Add(b.Size.Scale(0.5))
}

// Overlaps reports whether two boxes share interior area. Boxes that only
// touch along an edge do not overlap.
func (b AABB) Overlaps(other AABB) bool {
	return b.Right() > other.Left() &&
		b.Left() < other.Right() &&
		b.Bottom() > other.Top() &&
		b.Top() < other.Bottom()
}

// OverlapsPoint reports whether p lies inside the box. Unlike Overlaps the
// edges are inclusive: a point on the border overlaps.
func (b AABB) OverlapsPoint(p Vector2D) bool {
	return p.X >= b.Left() && p.X <= b.Right() &&
		p.Y >= b.Top() && p.Y <= b.Bottom()
}

// OverlapsHorizontalLine reports whether the segment from (x1,y) to (x2,y)
// touches the box. The endpoints may be given in either order.
func (b AABB) OverlapsHorizontalLine(y, x1, x2 float64) bool {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	return y >= b.Top() && y <= b.Bottom() &&
		x2 >= b.Left() && x1 <= b.Right()
}

// OverlapsVerticalLine reports whether the segment from (x,y1) to (x,y2)
// touches the box. The endpoints may be given in either order.
func (b AABB) OverlapsVerticalLine(x, y1, y2 float64) bool {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return x >= b.Left() && x <= b.Right() &&
		y2 >= b.Top() && y1 <= b.Bottom()
}

// IsCompletelyInside reports whether b is contained in other, edges included.
func (b AABB) IsCompletelyInside(other AABB) bool {
	return b.Left() >= other.Left() &&
		b.Right() <= other.Right() &&
		b.Top() >= other.Top() &&
		b.Bottom() <= other.Bottom()
}

// Union returns the smallest box containing both boxes
func (b AABB) Union(other AABB) AABB {
	lo := b.Position.Min(other.Position)
	hi := Vector2D{X: b.Right(), Y: b.Bottom()}.Max(Vector2D{X: other.Right(), Y: other.Bottom()})
	return FromCorners(lo, hi)
}

// Quadrant returns one quarter of the box
func (b AABB) Quadrant(q Quadrant) AABB {
	half := b.Size.Scale(0.5)
	pos := b.Position
	if q == NorthEast || q == SouthEast {
		pos.X += half.X
	}
	if q == SouthWest || q == SouthEast {
		pos.Y += half.Y
	}
	return AABB{Position: pos, Size: half}
}

// IsFinite reports whether the box has no NaN or infinite component
func (b AABB) IsFinite() bool {
	return b.Position.IsFinite() && b.Size.IsFinite()
}

func (b AABB) String() string {
	return "[" + strconv.FormatFloat(b.Position.X, 'f', -1, 64) +
		"," + strconv.FormatFloat(b.Position.Y, 'f', -1, 64) +
		" " + strconv.FormatFloat(b.Size.X, 'f', -1, 64) +
		"x" + strconv.FormatFloat(b.Size.Y, 'f', -1, 64) + "]"
}

func (q Quadrant) String() string {
	switch q {
	case NorthWest:
		return "NW"
	case NorthEast:
		return "NE"
	case SouthWest:
		return "SW"
	case SouthEast:
		return "SE"
	}
	return "Quadrant(" + strconv.Itoa(int(q)) + ")"
}
