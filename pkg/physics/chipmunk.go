package physics

import (
	"github.com/jakecoffman/cp"
)

// FromBB converts a chipmunk bounding box. Chipmunk's B is the smaller Y
// value, which maps onto Top here.
func FromBB(bb cp.BB) AABB {
	return NewAABB(bb.L, bb.B, bb.R-bb.L, bb.T-bb.B)
}

// BB converts the box into a chipmunk bounding box
func (b AABB) BB() cp.BB {
	return cp.BB{L: b.Left(), B: b.Top(), R: b.Right(), T: b.Bottom()}
}

// ShapeBody lets a chipmunk shape take part in a collision group. The
// shape's cached bounding box is read on every call, so the space must be
// stepped (or the shape reindexed) before the group is rebuilt.
type ShapeBody struct {
	Shape *cp.Shape
}

// NewShapeBody wraps shape
func NewShapeBody(shape *cp.Shape) *ShapeBody {
	return &ShapeBody{Shape: shape}
}

// AABB returns the shape's current bounding box
func (s *ShapeBody) AABB() AABB {
	if s.Shape == nil {
		return AABB{}
	}
	return FromBB(s.Shape.BB())
}
