package collision

import (
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// nodeRef addresses a quadNode. Positive values are pool slots (offset by
// one), negative values are overflow slots, zero means no node.
type nodeRef int32

const noNode nodeRef = 0

// entry is a body stored in a node together with the box it had when the
// tree was built and its position in the group's member list.
type entry struct {
	body  Collidable
	box   physics.AABB
	index int
}

// quadNode is one cell of the tree. children are indexed by
// physics.Quadrant. entries holds bodies that straddle the split lines of
// this node or that reached the depth limit here.
type quadNode struct {
	bounds   physics.AABB
	children [4]nodeRef
	entries  []entry
}

func (n *quadNode) reset(bounds physics.AABB) {
	n.bounds = bounds
	n.children = [4]nodeRef{}
	clear(n.entries)
	n.entries = n.entries[:0]
}

// newQuad allocates a node from the pool, or from the overflow slice once
// the pool is exhausted. Pointers returned by node are invalidated by
// newQuad because the overflow slice may move.
func (g *Group) newQuad(bounds physics.AABB) nodeRef {
	if idx, n, ok := g.pool.GetFirst(); ok {
		n.reset(bounds)
		return nodeRef(idx + 1)
	}

	g.overflow = append(g.overflow, quadNode{bounds: bounds})
	return nodeRef(-len(g.overflow))
}

func (g *Group) node(ref nodeRef) *quadNode {
	if ref > 0 {
		return g.pool.Get(int(ref) - 1)
	}
	return &g.overflow[-int(ref)-1]
}

// childBounds returns the bounds of child q, whether or not it exists yet.
func (g *Group) childBounds(n *quadNode, q physics.Quadrant) physics.AABB {
	if child := n.children[q]; child != noNode {
		return g.node(child).bounds
	}
	return n.bounds.Quadrant(q)
}

// fitQuadrant returns the single child of n that fully contains box. Boxes
// lying exactly on a split line go to the north and west children first.
func (g *Group) fitQuadrant(n *quadNode, box physics.AABB) (physics.Quadrant, bool) {
	for q := physics.NorthWest; q <= physics.SouthEast; q++ {
		if box.IsCompletelyInside(g.childBounds(n, q)) {
			return q, true
		}
	}
	return 0, false
}

// CalculatePoolSize returns the node count of a full quadtree with depth
// levels, (4^depth - 1) / 3.
func CalculatePoolSize(depth uint) int {
	size := 0
	level := 1
	for i := uint(0); i < depth; i++ {
		size += level
		level *= 4
	}
	return size
}
