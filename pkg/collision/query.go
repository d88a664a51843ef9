package collision

import (
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// Tree is the result of Group.Update. It answers overlap queries until the
// group is changed again.
type Tree struct {
	group   *Group
	version uint64
}

// Stats describes the shape of a built tree
type Stats struct {
	Bodies        int
	Nodes         int
	PoolNodes     int
	OverflowNodes int
	Depth         uint
	Bounds        physics.AABB
}

// NodeInfo is passed to Walk for every node of the tree
type NodeInfo struct {
	Bounds physics.AABB
	Level  int
	Bodies []Collidable
}

// Group returns the group the tree was built from
func (t *Tree) Group() *Group {
	return t.group
}

// Stale reports whether the group changed after the tree was built
func (t *Tree) Stale() bool {
	return t.group.version != t.version
}

// Stats returns node counts and the effective depth and bounds of the build
func (t *Tree) Stats() Stats {
	g := t.group
	return Stats{
		Bodies:        len(g.bodies),
		Nodes:         g.pool.Len() + len(g.overflow),
		PoolNodes:     g.pool.Len(),
		OverflowNodes: len(g.overflow),
		Depth:         g.tmpDepth,
		Bounds:        g.node(g.root).bounds,
	}
}

// Collide returns every member overlapping body. body itself is skipped if
// it is a member.
func (t *Tree) Collide(body Collidable) ([]Details, error) {
	if t.Stale() {
		return nil, ErrStaleTree
	}
	out := t.group.collideNode(t.group.root, body, body.AABB(), -1, nil)
	t.group.countCollisions(len(out))
	return out, nil
}

// CollideGroup queries every member of other against the tree. When other
// is the tree's own group each overlapping pair is reported once.
func (t *Tree) CollideGroup(other *Group) ([]Details, error) {
	if t.Stale() {
		return nil, ErrStaleTree
	}

	g := t.group
	var out []Details
	for i, body := range other.bodies {
		after := -1
		if other == g {
			after = i
		}
		out = g.collideNode(g.root, body, body.AABB(), after, out)
	}
	g.countCollisions(len(out))
	return out, nil
}

// CollideSelf reports every overlapping pair of members
func (t *Tree) CollideSelf() ([]Details, error) {
	return t.CollideGroup(t.group)
}

// Walk visits the nodes depth first, parents before children. Returning
// false from fn skips the node's children.
func (t *Tree) Walk(fn func(NodeInfo) bool) {
	t.group.walk(t.group.root, 1, fn)
}

// collideNode scans the entries of ref and recurses into the children whose
// bounds overlap box. Entries with an index at or below after are skipped
// so that self queries report each pair once.
func (g *Group) collideNode(ref nodeRef, body Collidable, box physics.AABB, after int, out []Details) []Details {
	n := g.node(ref)
	for _, e := range n.entries {
		if e.index <= after || e.body == body {
			continue
		}
		if e.box.Overlaps(box) {
			out = append(out, computeDetails(e.body, e.box, body, box))
		}
	}

	for _, child := range n.children {
		if child == noNode {
			continue
		}
		if g.node(child).bounds.Overlaps(box) {
			out = g.collideNode(child, body, box, after, out)
		}
	}
	return out
}

func (g *Group) walk(ref nodeRef, level int, fn func(NodeInfo) bool) {
	n := g.node(ref)
	bodies := make([]Collidable, len(n.entries))
	for i, e := range n.entries {
		bodies[i] = e.body
	}
	if !fn(NodeInfo{Bounds: n.bounds, Level: level, Bodies: bodies}) {
		return
	}
	for _, child := range n.children {
		if child != noNode {
			g.walk(child, level+1, fn)
		}
	}
}

func (g *Group) countCollisions(n int) {
	if g.metrics && n > 0 {
		instrumentCollisions(g.name, n)
	}
}
