package collision

import (
	"context"
	"time"

	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// Update rebuilds the tree from scratch and returns it. The node pool is
// reset and nodes spilled into overflow by the previous build are dropped.
// Bodies outside the group bounds grow the root for this build only.
func (g *Group) Update() *Tree {
	start := time.Now()

	clear(g.overflow)
	g.overflow = g.overflow[:0]
	if g.poolSized != g.poolDepth {
		g.pool.ResetSize(CalculatePoolSize(g.poolDepth))
		g.poolSized = g.poolDepth
	} else {
		g.pool.Reset()
	}

	// a zero depth tree still has its root level
	g.tmpDepth = max(g.depth, 1)
	g.growths = 0
	g.root = g.newQuad(g.bounds)

	for i, body := range g.bodies {
		e := entry{body: body, box: body.AABB(), index: i}
		if e.box.IsCompletelyInside(g.node(g.root).bounds) {
			g.subInsert(g.root, e, g.tmpDepth)
		} else {
			g.supInsert(e)
		}
	}

	tree := &Tree{group: g, version: g.version}
	stats := tree.Stats()
	if len(g.overflow) > 0 {
		g.warn("node pool exhausted, using overflow",
			"pool_depth", g.poolDepth,
			"pool_nodes", stats.PoolNodes,
			"overflow_nodes", stats.OverflowNodes,
		)
	}
	if g.metrics {
		instrumentBuild(g.name, time.Since(start), stats, g.growths)
	}
	return tree
}

// subInsert pushes e down from ref into the single quadrant that fully
// contains it, creating children on the way. It stops at the first node
// where the box straddles a split line or levels is used up.
func (g *Group) subInsert(ref nodeRef, e entry, levels uint) {
	for {
		n := g.node(ref)
		if levels <= 1 {
			n.entries = append(n.entries, e)
			return
		}
		q, ok := g.fitQuadrant(n, e.box)
		if !ok {
			n.entries = append(n.entries, e)
			return
		}

		child := n.children[q]
		if child == noNode {
			child = g.newQuad(n.bounds.Quadrant(q))
			g.node(ref).children[q] = child
		}
		ref = child
		levels--
	}
}

// supInsert grows the root until it contains e, then inserts e from the new
// root. Boxes that cannot be reached by doubling are kept on the root,
// which every query scans.
func (g *Group) supInsert(e entry) {
	if !e.box.IsFinite() {
		g.park(e, "non-finite bounding box")
		return
	}

	for grown := 0; !e.box.IsCompletelyInside(g.node(g.root).bounds); grown++ {
		size := g.node(g.root).bounds.Size
		if grown == maxGrowth || size.X <= 0 || size.Y <= 0 {
			g.park(e, "root cannot grow to reach body")
			return
		}
		g.grow(e.box)
	}
	g.subInsert(g.root, e, g.tmpDepth)
}

// grow doubles the root towards box. The old root becomes the quadrant of
// the new root facing away from the box.
func (g *Group) grow(box physics.AABB) {
	old := g.root
	bounds := g.node(old).bounds
	center := bounds.Center()
	target := box.Center()

	pos := bounds.Position
	west := true
	north := true
	if target.X < center.X {
		pos.X -= bounds.Size.X
		west = false
	}
	if target.Y < center.Y {
		pos.Y -= bounds.Size.Y
		north = false
	}

	q := physics.SouthEast
	switch {
	case north && west:
		q = physics.NorthWest
	case north:
		q = physics.NorthEast
	case west:
		q = physics.SouthWest
	}

	root := g.newQuad(physics.AABB{Position: pos, Size: bounds.Size.Scale(2)})
	g.node(root).children[q] = old
	g.root = root
	g.tmpDepth++
	g.growths++

	g.debug("grew collision tree",
		"bounds", g.node(root).bounds.String(),
		"depth", g.tmpDepth,
	)
}

func (g *Group) park(e entry, reason string) {
	root := g.node(g.root)
	root.entries = append(root.entries, e)
	g.warn("body kept on tree root", "reason", reason, "box", e.box.String())
}

func (g *Group) debug(msg string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Debug(context.Background(), msg, append(args, "group", g.name)...)
}

func (g *Group) warn(msg string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Warn(context.Background(), msg, append(args, "group", g.name)...)
}
