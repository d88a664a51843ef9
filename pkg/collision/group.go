// Package collision implements a loose quadtree broad phase for axis aligned
// boxes.
//
// A Group keeps a set of bodies. Every tick the caller moves its bodies,
// calls Update to rebuild the tree from the group's node pool and then
// queries the returned Tree:
//
//	tree := group.Update()
//	hits, err := tree.CollideSelf()
//
// The tree is never patched in place. Any change to the group after Update
// (Add, Remove, Clear, SetBounds, SetDepth, SetPoolDepth) makes the Tree
// stale and its queries return ErrStaleTree. Moving a body is not observed
// by the group; callers must Update after bodies move.
//
// A Group is not safe for concurrent use.
package collision

import (
	"errors"

	"github.com/opd-ai/go-quadcollide/pkg/logging"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
	"github.com/opd-ai/go-quadcollide/pkg/pool"
)

const (
	// DefaultDepth is the tree depth used when none is configured
	DefaultDepth uint = 5
	// DefaultPoolDepth sizes the node pool for a full tree of this depth
	DefaultPoolDepth uint = 5
	// MaxPoolDepth caps the preallocated pool at 349525 nodes
	MaxPoolDepth uint = 10
	// maxGrowth bounds how often a single body may double the root
	maxGrowth = 32
)

// ErrStaleTree is returned by queries on a tree whose group changed after
// it was built.
var ErrStaleTree = errors.New("collision: tree is stale, call Update before querying")

// Group is a set of collidable bodies indexed by a quadtree.
type Group struct {
	name    string
	logger  *logging.Logger
	metrics bool

	bodies []Collidable
	index  map[Collidable]int

	bounds    physics.AABB
	depth     uint
	poolDepth uint

	pool      *pool.StackPool[quadNode]
	poolSized uint
	overflow  []quadNode
	root      nodeRef
	tmpDepth  uint
	growths   int

	version uint64
}

// Option configures a Group
type Option func(*Group)

// WithDepth sets the maximum depth of the tree
func WithDepth(depth uint) Option {
	return func(g *Group) { g.depth = depth }
}

// WithPoolDepth sizes the node pool for a full tree of depth levels
func WithPoolDepth(depth uint) Option {
	return func(g *Group) { g.poolDepth = min(depth, MaxPoolDepth) }
}

// WithName labels log lines and metrics of the group
func WithName(name string) Option {
	return func(g *Group) { g.name = name }
}

// WithLogger enables debug and warning logs for tree builds
func WithLogger(logger *logging.Logger) Option {
	return func(g *Group) { g.logger = logger }
}

// WithMetrics enables the prometheus collectors for the group
func WithMetrics() Option {
	return func(g *Group) { g.metrics = true }
}

// NewGroup creates an empty group covering bounds
func NewGroup(bounds physics.AABB, opts ...Option) *Group {
	g := &Group{
		name:      "default",
		index:     make(map[Collidable]int),
		bounds:    bounds,
		depth:     DefaultDepth,
		poolDepth: DefaultPoolDepth,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.pool = pool.NewStackPool[quadNode](CalculatePoolSize(g.poolDepth))
	g.poolSized = g.poolDepth
	return g
}

// Add inserts body into the group. Adding a member again does nothing.
func (g *Group) Add(body Collidable) {
	if _, ok := g.index[body]; ok {
		return
	}
	g.index[body] = len(g.bodies)
	g.bodies = append(g.bodies, body)
	g.version++
}

// Remove drops body from the group. Removing a non-member does nothing.
func (g *Group) Remove(body Collidable) {
	i, ok := g.index[body]
	if !ok {
		return
	}
	last := len(g.bodies) - 1
	if i != last {
		moved := g.bodies[last]
		g.bodies[i] = moved
		g.index[moved] = i
	}
	g.bodies[last] = nil
	g.bodies = g.bodies[:last]
	delete(g.index, body)
	g.version++
}

// Clear removes every body
func (g *Group) Clear() {
	clear(g.bodies)
	g.bodies = g.bodies[:0]
	clear(g.index)
	g.version++
}

// Contains reports whether body is a member
func (g *Group) Contains(body Collidable) bool {
	_, ok := g.index[body]
	return ok
}

// Len returns the number of members
func (g *Group) Len() int {
	return len(g.bodies)
}

// Bodies returns a copy of the member list
func (g *Group) Bodies() []Collidable {
	out := make([]Collidable, len(g.bodies))
	copy(out, g.bodies)
	return out
}

func (g *Group) Name() string { return g.name }

func (g *Group) Depth() uint { return g.depth }

// SetDepth changes the maximum tree depth for the next build
func (g *Group) SetDepth(depth uint) {
	g.depth = depth
	g.version++
}

func (g *Group) Bounds() physics.AABB { return g.bounds }

// SetBounds changes the nominal region covered by the root
func (g *Group) SetBounds(bounds physics.AABB) {
	g.bounds = bounds
	g.version++
}

func (g *Group) PoolDepth() uint { return g.poolDepth }

// SetPoolDepth resizes the node pool. The pool is reallocated at the start
// of the next Update.
func (g *Group) SetPoolDepth(depth uint) {
	g.poolDepth = min(depth, MaxPoolDepth)
	g.version++
}

// Clone copies the membership and configuration of the group. The clone
// has no tree; call Update on it before querying.
func (g *Group) Clone() *Group {
	c := NewGroup(g.bounds,
		WithName(g.name),
		WithDepth(g.depth),
		WithPoolDepth(g.poolDepth),
		WithLogger(g.logger),
	)
	c.metrics = g.metrics
	for _, body := range g.bodies {
		c.Add(body)
	}
	return c
}
