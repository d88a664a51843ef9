package collision

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-quadcollide/pkg/logging"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

type testBody struct {
	name string
	box  physics.AABB
}

func (b *testBody) AABB() physics.AABB { return b.box }

func newBody(name string, x, y, w, h float64) *testBody {
	return &testBody{name: name, box: physics.NewAABB(x, y, w, h)}
}

type pair struct{ a, b *testBody }

func key(a, b Collidable) pair {
	x, y := a.(*testBody), b.(*testBody)
	if x.name > y.name {
		x, y = y, x
	}
	return pair{x, y}
}

func pairsOf(t *testing.T, details []Details) map[pair]int {
	t.Helper()
	out := make(map[pair]int)
	for _, d := range details {
		out[key(d.Body1, d.Body2)]++
	}
	return out
}

func bruteForcePairs(bodies []*testBody) map[pair]int {
	out := make(map[pair]int)
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			if bodies[i].box.Overlaps(bodies[j].box) {
				out[key(bodies[i], bodies[j])]++
			}
		}
	}
	return out
}

func TestCalculatePoolSize(t *testing.T) {
	tests := []struct {
		depth    uint
		expected int
	}{
		{0, 0},
		{1, 1},
		{2, 5},
		{3, 21},
		{5, 341},
		{10, 349525},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CalculatePoolSize(tt.depth), "depth %d", tt.depth)
		if tt.depth > 0 {
			closed := (math.Pow(4, float64(tt.depth)) - 1) / 3
			assert.Equal(t, int(closed), CalculatePoolSize(tt.depth))
		}
	}
}

func TestNewGroupDefaults(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))

	assert.Equal(t, DefaultDepth, g.Depth())
	assert.Equal(t, DefaultPoolDepth, g.PoolDepth())
	assert.Equal(t, "default", g.Name())
	assert.Equal(t, CalculatePoolSize(DefaultPoolDepth), g.pool.Cap())
	assert.Zero(t, g.Len())
}

func TestConcreteScenario(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100), WithDepth(3))
	a := newBody("a", 10, 10, 5, 5)
	b := newBody("b", 12, 12, 5, 5)
	g.Add(a)
	g.Add(b)

	hits, err := g.Update().CollideSelf()
	require.NoError(t, err)
	require.Len(t, hits, 1)

	d := hits[0]
	assert.Equal(t, 3.0, d.Overlap)
	assert.ElementsMatch(t, []Collidable{a, b}, []Collidable{d.Body1, d.Body2})
	assert.NotZero(t, d.SidesBody1)
	assert.NotZero(t, d.SidesBody2)
}

func TestCollideEmptyResult(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))
	for i := 0; i < 10; i++ {
		g.Add(newBody(string(rune('a'+i)), float64(i*10), 0, 5, 5))
	}
	query := newBody("query", 40, 60, 10, 10)

	hits, err := g.Update().Collide(query)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCollideExactlyOneHit(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))
	target := newBody("target", 70, 70, 10, 10)
	g.Add(newBody("far", 5, 5, 5, 5))
	g.Add(target)
	g.Add(newBody("edge", 80, 60, 10, 10))

	query := newBody("query", 75, 75, 10, 10)
	hits, err := g.Update().Collide(query)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.Same(t, target, hits[0].Body1)
	assert.Same(t, query, hits[0].Body2)
	assert.Greater(t, hits[0].Overlap, 0.0)
}

func TestCollideSkipsTouchingBoxes(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))
	g.Add(newBody("left", 0, 0, 10, 10))
	g.Add(newBody("right", 10, 0, 10, 10))
	g.Add(newBody("below", 0, 10, 10, 10))

	hits, err := g.Update().CollideSelf()
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCollideMemberSkipsItself(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))
	a := newBody("a", 10, 10, 10, 10)
	b := newBody("b", 15, 15, 10, 10)
	g.Add(a)
	g.Add(b)

	hits, err := g.Update().Collide(a)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Same(t, b, hits[0].Body1)
	assert.Same(t, a, hits[0].Body2)
}

func TestUpdateIsIdempotent(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100), WithDepth(4))
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 60; i++ {
		g.Add(&testBody{
			name: string(rune(0x100 + i)),
			box:  physics.NewAABB(rng.Float64()*90, rng.Float64()*90, 1+rng.Float64()*9, 1+rng.Float64()*9),
		})
	}

	first, err := g.Update().CollideSelf()
	require.NoError(t, err)
	second, err := g.Update().CollideSelf()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPoolSufficiency(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 64, 64), WithDepth(3), WithPoolDepth(3))
	for x := 0; x < 64; x += 4 {
		for y := 0; y < 64; y += 4 {
			g.Add(&testBody{name: string(rune(0x1000 + x*64 + y)), box: physics.NewAABB(float64(x), float64(y), 2, 2)})
		}
	}

	stats := g.Update().Stats()
	assert.Zero(t, stats.OverflowNodes)
	assert.Equal(t, CalculatePoolSize(3), stats.PoolNodes)
	assert.Equal(t, uint(3), stats.Depth)
}

func TestPoolExhaustionUsesOverflow(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(&buf, "json")

	g := NewGroup(physics.NewAABB(0, 0, 64, 64), WithDepth(4), WithPoolDepth(1), WithLogger(logger))
	var bodies []*testBody
	for i := 0; i < 8; i++ {
		b := newBody(string(rune('a'+i)), float64(i*8), float64(i*8), 3, 3)
		bodies = append(bodies, b)
		g.Add(b)
	}
	overlapping := newBody("z", 1, 1, 3, 3)
	bodies = append(bodies, overlapping)
	g.Add(overlapping)

	tree := g.Update()
	stats := tree.Stats()
	assert.Equal(t, 1, stats.PoolNodes)
	assert.Positive(t, stats.OverflowNodes)
	assert.Contains(t, buf.String(), "node pool exhausted")

	hits, err := tree.CollideSelf()
	require.NoError(t, err)
	assert.Equal(t, bruteForcePairs(bodies), pairsOf(t, hits))

	// A build that fits the pool drops the overflow nodes again.
	g.Clear()
	g.Add(newBody("solo", 1, 1, 60, 60))
	assert.Zero(t, g.Update().Stats().OverflowNodes)
}

func TestGrowthPreservesMembership(t *testing.T) {
	bounds := physics.NewAABB(0, 0, 100, 100)
	g := NewGroup(bounds, WithDepth(3))
	a := newBody("a", 10, 10, 5, 5)
	b := newBody("b", 12, 12, 5, 5)
	far := newBody("far", 1000, 1000, 5, 5)
	g.Add(a)
	g.Add(b)
	g.Add(far)

	tree := g.Update()
	stats := tree.Stats()
	assert.Greater(t, stats.Depth, uint(3))
	assert.True(t, far.box.IsCompletelyInside(stats.Bounds))
	assert.True(t, bounds.IsCompletelyInside(stats.Bounds))

	hits, err := tree.CollideSelf()
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.ElementsMatch(t, []Collidable{a, b}, []Collidable{hits[0].Body1, hits[0].Body2})

	query := newBody("query", 1002, 1002, 10, 10)
	hits, err = tree.Collide(query)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Same(t, far, hits[0].Body1)

	// Growth is transient: the next build without the far body is nominal.
	g.Remove(far)
	stats = g.Update().Stats()
	assert.Equal(t, uint(3), stats.Depth)
	assert.Equal(t, bounds, stats.Bounds)
}

func TestZeroDepthReportsWalkedLevels(t *testing.T) {
	bounds := physics.NewAABB(0, 0, 100, 100)
	g := NewGroup(bounds, WithDepth(0))
	g.Add(newBody("a", 10, 10, 5, 5))
	g.Add(newBody("b", 12, 12, 5, 5))
	g.Add(newBody("far", 3000, 3000, 5, 5))
	g.Add(newBody("west", -900, 40, 5, 5))

	tree := g.Update()
	stats := tree.Stats()

	deepest := 0
	tree.Walk(func(n NodeInfo) bool {
		deepest = max(deepest, n.Level)
		return true
	})
	assert.Greater(t, stats.Depth, uint(1))
	assert.LessOrEqual(t, uint(deepest), stats.Depth)

	hits, err := tree.CollideSelf()
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// without far bodies the root is the only level
	g.Clear()
	g.Add(newBody("a", 10, 10, 5, 5))
	assert.Equal(t, uint(1), g.Update().Stats().Depth)
}

func TestGrowthTowardsNegativeCoordinates(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100), WithDepth(4))
	inside := newBody("inside", 50, 50, 10, 10)
	g.Add(newBody("west", -350, 20, 10, 10))
	g.Add(inside)
	g.Add(newBody("north", 20, -500, 10, 10))

	tree := g.Update()
	stats := tree.Stats()
	for _, body := range g.Bodies() {
		assert.True(t, body.AABB().IsCompletelyInside(stats.Bounds), "%v outside root %v", body.AABB(), stats.Bounds)
	}

	hits, err := tree.Collide(newBody("query", 55, 55, 2, 2))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Same(t, inside, hits[0].Body1)
}

func TestUnreachableBodiesStayOnRoot(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))
	nan := newBody("nan", math.NaN(), 0, 5, 5)
	a := newBody("a", 10, 10, 5, 5)
	g.Add(nan)
	g.Add(a)

	tree := g.Update()
	var rootBodies []Collidable
	tree.Walk(func(n NodeInfo) bool {
		if n.Level == 1 {
			rootBodies = n.Bodies
		}
		return true
	})
	assert.Contains(t, rootBodies, Collidable(nan))

	hits, err := tree.Collide(newBody("query", 11, 11, 2, 2))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Same(t, a, hits[0].Body1)

	zero := NewGroup(physics.NewAABB(0, 0, 0, 0))
	zero.Add(a)
	hits, err = zero.Update().Collide(newBody("query", 11, 11, 2, 2))
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestStraddlingBodiesStayHigh(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100), WithDepth(4))
	center := newBody("center", 45, 45, 10, 10)
	onLine := newBody("line", 50, 10, 0, 5)
	corner := newBody("corner", 1, 1, 2, 2)
	g.Add(center)
	g.Add(onLine)
	g.Add(corner)

	levels := make(map[Collidable]int)
	g.Update().Walk(func(n NodeInfo) bool {
		for _, b := range n.Bodies {
			levels[b] = n.Level
		}
		return true
	})

	assert.Equal(t, 1, levels[center], "straddling body stays on the root")
	assert.Equal(t, 4, levels[corner], "small body sinks to the depth limit")
	assert.Greater(t, levels[onLine], 1, "zero-width body on a split line picks the west side")
}

func TestWalkStopsDescending(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100), WithDepth(3))
	g.Add(newBody("a", 1, 1, 1, 1))

	visited := 0
	g.Update().Walk(func(n NodeInfo) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestStaleTree(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))
	a := newBody("a", 10, 10, 5, 5)
	g.Add(a)
	tree := g.Update()
	require.False(t, tree.Stale())

	mutations := []struct {
		name   string
		mutate func()
	}{
		{"add", func() { g.Add(newBody("b", 12, 12, 5, 5)) }},
		{"remove", func() { g.Remove(a) }},
		{"clear", func() { g.Clear() }},
		{"set_bounds", func() { g.SetBounds(physics.NewAABB(0, 0, 50, 50)) }},
		{"set_depth", func() { g.SetDepth(2) }},
		{"set_pool_depth", func() { g.SetPoolDepth(2) }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			tree := g.Update()
			tt.mutate()
			require.True(t, tree.Stale())

			_, err := tree.Collide(a)
			require.ErrorIs(t, err, ErrStaleTree)
			_, err = tree.CollideSelf()
			require.ErrorIs(t, err, ErrStaleTree)
			_, err = tree.CollideGroup(g)
			require.ErrorIs(t, err, ErrStaleTree)

			_, err = g.Update().CollideSelf()
			require.NoError(t, err)
		})
	}
}

func TestAddRemoveMembership(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100))
	a := newBody("a", 0, 0, 1, 1)
	b := newBody("b", 2, 2, 1, 1)
	c := newBody("c", 4, 4, 1, 1)

	g.Add(a)
	g.Add(b)
	g.Add(c)
	g.Add(a)
	require.Equal(t, 3, g.Len())

	tree := g.Update()
	g.Remove(newBody("stranger", 0, 0, 1, 1))
	assert.False(t, tree.Stale(), "removing a non-member is a no-op")

	g.Remove(a)
	assert.Equal(t, 2, g.Len())
	assert.False(t, g.Contains(a))
	assert.True(t, g.Contains(b))
	assert.True(t, g.Contains(c))
	assert.ElementsMatch(t, []Collidable{b, c}, g.Bodies())

	g.Clear()
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Bodies())
}

func TestCloneIsStale(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100), WithDepth(4), WithPoolDepth(3), WithName("orig"))
	a := newBody("a", 10, 10, 5, 5)
	b := newBody("b", 12, 12, 5, 5)
	g.Add(a)
	g.Add(b)
	g.Update()

	c := g.Clone()
	assert.Equal(t, g.Bounds(), c.Bounds())
	assert.Equal(t, g.Depth(), c.Depth())
	assert.Equal(t, g.PoolDepth(), c.PoolDepth())
	assert.Equal(t, g.Bodies(), c.Bodies())

	g.Remove(a)
	assert.True(t, c.Contains(a), "clone membership is independent")

	hits, err := c.Update().CollideSelf()
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestCollideGroup(t *testing.T) {
	walls := NewGroup(physics.NewAABB(0, 0, 100, 100))
	wall := newBody("wall", 0, 90, 100, 10)
	walls.Add(wall)
	walls.Add(newBody("pillar", 40, 0, 5, 50))

	actors := NewGroup(physics.NewAABB(0, 0, 100, 100))
	falling := newBody("falling", 10, 85, 8, 8)
	actors.Add(falling)
	actors.Add(newBody("flying", 70, 10, 5, 5))
	actors.Add(wall)

	hits, err := walls.Update().CollideGroup(actors)
	require.NoError(t, err)
	require.Len(t, hits, 1, "shared members do not collide with themselves")

	d := hits[0]
	assert.Same(t, wall, d.Body1)
	assert.Same(t, falling, d.Body2)
	assert.Equal(t, 3.0, d.Overlap)
	assert.Equal(t, SideTop, d.SidesBody1)
	assert.Equal(t, SideBottom, d.SidesBody2)
}

func TestCollideMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1024))

	for round := 0; round < 5; round++ {
		g := NewGroup(physics.NewAABB(0, 0, 500, 500), WithDepth(uint(2+round)), WithPoolDepth(3))
		var bodies []*testBody
		for i := 0; i < 300; i++ {
			b := &testBody{
				name: string(rune(0x4000 + i)),
				box: physics.NewAABB(
					rng.Float64()*600-50,
					rng.Float64()*600-50,
					rng.Float64()*20,
					rng.Float64()*20,
				),
			}
			bodies = append(bodies, b)
			g.Add(b)
		}

		hits, err := g.Update().CollideSelf()
		require.NoError(t, err)
		require.Equal(t, bruteForcePairs(bodies), pairsOf(t, hits), "round %d", round)
	}
}

func TestMetrics(t *testing.T) {
	g := NewGroup(physics.NewAABB(0, 0, 100, 100), WithName("metrics-test"), WithMetrics())
	g.Add(newBody("a", 10, 10, 5, 5))
	g.Add(newBody("b", 12, 12, 5, 5))
	g.Add(newBody("far", 300, 300, 5, 5))

	_, err := g.Update().CollideSelf()
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collisionsTotal.WithLabelValues("metrics-test")))
	assert.Equal(t, 2.0, testutil.ToFloat64(treeGrowthTotal.WithLabelValues("metrics-test")))
	assert.Equal(t, 7.0, testutil.ToFloat64(treeDepth.WithLabelValues("metrics-test")))
	assert.Positive(t, testutil.ToFloat64(treeNodes.WithLabelValues("metrics-test", "pool")))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(buildDuration), 1)
}
