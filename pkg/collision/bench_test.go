package collision

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

func benchGroup(b *testing.B, n int) *Group {
	b.StopTimer()
	rng := rand.New(rand.NewPCG(42, 42))

	g := NewGroup(physics.NewAABB(0, 0, 1024, 1024), WithDepth(6), WithPoolDepth(6))
	for i := 0; i != n; i++ {
		size := 4 + rng.Float64()*12
		g.Add(newBody(strconv.Itoa(i), rng.Float64()*(1024-size), rng.Float64()*(1024-size), size, size))
	}
	b.StartTimer()
	return g
}

func BenchmarkUpdate(b *testing.B) {
	g := benchGroup(b, 2000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i != b.N; i++ {
		g.Update()
	}
}

func BenchmarkCollideSelf(b *testing.B) {
	g := benchGroup(b, 2000)
	tree := g.Update()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i != b.N; i++ {
		if _, err := tree.CollideSelf(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBruteForce(b *testing.B) {
	g := benchGroup(b, 2000)
	bodies := g.Bodies()
	b.ResetTimer()
	for i := 0; i != b.N; i++ {
		BruteForce(bodies)
	}
}
