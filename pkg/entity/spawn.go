// pkg/entity/spawn.go
package entity

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

// SpawnOptions controls the random bodies created by Spawn
type SpawnOptions struct {
	MinSize  float64
	MaxSize  float64
	MaxSpeed float64
}

// Spawn creates n bodies with random sizes, headings and speeds, placed
// fully inside bounds when they fit.
func Spawn(rng *rand.Rand, n int, bounds physics.AABB, opts SpawnOptions) []*Body {
	bodies := make([]*Body, 0, n)
	for i := 0; i < n; i++ {
		size := physics.Vector2D{
			X: between(rng, opts.MinSize, opts.MaxSize),
			Y: between(rng, opts.MinSize, opts.MaxSize),
		}
		pos := physics.Vector2D{
			X: bounds.Left() + rng.Float64()*math.Max(bounds.Size.X-size.X, 0),
			Y: bounds.Top() + rng.Float64()*math.Max(bounds.Size.Y-size.Y, 0),
		}
		angle := rng.Float64() * 2 * math.Pi
		speed := rng.Float64() * opts.MaxSpeed
		vel := physics.Vector2D{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed}

		body := NewBody(pos, size, vel)
		body.ID = newID(rng)
		bodies = append(bodies, body)
	}
	return bodies
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// newID draws a version 4 UUID from rng so seeded runs repeat their IDs
func newID(rng *rand.Rand) ID {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], rng.Uint64())
	binary.LittleEndian.PutUint64(b[8:], rng.Uint64())
	id, err := uuid.NewRandomFromReader(bytes.NewReader(b[:]))
	if err != nil {
		return uuid.New()
	}
	return id
}
