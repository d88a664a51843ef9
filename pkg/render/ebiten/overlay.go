// Package ebiten draws collision trees for debugging with Ebitengine.
package ebiten

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

var (
	bodyColor = color.RGBA{R: 90, G: 200, B: 90, A: 200}
	hitColor  = color.RGBA{R: 255, G: 0, B: 0, A: 48}
	hitEdge   = color.RGBA{R: 255, G: 0, B: 0, A: 200}
)

// Overlay maps world boxes to screen space and draws them
type Overlay struct {
	// Offset is the world position drawn at the screen origin
	Offset      physics.Vector2D
	Scale       float64
	StrokeWidth float32
	// MaxLevel limits the tree levels drawn; 0 draws every level
	MaxLevel int
}

// NewOverlay returns an overlay with an identity transform
func NewOverlay() *Overlay {
	return &Overlay{Scale: 1, StrokeWidth: 1}
}

// Fit centres bounds on a width x height screen, keeping its aspect ratio
func (o *Overlay) Fit(bounds physics.AABB, width, height int) {
	if bounds.Size.X <= 0 || bounds.Size.Y <= 0 || width <= 0 || height <= 0 {
		o.Offset = bounds.Position
		o.Scale = 1
		return
	}
	o.Scale = math.Min(float64(width)/bounds.Size.X, float64(height)/bounds.Size.Y)

	// pad the shorter axis so the box sits in the middle of the screen
	padX := (float64(width)/o.Scale - bounds.Size.X) / 2
	padY := (float64(height)/o.Scale - bounds.Size.Y) / 2
	o.Offset = physics.Vector2D{X: bounds.Left() - padX, Y: bounds.Top() - padY}
}

// Project converts a world box to screen coordinates
func (o *Overlay) Project(box physics.AABB) (x, y, w, h float32) {
	x = float32((box.Left() - o.Offset.X) * o.Scale)
	y = float32((box.Top() - o.Offset.Y) * o.Scale)
	w = float32(box.Size.X * o.Scale)
	h = float32(box.Size.Y * o.Scale)
	return x, y, w, h
}

// DrawTree outlines every node of tree, coloured by level, and returns the
// number of nodes drawn. Stale trees are skipped.
func (o *Overlay) DrawTree(dst *ebiten.Image, tree *collision.Tree) int {
	if dst == nil || tree == nil || tree.Stale() {
		return 0
	}
	drawn := 0
	tree.Walk(func(n collision.NodeInfo) bool {
		if o.MaxLevel > 0 && n.Level > o.MaxLevel {
			return false
		}
		x, y, w, h := o.Project(n.Bounds)
		vector.StrokeRect(dst, x, y, w, h, o.StrokeWidth, LevelColor(n.Level), false)
		drawn++
		return true
	})
	return drawn
}

// DrawBodies outlines each body
func (o *Overlay) DrawBodies(dst *ebiten.Image, bodies []collision.Collidable) {
	for _, b := range bodies {
		x, y, w, h := o.Project(b.AABB())
		vector.StrokeRect(dst, x, y, w, h, o.StrokeWidth, bodyColor, false)
	}
}

// DrawHits fills the intersection of every overlapping pair
func (o *Overlay) DrawHits(dst *ebiten.Image, hits []collision.Details) {
	for _, d := range hits {
		x, y, w, h := o.Project(Intersection(d.Body1.AABB(), d.Body2.AABB()))
		vector.FillRect(dst, x, y, w, h, hitColor, false)
		vector.StrokeRect(dst, x, y, w, h, o.StrokeWidth, hitEdge, false)
	}
}

// Intersection returns the box shared by a and b. Disjoint boxes give a
// zero size box.
func Intersection(a, b physics.AABB) physics.AABB {
	lo := a.Position.Max(b.Position)
	hi := physics.Vector2D{X: math.Min(a.Right(), b.Right()), Y: math.Min(a.Bottom(), b.Bottom())}
	return physics.FromCorners(lo, lo.Max(hi))
}

// LevelColor fades node outlines from white at the root towards blue
func LevelColor(level int) color.RGBA {
	shade := 255 - min(max(level-1, 0)*32, 192)
	return color.RGBA{R: uint8(shade), G: uint8(shade), B: 255, A: 160}
}
