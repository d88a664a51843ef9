// pkg/render/ebiten/viewer.go
package ebiten

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/engine"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
)

// Viewer is an ebiten.Game that steps a world every frame and draws its
// tree, bodies and overlaps. Space pauses, T toggles the tree.
type Viewer struct {
	world   *engine.World
	overlay *Overlay
	logger  *logging.Logger

	width, height int
	paused        bool
	hideTree      bool
	hits          []collision.Details
}

// NewViewer creates a viewer for world on a width x height screen
func NewViewer(world *engine.World, width, height int) *Viewer {
	return &Viewer{
		world:   world,
		overlay: NewOverlay(),
		logger:  world.Logger,
		width:   width,
		height:  height,
	}
}

// Update implements ebiten.Game
func (v *Viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		v.paused = !v.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		v.hideTree = !v.hideTree
	}
	if v.paused {
		return nil
	}

	hits, err := v.world.Step(1 / float64(ebiten.TPS()))
	if err != nil {
		v.logger.Error(context.Background(), "step failed", err)
		return err
	}
	v.hits = hits
	return nil
}

// Draw implements ebiten.Game
func (v *Viewer) Draw(screen *ebiten.Image) {
	tree := v.world.Tree()
	if tree == nil {
		return
	}

	v.overlay.Fit(tree.Stats().Bounds, v.width, v.height)
	if !v.hideTree {
		v.overlay.DrawTree(screen, tree)
	}
	v.overlay.DrawBodies(screen, v.world.Group.Bodies())
	v.overlay.DrawHits(screen, v.hits)

	stats := v.world.Stats()
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"tick %d  bodies %d  hits %d  nodes %d (+%d overflow)  depth %d  FPS %.1f",
		v.world.CurrentTick, stats.Bodies, len(v.hits),
		stats.PoolNodes, stats.OverflowNodes, stats.Depth, ebiten.ActualFPS(),
	))
}

// Layout implements ebiten.Game
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.width, v.height
}
