package render

import (
	"io"
	"math"
	"os"
	"strings"

	"github.com/opd-ai/go-quadcollide/pkg/entity"
	"github.com/opd-ai/go-quadcollide/pkg/physics"
)

const (
	idleRune = 'o'
	hitRune  = '#'
)

// TerminalRenderer provides a simple ASCII-based rendering for terminals
type TerminalRenderer struct {
	width     int
	height    int
	buffer    [][]rune
	scale     float64
	centerPos physics.Vector2D
	out       io.Writer
	clear     bool
}

// NewTerminalRenderer creates a new terminal renderer with the specified dimensions
func NewTerminalRenderer(width, height int, scale float64) *TerminalRenderer {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}

	r := &TerminalRenderer{
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
		out:    os.Stdout,
		clear:  true,
	}
	r.Clear()
	return r
}

// SetOutput sends frames to w without clearing the screen between them.
func (r *TerminalRenderer) SetOutput(w io.Writer) {
	r.out = w
	r.clear = false
}

// SetCenter sets the center position of the view
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// Fit centres the view on bounds and picks a scale that shows all of it.
func (r *TerminalRenderer) Fit(bounds physics.AABB) {
	r.centerPos = bounds.Center()
	sx := bounds.Size.X / float64(r.width)
	sy := bounds.Size.Y / float64(r.height)
	r.scale = math.Max(sx, sy)
	if r.scale <= 0 {
		r.scale = 1
	}
}

// worldToScreen converts world coordinates to screen coordinates
func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := math.Floor((pos.X-r.centerPos.X)/r.scale + float64(r.width)/2)
	screenY := math.Floor((pos.Y-r.centerPos.Y)/r.scale + float64(r.height)/2)
	return int(screenX), int(screenY)
}

// Clear implements Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
}

// RenderBody implements Renderer. A body covers every cell its box touches
// and at least one. Hit bodies overwrite idle ones.
func (r *TerminalRenderer) RenderBody(body *entity.Body, hit bool) {
	box := body.AABB()
	x0, y0 := r.worldToScreen(box.Position)
	x1, y1 := r.worldToScreen(physics.Vector2D{X: box.Right(), Y: box.Bottom()})
	x1 = max(x1, x0+1)
	y1 = max(y1, y0+1)

	symbol := idleRune
	if hit {
		symbol = hitRune
	}
	for y := max(y0, 0); y < min(y1, r.height); y++ {
		for x := max(x0, 0); x < min(x1, r.width); x++ {
			if r.buffer[y][x] == hitRune {
				continue
			}
			r.buffer[y][x] = symbol
		}
	}
}

// Present implements Renderer
func (r *TerminalRenderer) Present() {
	var sb strings.Builder
	if r.clear {
		sb.WriteString("\033[H\033[2J")
	}

	border := "+" + strings.Repeat("-", r.width) + "+\n"
	sb.WriteString(border)
	for y := range r.buffer {
		sb.WriteByte('|')
		sb.WriteString(string(r.buffer[y]))
		sb.WriteString("|\n")
	}
	sb.WriteString(border)

	io.WriteString(r.out, sb.String())
}
