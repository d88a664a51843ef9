// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
	"github.com/opd-ai/go-quadcollide/pkg/entity"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
)

// Renderer draws one frame of bodies at a time
type Renderer interface {
	Clear()
	RenderBody(body *entity.Body, hit bool)
	Present()
}

// DrawFrame renders every body, marking those that appear in hits.
func DrawFrame(r Renderer, bodies []*entity.Body, hits []collision.Details) {
	touched := make(map[collision.Collidable]bool, 2*len(hits))
	for _, d := range hits {
		touched[d.Body1] = true
		touched[d.Body2] = true
	}

	r.Clear()
	for _, b := range bodies {
		r.RenderBody(b, touched[b])
	}
	r.Present()
}

// LogRenderer writes each frame to a structured log at debug level.
type LogRenderer struct {
	logger *logging.Logger
	bodies int
	hits   int
}

// NewLogRenderer creates a LogRenderer. A nil logger uses the default one.
func NewLogRenderer(logger *logging.Logger) *LogRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &LogRenderer{logger: logger}
}

// Clear implements Renderer.
func (d *LogRenderer) Clear() {
	d.bodies, d.hits = 0, 0
	d.logger.Debug(context.Background(), "frame cleared")
}

// RenderBody implements Renderer.
func (d *LogRenderer) RenderBody(body *entity.Body, hit bool) {
	ctx := context.Background()
	if body == nil {
		d.logger.Debug(ctx, "RenderBody called with nil body")
		return
	}
	d.bodies++
	if hit {
		d.hits++
	}
	d.logger.Debug(ctx, "body rendered",
		"body_id", body.ID.String(),
		"x", body.Position.X,
		"y", body.Position.Y,
		"hit", hit,
	)
}

// Present implements Renderer.
func (d *LogRenderer) Present() {
	d.logger.Debug(context.Background(), "frame presented",
		"bodies", d.bodies,
		"hits", d.hits,
	)
}
