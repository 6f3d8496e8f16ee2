package renderer

import (
	"context"

	"github.com/achilleasa/raybench/types"
)

type Renderer interface {
	// Run the dry and timed iterations. Cancelling the context aborts the
	// run between iterations.
	Render(ctx context.Context) error

	// Shutdown renderer and any attached tracer.
	Close()

	// Get run statistics.
	Stats() RunStats

	// Get the hit records produced by the last iteration.
	Hits() []types.Hit
}
