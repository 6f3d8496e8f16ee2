package tracer

import (
	"time"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/types"
)

// A unit of work that is processed by a tracer.
type BatchRequest struct {
	// The accel to trace against.
	Accel *scene.Accel

	// The rays to trace and the hit records to update. Both slices have
	// the same length and are owned by the tracer until it signals.
	Rays []types.Ray
	Hits []types.Hit

	// A channel to signal on batch completion with the number of traced rays.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The number of rays in the last batch.
	BatchSize uint32

	// The time for tracing the last batch.
	BatchTime time.Duration
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// baseline (single worker) implementation.
	SpeedEstimate() float32

	// Enqueue batch request.
	Enqueue(BatchRequest)

	// Retrieve last batch statistics.
	Stats() *Stats
}
