package tracer

import (
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

// A Pool splits ray buffers across a set of tracers.
type Pool struct {
	logger    log.Logger
	tracers   []Tracer
	scheduler BatchScheduler

	// The batch assignment used by the last Trace call.
	lastAssignment []uint32
}

// Create a pool with one cpu tracer per worker, all running the same kernel.
func NewPool(kernel Kernel, workers int, scheduler BatchScheduler) (*Pool, error) {
	if workers < 1 {
		return nil, ErrNoTracers
	}
	if scheduler == nil {
		scheduler = PerfectScheduler()
	}

	tracers := make([]Tracer, workers)
	for idx := range tracers {
		tracers[idx] = NewCpuTracer(fmt.Sprintf("%s-%d", kernel.Name(), idx), kernel)
	}
	return NewPoolWithTracers(tracers, scheduler)
}

// Create a pool from an existing set of tracers.
func NewPoolWithTracers(tracers []Tracer, scheduler BatchScheduler) (*Pool, error) {
	if len(tracers) == 0 {
		return nil, ErrNoTracers
	}
	return &Pool{
		logger:    log.New("tracer pool"),
		tracers:   tracers,
		scheduler: scheduler,
	}, nil
}

// Get the attached tracers.
func (p *Pool) Tracers() []Tracer {
	return p.tracers
}

// Get the batch assignment used by the last Trace call.
func (p *Pool) LastAssignment() []uint32 {
	return p.lastAssignment
}

// Shutdown all tracers.
func (p *Pool) Close() {
	for _, tr := range p.tracers {
		tr.Close()
	}
	p.tracers = nil
}

// Trace rays against the accel and block until all tracers are done. Each
// tracer receives a contiguous slice of the ray and hit buffers.
func (p *Pool) Trace(accel *scene.Accel, rays []types.Ray, hits []types.Hit) error {
	if len(p.tracers) == 0 {
		return ErrNoTracers
	}
	if len(rays) != len(hits) {
		return fmt.Errorf("%w: %d rays, %d hits", ErrSizeMismatch, len(rays), len(hits))
	}

	start := time.Now()
	assignment := p.scheduler.Schedule(p.tracers, uint32(len(rays)))
	p.lastAssignment = assignment

	doneChan := make(chan uint32, len(p.tracers))
	errChan := make(chan error, len(p.tracers))

	var offset uint32
	for idx, tr := range p.tracers {
		end := offset + assignment[idx]
		tr.Enqueue(BatchRequest{
			Accel:    accel,
			Rays:     rays[offset:end],
			Hits:     hits[offset:end],
			DoneChan: doneChan,
			ErrChan:  errChan,
		})
		offset = end
	}

	var firstErr error
	var traced uint32
	for pending := len(p.tracers); pending > 0; pending-- {
		select {
		case count := <-doneChan:
			traced += count
		case err := <-errChan:
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return firstErr
	}

	p.logger.Debugf("traced %d rays with %d tracers in %d us", traced, len(p.tracers), time.Since(start).Nanoseconds()/1e3)
	return nil
}
