package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/tracer"
	"github.com/achilleasa/raybench/tracer/device"
	"github.com/achilleasa/raybench/types"
	"github.com/google/uuid"
)

// The default renderer uploads the accel and ray buffers to a device and
// traces them with a pool of tracers.
type defaultRenderer struct {
	logger log.Logger

	options Options
	runID   string

	kernel tracer.Kernel
	device *device.Device
	pool   *tracer.Pool

	// Uploaded accel.
	accelBuffers *device.AccelBuffers

	// The pristine rays and the device side working buffers.
	pristine  []types.Ray
	rayBuffer *device.Buffer
	hitBuffer *device.Buffer
	rays      []types.Ray
	hits      []types.Hit

	stats RunStats
}

// Create a new default renderer. The accel and rays are uploaded to the
// selected device; an upload failure aborts the setup.
func NewDefault(accel *scene.Accel, rays []types.Ray, opts Options) (Renderer, error) {
	if accel == nil {
		return nil, ErrAccelNotDefined
	}
	if len(rays) == 0 {
		return nil, ErrNoRays
	}
	if opts.Times < 1 {
		return nil, ErrInvalidIterations
	}
	if opts.Kernel == "" {
		opts.Kernel = tracer.ReferenceKernelName
	}

	kernel, err := tracer.Lookup(opts.Kernel)
	if err != nil {
		return nil, err
	}
	if !kernel.Supports(accel.Kind) {
		return nil, fmt.Errorf("%w: %s cannot traverse %s", tracer.ErrUnsupportedAccel, kernel.Name(), accel.Kind)
	}

	r := &defaultRenderer{
		options: opts,
		runID:   uuid.New().String(),
		kernel:  kernel,
	}
	r.logger = log.New(fmt.Sprintf("renderer (%s)", r.runID[:8]))

	if err = r.selectDevice(opts.Device); err != nil {
		return nil, err
	}

	if err = r.upload(accel, rays); err != nil {
		r.Close()
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = r.device.Workers
	}
	r.pool, err = tracer.NewPool(kernel, workers, tracer.PerfectScheduler())
	if err != nil {
		r.Close()
		return nil, err
	}

	r.stats = RunStats{
		RunID:   r.runID,
		Kernel:  kernel.Name(),
		Device:  r.device.Name,
		Kind:    accel.Kind,
		Rays:    len(rays),
		Times:   opts.Times,
		DryRuns: opts.DryRuns,
	}

	return r, nil
}

func (r *defaultRenderer) selectDevice(name string) error {
	devices := device.GetDevices(device.AllDevices)
	if len(devices) == 0 {
		return device.ErrNoSuchDevice
	}
	if name == "" {
		r.device = devices[0]
		return nil
	}

	var err error
	r.device, err = devices.Select(name)
	return err
}

func (r *defaultRenderer) upload(accel *scene.Accel, rays []types.Ray) error {
	var err error
	r.accelBuffers, err = device.UploadAccel(r.device, accel)
	if err != nil {
		return err
	}

	r.pristine = make([]types.Ray, len(rays))
	copy(r.pristine, rays)

	r.rayBuffer = r.device.Buffer("rays")
	if err = r.rayBuffer.WriteData(rays); err != nil {
		return err
	}
	r.rays = r.rayBuffer.Data().([]types.Ray)

	r.hitBuffer = r.device.Buffer("hits")
	if err = r.hitBuffer.WriteData(make([]types.Hit, len(rays))); err != nil {
		return err
	}
	r.hits = r.hitBuffer.Data().([]types.Hit)

	return nil
}

// Shutdown renderer and release device buffers.
func (r *defaultRenderer) Close() {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	if r.accelBuffers != nil {
		r.accelBuffers.Release()
		r.accelBuffers = nil
	}
	if r.rayBuffer != nil {
		r.rayBuffer.Release()
		r.rayBuffer = nil
	}
	if r.hitBuffer != nil {
		r.hitBuffer.Release()
		r.hitBuffer = nil
	}
}

// Get run statistics.
func (r *defaultRenderer) Stats() RunStats {
	return r.stats
}

// Get the hit records produced by the last iteration.
func (r *defaultRenderer) Hits() []types.Hit {
	return r.hits
}

// Run the dry and timed iterations.
func (r *defaultRenderer) Render(ctx context.Context) error {
	if r.pool == nil {
		return ErrNoTracers
	}

	r.logger.Noticef("tracing %d rays against %s accel using kernel %q on %s (%d dry runs, %d timed runs)",
		len(r.rays), r.stats.Kind, r.kernel.Name(), r.device.Name, r.options.DryRuns, r.options.Times)

	for iteration := 0; iteration < r.options.DryRuns; iteration++ {
		if _, err := r.iterate(ctx); err != nil {
			return err
		}
	}

	var total time.Duration
	for iteration := 0; iteration < r.options.Times; iteration++ {
		elapsed, err := r.iterate(ctx)
		if err != nil {
			return err
		}
		total += elapsed
		r.logger.Debugf("iteration %d: %s", iteration, elapsed)
	}

	r.collectStats(total)
	r.logger.Noticef("%d iterations in %.3f ms (%.0f rays/s, %d hits)",
		r.options.Times, float64(total.Nanoseconds())/1e6, r.stats.RaysPerSec(), r.stats.Hits)
	return nil
}

// Restore the ray buffer, reset the hit buffer and trace all rays. Only the
// trace call is timed.
func (r *defaultRenderer) iterate(ctx context.Context) (time.Duration, error) {
	select {
	case <-ctx.Done():
		return 0, ErrInterrupted
	default:
	}

	copy(r.rays, r.pristine)
	for idx := range r.hits {
		r.hits[idx] = types.MissFor(r.pristine[idx])
	}

	start := time.Now()
	err := r.pool.Trace(r.accelBuffers.Accel, r.rays, r.hits)
	return time.Since(start), err
}

func (r *defaultRenderer) collectStats(total time.Duration) {
	r.stats.TotalTime = total

	r.stats.Hits = 0
	for idx := range r.hits {
		if r.hits[idx].IsHit() {
			r.stats.Hits++
		}
	}

	tracers := r.pool.Tracers()
	r.stats.Tracers = make([]TracerStat, len(tracers))
	for idx, tr := range tracers {
		stats := tr.Stats()
		r.stats.Tracers[idx] = TracerStat{
			Id:          tr.Id(),
			BatchSize:   stats.BatchSize,
			RaysPercent: 100.0 * float32(stats.BatchSize) / float32(len(r.rays)),
			TraceTime:   stats.BatchTime,
		}
	}
}
