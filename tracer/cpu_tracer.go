package tracer

import (
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/raybench/log"
)

type cpuTracer struct {
	logger log.Logger

	sync.Mutex

	// The tracer id.
	id string

	// The kernel used for tracing batches.
	kernel Kernel

	// A channel for receiving batch requests.
	batchReqChan chan BatchRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last traced batch.
	stats *Stats
}

// Create a new tracer that runs the kernel on its own goroutine.
func NewCpuTracer(id string, kernel Kernel) Tracer {
	tr := &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		kernel:       kernel,
		batchReqChan: make(chan BatchRequest),
		closeChan:    make(chan struct{}),
		stats:        &Stats{},
	}
	go tr.worker()

	return tr
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// All cpu tracers run the same kernel on identical cores.
func (tr *cpuTracer) SpeedEstimate() float32 {
	return 1.0
}

// Shutdown the worker. Calling Close more than once is a no-op.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan == nil {
		return
	}

	tr.closeChan <- struct{}{}

	// wait for worker to ack close and shutdown channel
	<-tr.closeChan
	close(tr.closeChan)
	tr.closeChan = nil
}

// Enqueue batch request. Blocks until the worker picks up the request.
func (tr *cpuTracer) Enqueue(batchReq BatchRequest) {
	tr.batchReqChan <- batchReq
}

// Retrieve last batch statistics.
func (tr *cpuTracer) Stats() *Stats {
	return tr.stats
}

func (tr *cpuTracer) worker() {
	for {
		select {
		case <-tr.closeChan:
			tr.closeChan <- struct{}{}
			return
		case req := <-tr.batchReqChan:
			tr.process(req)
		}
	}
}

func (tr *cpuTracer) process(req BatchRequest) {
	if len(req.Rays) != len(req.Hits) {
		req.ErrChan <- fmt.Errorf("%w: %d rays, %d hits", ErrSizeMismatch, len(req.Rays), len(req.Hits))
		return
	}
	if !tr.kernel.Supports(req.Accel.Kind) {
		req.ErrChan <- fmt.Errorf("%w: %s cannot traverse %s", ErrUnsupportedAccel, tr.kernel.Name(), req.Accel.Kind)
		return
	}

	start := time.Now()
	if len(req.Rays) > 0 {
		tr.kernel.Trace(req.Accel, req.Rays, req.Hits)
	}
	tr.stats.BatchSize = uint32(len(req.Rays))
	tr.stats.BatchTime = time.Since(start)

	req.DoneChan <- uint32(len(req.Rays))
}
