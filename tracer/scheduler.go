package tracer

import "math"

// The BatchScheduler interface is implemented by all batch scheduling algorithms.
type BatchScheduler interface {
	// Split a ray buffer into batches of variable size and assign them to
	// the pool of tracers using feedback collected from previous runs.
	//
	// This function returns the batch size assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, rayCount uint32) []uint32
}

// The naive scheduler splits rays according to the tracer speed estimates.
type naiveScheduler struct{}

// Create a new naive scheduler instance.
func NaiveScheduler() BatchScheduler {
	return naiveScheduler{}
}

func (naiveScheduler) Schedule(tracers []Tracer, rayCount uint32) []uint32 {
	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		weights[idx] = float64(tr.SpeedEstimate())
	}
	return distribute(weights, rayCount)
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent iterations is approximately the same.
type perfectScheduler struct {
	batchAssignment []uint32
}

// Create a new perfect scheduler instance.
func PerfectScheduler() BatchScheduler {
	return &perfectScheduler{}
}

// Split rays into batches using the tracer throughput of the previous call.
// When previous information is available the scheduler uses the following
// formula for estimating the workload for tracer w and iteration i+1:
// w_i, f_i+1 = (batch,w_i / time,w_i) / Σ(batch_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, rayCount uint32) []uint32 {
	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the batch assignments
	if len(sch.batchAssignment) != len(tracers) {
		sch.batchAssignment = NaiveScheduler().Schedule(tracers, rayCount)
		return sch.batchAssignment
	}

	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		stats := tr.Stats()
		if stats.BatchTime <= 0 || stats.BatchSize == 0 {
			// No usable feedback; fall back to the speed estimates.
			sch.batchAssignment = NaiveScheduler().Schedule(tracers, rayCount)
			return sch.batchAssignment
		}
		weights[idx] = float64(stats.BatchSize) / float64(stats.BatchTime)
	}

	sch.batchAssignment = distribute(weights, rayCount)
	return sch.batchAssignment
}

// Split total into parts proportional to weights. Every part gets at least one
// item when there are enough items to go around; any rounding leftovers are
// appended to the first part.
func distribute(weights []float64, total uint32) []uint32 {
	assignment := make([]uint32, len(weights))
	if len(weights) == 0 {
		return assignment
	}

	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		assignment[0] = total
		return assignment
	}

	scaler := float64(total) / sum
	minPart := 0.0
	if total >= uint32(len(weights)) {
		minPart = 1.0
	}

	var scheduled uint32
	for idx, w := range weights {
		assignment[idx] = uint32(math.Max(minPart, math.Floor(w*scaler)))
		scheduled += assignment[idx]
	}

	// The minimum part size may overshoot; take the excess from the largest parts.
	for scheduled > total {
		largest := 0
		for idx := range assignment {
			if assignment[idx] > assignment[largest] {
				largest = idx
			}
		}
		assignment[largest]--
		scheduled--
	}

	assignment[0] += total - scheduled
	return assignment
}
