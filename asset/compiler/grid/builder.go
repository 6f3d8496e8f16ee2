package grid

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

// The grid resolution used when none is specified.
var DefaultDims = [3]int{100, 70, 70}

var (
	ErrInvalidDims       = errors.New("grid: dimensions must be positive")
	ErrTooManyReferences = errors.New("grid: triangle references do not fit in a 32-bit cell range")
)

// The largest number of (triangle, cell) references a grid can hold. Cell
// ranges index the packed triangle list with int32 offsets.
var maxReferences = math.MaxInt32

// Grid build options.
type Options struct {
	// Number of cells along each axis. If zero, DefaultDims is used.
	Dims [3]int

	// Number of goroutines used by the parallel build phases. If zero,
	// runtime.NumCPU() is used.
	Workers int
}

// A (triangle, cell) pair.
type ref struct {
	tri  int32
	cell int32
}

type builder struct {
	logger log.Logger

	tris    []types.Triangle
	dims    [3]int
	workers int

	bboxes   []types.BBox
	gridBBox types.BBox
	cellSize types.Vec3
	invSize  types.Vec3
}

// Build a uniform grid over a set of triangles.
func Build(tris []types.Triangle, opts Options) (*scene.Grid, error) {
	dims := opts.Dims
	if dims == [3]int{} {
		dims = DefaultDims
	}
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		return nil, ErrInvalidDims
	}
	if cells := int64(dims[0]) * int64(dims[1]) * int64(dims[2]); cells > 1<<31-1 {
		return nil, fmt.Errorf("grid: %dx%dx%d cells do not fit in a 32-bit cell index", dims[0], dims[1], dims[2])
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	b := &builder{
		logger:  log.New("grid builder"),
		tris:    tris,
		dims:    dims,
		workers: workers,
	}
	return b.build()
}

func (b *builder) build() (*scene.Grid, error) {
	cellCount := b.dims[0] * b.dims[1] * b.dims[2]
	out := &scene.Grid{
		Dims:  [3]int32{int32(b.dims[0]), int32(b.dims[1]), int32(b.dims[2])},
		Cells: make([]scene.Cell, cellCount),
	}

	if len(b.tris) == 0 {
		out.Triangles = make([]types.Triangle, 0)
		return out, nil
	}

	start := time.Now()
	b.computeBounds()
	tick := time.Now()
	b.logger.Debugf("computed bounds of %d triangles in %d ms", len(b.tris), tick.Sub(start).Nanoseconds()/1e6)

	refs := b.collectRefs()
	if len(refs) > maxReferences {
		return nil, fmt.Errorf("%w: %d references; limit is %d", ErrTooManyReferences, len(refs), maxReferences)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].cell < refs[j].cell
	})
	b.logger.Debugf("collected and sorted %d references in %d ms", len(refs), time.Since(tick).Nanoseconds()/1e6)
	tick = time.Now()

	// Count references per cell; the counts are accumulated into the
	// End field and turned into ranges by the prefix sum.
	counts := make([]int32, cellCount)
	parallelFor(len(refs), b.workers, func(from, to int) {
		for i := from; i < to; i++ {
			atomic.AddInt32(&counts[refs[i].cell], 1)
		}
	})

	var offset int32
	for i, count := range counts {
		out.Cells[i] = scene.Cell{Begin: offset, End: offset + count}
		offset += count
	}

	out.Triangles = make([]types.Triangle, len(refs))
	parallelFor(len(refs), b.workers, func(from, to int) {
		for i := from; i < to; i++ {
			out.Triangles[i] = b.tris[refs[i].tri]
		}
	})
	b.logger.Debugf("emitted cells and packed triangles in %d ms", time.Since(tick).Nanoseconds()/1e6)

	out.Bounds = b.gridBBox
	b.logger.Infof("built %dx%dx%d grid with %d references for %d triangles in %d ms", b.dims[0], b.dims[1], b.dims[2], len(refs), len(b.tris), time.Since(start).Nanoseconds()/1e6)
	return out, nil
}

// Calculate the bbox of each triangle and their union. Each worker keeps a
// partial union that is merged once all workers are done.
func (b *builder) computeBounds() {
	b.bboxes = make([]types.BBox, len(b.tris))
	partial := make([]types.BBox, b.workers)
	for i := range partial {
		partial[i] = types.EmptyBBox()
	}

	parallelForWorker(len(b.tris), b.workers, func(worker, from, to int) {
		union := partial[worker]
		for i := from; i < to; i++ {
			b.bboxes[i] = b.tris[i].BBox()
			union = union.Union(b.bboxes[i])
		}
		partial[worker] = union
	})

	b.gridBBox = types.EmptyBBox()
	for _, bbox := range partial {
		b.gridBBox = b.gridBBox.Union(bbox)
	}

	ext := b.gridBBox.Extents()
	for axis := 0; axis < 3; axis++ {
		b.cellSize[axis] = ext[axis] / float32(b.dims[axis])
		if ext[axis] > 0 {
			b.invSize[axis] = float32(b.dims[axis]) / ext[axis]
		}
	}
}

// Find the cells each triangle overlaps. Every worker processes a contiguous
// range of triangles so concatenating the per-worker lists in worker order
// yields references sorted by triangle index.
func (b *builder) collectRefs() []ref {
	perWorker := make([][]ref, b.workers)
	parallelForWorker(len(b.tris), b.workers, func(worker, from, to int) {
		var refs []ref
		for i := from; i < to; i++ {
			cover := types.Coverage(b.bboxes[i], b.gridBBox, b.invSize, b.dims)
			verts := b.tris[i].Vertices()
			for z := cover.Lz; z <= cover.Hz; z++ {
				for y := cover.Ly; y <= cover.Hy; y++ {
					for x := cover.Lx; x <= cover.Hx; x++ {
						cellBBox := b.cellBBox(x, y, z)
						if TriBoxOverlap(cellBBox.Center(), cellBBox.HalfSize(), verts) {
							refs = append(refs, ref{tri: int32(i), cell: int32(x + b.dims[0]*(y+b.dims[1]*z))})
						}
					}
				}
			}
		}
		perWorker[worker] = refs
	})

	total := 0
	for _, refs := range perWorker {
		total += len(refs)
	}
	out := make([]ref, 0, total)
	for _, refs := range perWorker {
		out = append(out, refs...)
	}
	return out
}

// Get the bounds of a cell. The far side of the last cell along each axis
// is the grid bound itself so that rounding never leaves a gap.
func (b *builder) cellBBox(x, y, z int) types.BBox {
	var bbox types.BBox
	for axis, idx := range [3]int{x, y, z} {
		bbox.Min[axis] = b.gridBBox.Min[axis] + b.cellSize[axis]*float32(idx)
		if idx+1 == b.dims[axis] {
			bbox.Max[axis] = b.gridBBox.Max[axis]
		} else {
			bbox.Max[axis] = b.gridBBox.Min[axis] + b.cellSize[axis]*float32(idx+1)
		}
	}
	return bbox
}

// Split [0, count) into at most workers contiguous ranges and process them
// in parallel. Returns once all ranges are processed.
func parallelFor(count, workers int, fn func(from, to int)) {
	parallelForWorker(count, workers, func(_, from, to int) {
		fn(from, to)
	})
}

func parallelForWorker(count, workers int, fn func(worker, from, to int)) {
	if count == 0 {
		return
	}
	if workers > count {
		workers = count
	}
	blockSize := (count + workers - 1) / workers

	var wg sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		from := worker * blockSize
		if from >= count {
			break
		}
		to := from + blockSize
		if to > count {
			to = count
		}
		wg.Add(1)
		go func(worker, from, to int) {
			defer wg.Done()
			fn(worker, from, to)
		}(worker, from, to)
	}
	wg.Wait()
}

// Summary statistics for a built grid.
type CellStats struct {
	Cells      int
	EmptyCells int
	References int
	MaxRefs    int32

	// Average number of references in non-empty cells.
	AvgRefs float32
}

// Collect cell occupancy statistics.
func Stats(g *scene.Grid) CellStats {
	stats := CellStats{Cells: len(g.Cells), References: len(g.Triangles)}
	for _, cell := range g.Cells {
		count := cell.Count()
		if count == 0 {
			stats.EmptyCells++
			continue
		}
		if count > stats.MaxRefs {
			stats.MaxRefs = count
		}
	}
	if used := stats.Cells - stats.EmptyCells; used > 0 {
		stats.AvgRefs = float32(stats.References) / float32(used)
	}
	return stats
}
