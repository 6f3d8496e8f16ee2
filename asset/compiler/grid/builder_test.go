package grid

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomTriangles(count int, seed int64) []types.Triangle {
	rng := rand.New(rand.NewSource(seed))
	rnd := func() float32 { return rng.Float32() * 10 }
	tris := make([]types.Triangle, count)
	for i := range tris {
		v0 := types.XYZ(rnd(), rnd(), rnd())
		v1 := v0.Add(types.XYZ(rng.Float32()*2, rng.Float32()*2, rng.Float32()*2))
		v2 := v0.Add(types.XYZ(rng.Float32()*2, rng.Float32()*2, rng.Float32()*2))
		tris[i] = types.NewTriangle(v0, v1, v2)
	}
	return tris
}

func checkPrefixSum(t *testing.T, g *scene.Grid) {
	require.NotEmpty(t, g.Cells)
	if g.Cells[0].Begin != 0 {
		t.Fatalf("expected cell 0 to begin at 0; got %d", g.Cells[0].Begin)
	}
	for i := 1; i < len(g.Cells); i++ {
		if g.Cells[i].Begin != g.Cells[i-1].End {
			t.Fatalf("expected cell %d to begin at %d; got %d", i, g.Cells[i-1].End, g.Cells[i].Begin)
		}
		if g.Cells[i].End < g.Cells[i].Begin {
			t.Fatalf("cell %d has a negative range %v", i, g.Cells[i])
		}
	}
	if last := g.Cells[len(g.Cells)-1].End; int(last) != len(g.Triangles) {
		t.Fatalf("expected last cell to end at %d; got %d", len(g.Triangles), last)
	}
}

func TestBuildMatchesOverlapPairs(t *testing.T) {
	tris := randomTriangles(300, 1)
	opts := Options{Dims: [3]int{8, 6, 5}, Workers: 3}

	g, err := Build(tris, opts)
	require.NoError(t, err)
	checkPrefixSum(t, g)

	// Recompute the expected (triangle, cell) pairs sequentially.
	b := &builder{logger: log.New("test"), tris: tris, dims: opts.Dims, workers: 1}
	b.computeBounds()
	expected := make(map[int]map[types.Triangle]bool)
	pairCount := 0
	for i, tri := range tris {
		cover := types.Coverage(tri.BBox(), b.gridBBox, b.invSize, b.dims)
		for z := cover.Lz; z <= cover.Hz; z++ {
			for y := cover.Ly; y <= cover.Hy; y++ {
				for x := cover.Lx; x <= cover.Hx; x++ {
					bbox := b.cellBBox(x, y, z)
					if !TriBoxOverlap(bbox.Center(), bbox.HalfSize(), tris[i].Vertices()) {
						continue
					}
					cell := g.CellIndex(x, y, z)
					if expected[cell] == nil {
						expected[cell] = make(map[types.Triangle]bool)
					}
					expected[cell][tri] = true
					pairCount++
				}
			}
		}
	}

	if len(g.Triangles) != pairCount {
		t.Fatalf("expected %d references; got %d", pairCount, len(g.Triangles))
	}
	for cellIndex, cell := range g.Cells {
		seen := make(map[types.Triangle]bool)
		for _, tri := range g.Triangles[cell.Begin:cell.End] {
			if seen[tri] {
				t.Fatalf("triangle %v referenced twice by cell %d", tri, cellIndex)
			}
			seen[tri] = true
			if !expected[cellIndex][tri] {
				t.Fatalf("unexpected triangle %v in cell %d", tri, cellIndex)
			}
		}
		if len(seen) != len(expected[cellIndex]) {
			t.Fatalf("expected %d triangles in cell %d; got %d", len(expected[cellIndex]), cellIndex, len(seen))
		}
	}

	// The global bounds enclose every triangle exactly.
	bounds := types.EmptyBBox()
	for _, tri := range tris {
		bounds = bounds.Union(tri.BBox())
	}
	assert.Equal(t, bounds, g.Bounds)
}

func TestBuildIsDeterministic(t *testing.T) {
	tris := randomTriangles(200, 3)
	g1, err := Build(tris, Options{Dims: [3]int{7, 7, 7}, Workers: 1})
	require.NoError(t, err)
	g2, err := Build(tris, Options{Dims: [3]int{7, 7, 7}, Workers: 5})
	require.NoError(t, err)
	assert.Equal(t, g1, g2)
}

func TestBuildSingleTrianglePerCell(t *testing.T) {
	// Two small triangles at opposite corners stretch the grid bounds to
	// [0, 4]^3 so each one sits inside a single unit cell.
	tris := []types.Triangle{
		types.NewTriangle(types.XYZ(0, 0, 0), types.XYZ(0.5, 0, 0), types.XYZ(0, 0.5, 0.5)),
		types.NewTriangle(types.XYZ(3.5, 3.5, 3.5), types.XYZ(4, 3.5, 3.5), types.XYZ(3.5, 4, 4)),
	}

	g, err := Build(tris, Options{Dims: [3]int{4, 4, 4}})
	require.NoError(t, err)
	checkPrefixSum(t, g)

	require.Len(t, g.Triangles, 2)
	first, last := g.CellIndex(0, 0, 0), g.CellIndex(3, 3, 3)
	for cellIndex, cell := range g.Cells {
		switch cellIndex {
		case first:
			assert.Equal(t, scene.Cell{Begin: 0, End: 1}, cell)
		case last:
			assert.Equal(t, scene.Cell{Begin: 1, End: 2}, cell)
		default:
			assert.Equal(t, int32(0), cell.Count(), "cell %d", cellIndex)
		}
	}
	assert.Equal(t, tris, g.Triangles)
	assert.Equal(t, types.BBox{Min: types.XYZ(0, 0, 0), Max: types.XYZ(4, 4, 4)}, g.Bounds)
}

func TestBuildWithoutTriangles(t *testing.T) {
	g, err := Build(nil, Options{Dims: [3]int{3, 2, 2}})
	require.NoError(t, err)

	require.Len(t, g.Cells, 12)
	for _, cell := range g.Cells {
		assert.Equal(t, scene.Cell{}, cell)
	}
	assert.NotNil(t, g.Triangles)
	assert.Empty(t, g.Triangles)
	assert.Equal(t, types.BBox{}, g.Bounds)
}

func TestBuildFlatScene(t *testing.T) {
	// Every triangle lies on the z = 1 plane.
	tris := []types.Triangle{
		types.NewTriangle(types.XYZ(0, 0, 1), types.XYZ(1, 0, 1), types.XYZ(0, 1, 1)),
		types.NewTriangle(types.XYZ(3, 3, 1), types.XYZ(4, 3, 1), types.XYZ(4, 4, 1)),
	}

	g, err := Build(tris, Options{Dims: [3]int{4, 4, 4}, Workers: 2})
	require.NoError(t, err)
	checkPrefixSum(t, g)
	require.NotEmpty(t, g.Triangles)

	for z := 1; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				assert.Equal(t, int32(0), g.Cells[g.CellIndex(x, y, z)].Count())
			}
		}
	}
	assert.Equal(t, int32(1), g.Cells[g.CellIndex(0, 0, 0)].Count())
	assert.Equal(t, int32(1), g.Cells[g.CellIndex(3, 3, 0)].Count())
}

func TestBuildDefaultsAndErrors(t *testing.T) {
	g, err := Build(randomTriangles(5, 9), Options{})
	require.NoError(t, err)
	assert.Equal(t, [3]int32{100, 70, 70}, g.Dims)
	assert.Len(t, g.Cells, 100*70*70)

	_, err = Build(nil, Options{Dims: [3]int{4, 0, 4}})
	assert.True(t, errors.Is(err, ErrInvalidDims))

	_, err = Build(nil, Options{Dims: [3]int{1 << 11, 1 << 11, 1 << 11}})
	assert.Error(t, err)
}

func TestBuildRejectsReferenceOverflow(t *testing.T) {
	defer func(limit int) { maxReferences = limit }(maxReferences)

	tris := randomTriangles(50, 11)
	g, err := Build(tris, Options{Dims: [3]int{4, 4, 4}})
	require.NoError(t, err)
	refCount := len(g.Triangles)
	if refCount == 0 {
		t.Fatal("expected the grid to hold some references")
	}

	type spec struct {
		limit  int
		expErr bool
	}
	specs := []spec{
		{refCount, false},
		{refCount - 1, true},
		{0, true},
	}
	for specIndex, s := range specs {
		maxReferences = s.limit
		_, err := Build(tris, Options{Dims: [3]int{4, 4, 4}})
		if s.expErr {
			if !errors.Is(err, ErrTooManyReferences) {
				t.Fatalf("[spec %d] expected ErrTooManyReferences; got %v", specIndex, err)
			}
		} else if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
		}
	}
}

func TestStats(t *testing.T) {
	g := &scene.Grid{
		Cells:     []scene.Cell{{Begin: 0, End: 0}, {Begin: 0, End: 3}, {Begin: 3, End: 3}, {Begin: 3, End: 4}},
		Triangles: make([]types.Triangle, 4),
	}
	stats := Stats(g)
	assert.Equal(t, CellStats{Cells: 4, EmptyCells: 2, References: 4, MaxRefs: 3, AvgRefs: 2}, stats)
}
