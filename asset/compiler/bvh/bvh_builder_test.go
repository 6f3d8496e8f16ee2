package bvh

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeafCallback(t *testing.T) {
	type primSpec struct {
		min types.Vec3
		max types.Vec3
	}

	primSpecs := []primSpec{
		{types.Vec3{-2, 0, -2}, types.Vec3{-1, 1, -1}},
		{types.Vec3{1, 0, -2}, types.Vec3{2, 1, -1}},
		{types.Vec3{-2, 0, 1}, types.Vec3{-1, 1, 2}},
		{types.Vec3{1, 0, 1}, types.Vec3{2, 1, 2}},
	}

	itemList := make([]BoundedVolume, len(primSpecs))
	for idx, ps := range primSpecs {
		itemList[idx] = &primitive{
			index:  uint32(idx),
			bbox:   types.BBox{Min: ps.min, Max: ps.max},
			center: ps.min.Add(ps.max).Mul(0.5),
		}
	}

	var cbCount = 0
	var expItemListCount = 0
	cb := func(leaf *format.BvhNode, itemList []BoundedVolume) {
		cbCount++
		if len(itemList) != expItemListCount {
			t.Fatalf("expected leaf callback to be called with %d items; got %d", expItemListCount, len(itemList))
		}
		leaf.PrimCount = uint16(len(itemList))
	}

	var expCount = 0

	// Partition each item in a single leaf
	cbCount = 0
	expItemListCount = 1
	treeNodes := Build(itemList, 1, cb, SurfaceAreaHeuristic)

	expCount = 4
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 7
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}

	// Partition two items in a single leaf
	cbCount = 0
	expItemListCount = 2
	treeNodes = Build(itemList, 2, cb, SurfaceAreaHeuristic)

	expCount = 2
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 3
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}

	// Inner node children are adjacent and enclosed by the parent bbox.
	root := treeNodes[0]
	if root.IsLeaf() || root.ChildFirst != 1 {
		t.Fatalf("expected root to be an inner node with children at 1, 2; got %+v", root)
	}
	for _, child := range treeNodes[1:] {
		union := root.BBox().Union(child.BBox())
		if union != root.BBox() {
			t.Fatalf("child bbox %v is not enclosed by root bbox %v", child.BBox(), root.BBox())
		}
	}
}

func randomTriangles(count int, seed int64) []types.Triangle {
	rng := rand.New(rand.NewSource(seed))
	tris := make([]types.Triangle, count)
	for i := range tris {
		v0 := types.XYZ(rng.Float32()*50, rng.Float32()*50, rng.Float32()*50)
		tris[i] = types.NewTriangle(
			v0,
			v0.Add(types.XYZ(rng.Float32(), rng.Float32(), 0)),
			v0.Add(types.XYZ(0, rng.Float32(), rng.Float32())),
		)
	}
	return tris
}

func TestCompile(t *testing.T) {
	tris := randomTriangles(500, 11)
	bvh, err := Compile(tris, 4)
	require.NoError(t, err)
	require.NoError(t, bvh.Validate())

	require.Len(t, bvh.PrimIDs, len(tris))
	seen := make(map[uint32]bool)
	for _, id := range bvh.PrimIDs {
		assert.False(t, seen[id], "primitive %d referenced twice", id)
		seen[id] = true
	}

	// Every leaf bbox encloses its triangles.
	for nodeIndex, node := range bvh.Nodes {
		if !node.IsLeaf() {
			continue
		}
		for i := 0; i < int(node.PrimCount); i++ {
			primID := bvh.PrimIDs[int(node.ChildFirst)+i]
			triBBox := tris[primID].BBox()
			require.Equal(t, node.BBox(), node.BBox().Union(triBBox), "leaf %d does not enclose triangle %d", nodeIndex, primID)
		}
	}

	// Vertex order is preserved.
	got := bvh.Triangle(7)
	assert.Equal(t, tris[7].Vertices(), got)

	_, err = Compile(nil, 4)
	assert.True(t, errors.Is(err, ErrNoTriangles))
}

func TestCollapse(t *testing.T) {
	tris := randomTriangles(300, 5)
	bvh, err := Compile(tris, 2)
	require.NoError(t, err)

	mbvh, err := Collapse(bvh)
	require.NoError(t, err)
	require.NoError(t, mbvh.Validate())
	assert.Equal(t, bvh.Nodes[0].BBox(), mbvh.SceneBBox)
	assert.Len(t, mbvh.Vertices, 3*len(tris))

	triCount := 0
	inner := 0
	for _, node := range mbvh.Nodes {
		for slot := 0; slot < format.MbvhWidth; slot++ {
			switch count := node.PrimCount[slot]; {
			case count > 0:
				triCount += int(count)
			case count < 0:
				inner++
			}
		}
	}
	assert.Equal(t, len(tris), triCount)
	assert.Equal(t, len(mbvh.Nodes)-1, inner)
	assert.Less(t, len(mbvh.Nodes), len(bvh.Nodes))
}

func TestCollapseSingleLeaf(t *testing.T) {
	tris := randomTriangles(3, 2)
	bvh, err := Compile(tris, 8)
	require.NoError(t, err)
	require.Len(t, bvh.Nodes, 1)

	mbvh, err := Collapse(bvh)
	require.NoError(t, err)
	require.Len(t, mbvh.Nodes, 1)
	assert.Equal(t, int32(3), mbvh.Nodes[0].PrimCount[0])
	assert.Equal(t, int32(0), mbvh.Nodes[0].PrimCount[1])
	require.NoError(t, mbvh.Validate())
}

func TestCollapseRejectsCycles(t *testing.T) {
	bvh, err := Compile(randomTriangles(20, 3), 1)
	require.NoError(t, err)
	bvh.Nodes[1] = bvh.Nodes[0]

	_, err = Collapse(bvh)
	var corrupt *format.CorruptDataError
	assert.True(t, errors.As(err, &corrupt))
}
