package format

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/achilleasa/raybench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLeafBVH() *BVH {
	return &BVH{
		Nodes: []BvhNode{
			{Min: types.XYZ(0, 0, 0), Max: types.XYZ(2, 1, 0), ChildFirst: 1},
			{Min: types.XYZ(0, 0, 0), Max: types.XYZ(1, 1, 0), ChildFirst: 0, PrimCount: 1},
			{Min: types.XYZ(1, 0, 0), Max: types.XYZ(2, 1, 0), ChildFirst: 1, PrimCount: 1},
		},
		PrimIDs: []uint32{0, 1},
		Vertices: []types.Vec3{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{1, 0, 0}, {2, 0, 0}, {1, 1, 0},
		},
		TriIndices: []uint32{0, 1, 2, 3, 4, 5},
	}
}

func TestNodeSizes(t *testing.T) {
	assert.Equal(t, 32, binary.Size(BvhNode{}))
	assert.Equal(t, 128, binary.Size(MbvhNode{}))
	assert.Equal(t, 32, binary.Size(MbvhHeader{}))
}

func TestLocateBlockSkipsOtherTypes(t *testing.T) {
	mesh := MeshFromTriangles([]types.Triangle{types.NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0))})
	bvh := twoLeafBVH()
	data := Assemble(
		Block{Type: MeshBlock, Payload: mesh.Encode()},
		Block{Type: BlockType(42), Payload: []byte{1, 2, 3}},
		Block{Type: BvhBlock, Payload: bvh.Encode()},
	)

	blocks, err := ListBlocks(data)
	require.NoError(t, err)
	assert.Equal(t, []BlockType{MeshBlock, BlockType(42), BvhBlock}, blocks)

	decoded, err := ReadBVH(data)
	require.NoError(t, err)
	assert.Equal(t, bvh, decoded)

	decodedMesh, err := ReadMesh(data)
	require.NoError(t, err)
	assert.Equal(t, mesh, decodedMesh)

	_, err = ReadMBVH(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlockNotFound))
}

func TestFormatErrors(t *testing.T) {
	valid := Assemble(Block{Type: BvhBlock, Payload: twoLeafBVH().Encode()})

	badMagic := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badMagic, 0xdeadbeef)

	// Declare more nodes than the payload holds while keeping the block
	// header consistent with the payload length.
	payload := twoLeafBVH().Encode()
	binary.LittleEndian.PutUint32(payload, 1000)
	tooManyNodes := Assemble(Block{Type: BvhBlock, Payload: payload})

	type spec struct {
		data   []byte
		expErr error
	}
	specs := []spec{
		{nil, ErrTruncated},
		{badMagic, ErrBadMagic},
		{valid[:4], ErrBlockNotFound},
		{valid[:10], ErrTruncated},
		{valid[:40], ErrTruncated},
		{tooManyNodes, ErrTruncated},
	}

	for index, s := range specs {
		_, err := ReadBVH(s.data)
		if err == nil {
			t.Fatalf("[spec %d] expected an error", index)
		}
		var fmtErr *FormatError
		if !errors.As(err, &fmtErr) {
			t.Fatalf("[spec %d] expected a *FormatError; got %T (%v)", index, err, err)
		}
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestTruncatedSectionReportsUnexpectedEOF(t *testing.T) {
	payload := twoLeafBVH().Encode()
	// Chop the last triangle index.
	data := Assemble(Block{Type: BvhBlock, Payload: payload[:len(payload)-4]})
	_, err := ReadBVH(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated) || errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestBVHValidate(t *testing.T) {
	type spec struct {
		mutate   func(b *BVH)
		expField string
	}
	specs := []spec{
		{func(b *BVH) {}, ""},
		{func(b *BVH) { b.Nodes[0].ChildFirst = 2 }, "child_first"},
		{func(b *BVH) { b.Nodes[0].ChildFirst = -1 }, "child_first"},
		{func(b *BVH) { b.Nodes[2].PrimCount = 2 }, "child_first"},
		{func(b *BVH) { b.PrimIDs[1] = 7 }, "prim_id"},
		{func(b *BVH) { b.TriIndices[4] = 6 }, "vertex_index"},
		{func(b *BVH) { b.Nodes = nil }, "node_count"},
	}

	for index, s := range specs {
		b := twoLeafBVH()
		s.mutate(b)
		err := b.Validate()
		if s.expField == "" {
			if err != nil {
				t.Fatalf("[spec %d] unexpected error: %v", index, err)
			}
			continue
		}
		var corrupt *CorruptDataError
		if !errors.As(err, &corrupt) {
			t.Fatalf("[spec %d] expected a *CorruptDataError; got %v", index, err)
		}
		if corrupt.Field != s.expField {
			t.Fatalf("[spec %d] expected field %q; got %q", index, s.expField, corrupt.Field)
		}
	}
}

func TestMBVHRoundTripAndValidate(t *testing.T) {
	m := &MBVH{
		SceneBBox: types.BBox{Min: types.XYZ(0, 0, 0), Max: types.XYZ(1, 1, 1)},
		Nodes: []MbvhNode{
			{Children: [4]int32{0, 1}, PrimCount: [4]int32{1, -1}},
			{Children: [4]int32{3}, PrimCount: [4]int32{1}},
		},
		Vertices: make([]types.Vec4, 6),
	}

	data := Assemble(Block{Type: MbvhBlock, Payload: m.Encode()})
	decoded, err := ReadMBVH(data)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
	require.NoError(t, decoded.Validate())

	hdr, err := ReadMBVHHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), hdr.NodeCount)
	assert.Equal(t, m.SceneBBox, hdr.SceneBBox)

	m.Nodes[1].PrimCount[0] = 2
	var corrupt *CorruptDataError
	require.True(t, errors.As(m.Validate(), &corrupt))
	assert.Equal(t, "children", corrupt.Field)

	m.Nodes[1].PrimCount[0] = 1
	m.Nodes[0].Children[1] = 5
	require.True(t, errors.As(m.Validate(), &corrupt))
}

func TestMeshTriangles(t *testing.T) {
	mesh := &Mesh{
		Vertices: []types.Vec4{{0, 0, 0, 1}, {1, 0, 0, 1}, {0, 1, 0, 1}},
		Indices:  []uint32{0, 1, 2},
	}
	tris, err := mesh.Triangles()
	require.NoError(t, err)
	require.Len(t, tris, 1)
	assert.Equal(t, types.XYZ(-1, 0, 0), tris[0].E1)
	assert.Equal(t, types.XYZ(0, 1, 0), tris[0].E2)

	mesh.Indices[2] = 3
	_, err = mesh.Triangles()
	var corrupt *CorruptDataError
	assert.True(t, errors.As(err, &corrupt))
}
