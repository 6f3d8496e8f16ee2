package format

import (
	"github.com/achilleasa/raybench/types"
)

// A binary BVH node as stored on disk (32 bytes). For inner nodes ChildFirst
// is the index of the left child; the right child follows it. For leaves
// ChildFirst indexes the primitive id array.
type BvhNode struct {
	Min        types.Vec3
	Max        types.Vec3
	ChildFirst int32
	PrimCount  uint16
	Axis       uint16
}

// Returns true if this node stores primitives.
func (n *BvhNode) IsLeaf() bool {
	return n.PrimCount > 0
}

// Get node bounds.
func (n *BvhNode) BBox() types.BBox {
	return types.BBox{Min: n.Min, Max: n.Max}
}

// The BVH block header.
type BvhHeader struct {
	NodeCount uint32
	PrimCount uint32
	VertCount uint32
}

// The decoded contents of a BVH block.
type BVH struct {
	Nodes []BvhNode

	// Maps leaf primitive slots to triangle indices.
	PrimIDs []uint32

	Vertices []types.Vec3

	// Three vertex indices per triangle.
	TriIndices []uint32
}

// Locate and decode the BVH block of a container.
func ReadBVH(data []byte) (*BVH, error) {
	payload, err := LocateBlock(data, BvhBlock)
	if err != nil {
		return nil, err
	}
	return DecodeBVH(payload)
}

// Decode a BVH block payload.
func DecodeBVH(payload []byte) (*BVH, error) {
	d := newDecoder(payload, BvhBlock)

	var hdr BvhHeader
	if err := d.read("header", &hdr); err != nil {
		return nil, err
	}

	if err := d.expect("nodes", int(hdr.NodeCount), BvhNode{}); err != nil {
		return nil, err
	}
	bvh := &BVH{Nodes: make([]BvhNode, hdr.NodeCount)}
	if err := d.read("nodes", bvh.Nodes); err != nil {
		return nil, err
	}

	if err := d.expect("primitive ids", int(hdr.PrimCount), uint32(0)); err != nil {
		return nil, err
	}
	bvh.PrimIDs = make([]uint32, hdr.PrimCount)
	if err := d.read("primitive ids", bvh.PrimIDs); err != nil {
		return nil, err
	}

	if err := d.expect("vertices", int(hdr.VertCount), types.Vec3{}); err != nil {
		return nil, err
	}
	bvh.Vertices = make([]types.Vec3, hdr.VertCount)
	if err := d.read("vertices", bvh.Vertices); err != nil {
		return nil, err
	}

	if err := d.expect("triangle indices", 3*int(hdr.PrimCount), uint32(0)); err != nil {
		return nil, err
	}
	bvh.TriIndices = make([]uint32, 3*hdr.PrimCount)
	if err := d.read("triangle indices", bvh.TriIndices); err != nil {
		return nil, err
	}

	return bvh, nil
}

// Encode the BVH into a block payload.
func (b *BVH) Encode() []byte {
	hdr := BvhHeader{
		NodeCount: uint32(len(b.Nodes)),
		PrimCount: uint32(len(b.PrimIDs)),
		VertCount: uint32(len(b.Vertices)),
	}
	return encode(hdr, b.Nodes, b.PrimIDs, b.Vertices, b.TriIndices)
}

// Check every index stored in the BVH against the declared array sizes.
// Topology (cycles) is checked by the flattener which walks the tree.
func (b *BVH) Validate() error {
	nodeCount := int64(len(b.Nodes))
	primCount := int64(len(b.PrimIDs))
	vertCount := int64(len(b.Vertices))

	if nodeCount == 0 {
		return &CorruptDataError{Field: "node_count", Record: 0, Value: 0, Limit: 0}
	}
	if int64(len(b.TriIndices)) != 3*primCount {
		return &CorruptDataError{Field: "tri_index_count", Record: 0, Value: int64(len(b.TriIndices)), Limit: 3*primCount + 1}
	}

	for idx := range b.Nodes {
		node := &b.Nodes[idx]
		if node.IsLeaf() {
			if err := checkRange("child_first", idx, int64(node.ChildFirst), int64(node.PrimCount), primCount); err != nil {
				return err
			}
			continue
		}
		if err := checkRange("child_first", idx, int64(node.ChildFirst), 2, nodeCount); err != nil {
			return err
		}
	}

	for idx, primID := range b.PrimIDs {
		if err := checkRange("prim_id", idx, int64(primID), 1, primCount); err != nil {
			return err
		}
	}

	for idx, vertIndex := range b.TriIndices {
		if err := checkRange("vertex_index", idx/3, int64(vertIndex), 1, vertCount); err != nil {
			return err
		}
	}

	return nil
}

// Get the triangle referenced by a primitive id. The ids must have been
// validated.
func (b *BVH) Triangle(primID uint32) [3]types.Vec3 {
	base := 3 * int(primID)
	return [3]types.Vec3{
		b.Vertices[b.TriIndices[base]],
		b.Vertices[b.TriIndices[base+1]],
		b.Vertices[b.TriIndices[base+2]],
	}
}
