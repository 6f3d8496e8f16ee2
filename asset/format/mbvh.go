package format

import (
	"github.com/achilleasa/raybench/types"
)

// Number of child slots in an MBVH node.
const MbvhWidth = 4

// A 4-ary node as stored on disk (128 bytes). For each slot j:
//   - PrimCount[j] == 0: unused slot
//   - PrimCount[j] < 0: inner child; Children[j] is a node index
//   - PrimCount[j] > 0: leaf; Children[j] is the first vertex of
//     PrimCount[j] triangles stored as consecutive vertex triplets
type MbvhNode struct {
	BBox      [MbvhWidth]types.BBox
	Children  [MbvhWidth]int32
	PrimCount [MbvhWidth]int32
}

// The MBVH block header.
type MbvhHeader struct {
	NodeCount uint32
	VertCount uint32
	SceneBBox types.BBox
}

// The decoded contents of an MBVH block.
type MBVH struct {
	SceneBBox types.BBox
	Nodes     []MbvhNode

	// Vertices are padded to 4 components; the w component is ignored.
	Vertices []types.Vec4
}

// Locate and decode the MBVH block of a container.
func ReadMBVH(data []byte) (*MBVH, error) {
	payload, err := LocateBlock(data, MbvhBlock)
	if err != nil {
		return nil, err
	}
	return DecodeMBVH(payload)
}

// Read only the MBVH header.
func ReadMBVHHeader(data []byte) (*MbvhHeader, error) {
	payload, err := LocateBlock(data, MbvhBlock)
	if err != nil {
		return nil, err
	}
	var hdr MbvhHeader
	if err := newDecoder(payload, MbvhBlock).read("header", &hdr); err != nil {
		return nil, err
	}
	return &hdr, nil
}

// Decode an MBVH block payload.
func DecodeMBVH(payload []byte) (*MBVH, error) {
	d := newDecoder(payload, MbvhBlock)

	var hdr MbvhHeader
	if err := d.read("header", &hdr); err != nil {
		return nil, err
	}

	if err := d.expect("nodes", int(hdr.NodeCount), MbvhNode{}); err != nil {
		return nil, err
	}
	mbvh := &MBVH{
		SceneBBox: hdr.SceneBBox,
		Nodes:     make([]MbvhNode, hdr.NodeCount),
	}
	if err := d.read("nodes", mbvh.Nodes); err != nil {
		return nil, err
	}

	if err := d.expect("vertices", int(hdr.VertCount), types.Vec4{}); err != nil {
		return nil, err
	}
	mbvh.Vertices = make([]types.Vec4, hdr.VertCount)
	if err := d.read("vertices", mbvh.Vertices); err != nil {
		return nil, err
	}

	return mbvh, nil
}

// Encode the MBVH into a block payload.
func (m *MBVH) Encode() []byte {
	hdr := MbvhHeader{
		NodeCount: uint32(len(m.Nodes)),
		VertCount: uint32(len(m.Vertices)),
		SceneBBox: m.SceneBBox,
	}
	return encode(hdr, m.Nodes, m.Vertices)
}

// Check child indices and leaf vertex ranges against the declared counts.
func (m *MBVH) Validate() error {
	nodeCount := int64(len(m.Nodes))
	vertCount := int64(len(m.Vertices))

	if nodeCount == 0 {
		return &CorruptDataError{Field: "node_count", Record: 0, Value: 0, Limit: 0}
	}

	for idx := range m.Nodes {
		node := &m.Nodes[idx]
		for slot := 0; slot < MbvhWidth; slot++ {
			switch count := node.PrimCount[slot]; {
			case count < 0:
				if err := checkRange("children", idx, int64(node.Children[slot]), 1, nodeCount); err != nil {
					return err
				}
				if node.Children[slot] == 0 {
					// Node 0 is the root and can not be a child; index 0
					// also marks disabled slots in the flattened output.
					return &CorruptDataError{Field: "children", Record: idx, Value: 0, Limit: nodeCount}
				}
			case count > 0:
				if err := checkRange("children", idx, int64(node.Children[slot]), 3*int64(count), vertCount); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Get the vertices of triangle tri of the leaf stored in a node slot.
func (m *MBVH) LeafTriangle(node *MbvhNode, slot, tri int) [3]types.Vec3 {
	base := int(node.Children[slot]) + 3*tri
	return [3]types.Vec3{
		m.Vertices[base].Vec3(),
		m.Vertices[base+1].Vec3(),
		m.Vertices[base+2].Vec3(),
	}
}
