package flatten

import (
	"math"
	"time"

	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/types"
)

// Decode the MBVH block of a container and flatten it.
func LoadMBVH(data []byte) ([]scene.MbvhNode, []scene.TriBlock, error) {
	mbvh, err := format.ReadMBVH(data)
	if err != nil {
		return nil, nil, err
	}
	return FlattenMBVH(mbvh)
}

// Decode the MBVH block of a container and wrap the flattened arrays in an Accel.
func LoadMBVHAccel(data []byte) (*scene.Accel, error) {
	mbvh, err := format.ReadMBVH(data)
	if err != nil {
		return nil, err
	}
	nodes, blocks, err := FlattenMBVH(mbvh)
	if err != nil {
		return nil, err
	}
	return &scene.Accel{
		Kind:      scene.KindMBVH,
		Bounds:    mbvh.SceneBBox,
		MbvhNodes: nodes,
		TriBlocks: blocks,
	}, nil
}

// Convert a decoded MBVH into the traversal layout. Node indices are kept as
// they are in the source so inner children are copied without remapping. The
// used slots of each node are moved to the front; the remaining slots get an
// inverted box and a zero child. Every leaf is written as a run of 4-wide
// triangle blocks followed by a sentinel block.
func FlattenMBVH(mbvh *format.MBVH) ([]scene.MbvhNode, []scene.TriBlock, error) {
	if err := mbvh.Validate(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	nodes := make([]scene.MbvhNode, len(mbvh.Nodes))
	blocks := make([]scene.TriBlock, 0, len(mbvh.Vertices)/(3*scene.TriBlockWidth)+len(mbvh.Nodes))
	referenced := make([]bool, len(mbvh.Nodes))

	for idx := range mbvh.Nodes {
		srcNode := &mbvh.Nodes[idx]
		dstNode := &nodes[idx]

		used := 0
		for slot := 0; slot < format.MbvhWidth; slot++ {
			count := srcNode.PrimCount[slot]
			if count == 0 {
				continue
			}

			var child scene.Child
			if count < 0 {
				childIndex := srcNode.Children[slot]
				if referenced[childIndex] {
					return nil, nil, &format.CorruptDataError{
						Field:  "children",
						Record: idx,
						Value:  int64(childIndex),
						Limit:  int64(len(mbvh.Nodes)),
					}
				}
				referenced[childIndex] = true
				child = scene.InnerChild(uint32(childIndex))
			} else {
				child = scene.LeafChild(uint32(len(blocks)))
				blocks = appendLeafBlocks(blocks, mbvh, srcNode, slot)
			}

			dstNode.SetBBox(used, srcNode.BBox[slot])
			dstNode.Children[used] = child.Encode()
			used++
		}

		for ; used < format.MbvhWidth; used++ {
			dstNode.SetBBox(used, types.InvertedBBox())
			dstNode.Children[used] = 0
		}
	}

	logger.Debugf("flattened MBVH in %d ms; nodes: %d, triangle blocks: %d", time.Since(start).Nanoseconds()/1e6, len(nodes), len(blocks))
	return nodes, blocks, nil
}

func appendLeafBlocks(blocks []scene.TriBlock, mbvh *format.MBVH, node *format.MbvhNode, slot int) []scene.TriBlock {
	count := int(node.PrimCount[slot])
	for first := 0; first < count; first += scene.TriBlockWidth {
		var block scene.TriBlock
		for lane := 0; lane < scene.TriBlockWidth; lane++ {
			if first+lane >= count {
				block.SetLane(lane, paddingTriangle())
				continue
			}
			v := mbvh.LeafTriangle(node, slot, first+lane)
			block.SetLane(lane, types.NewTriangle(v[0], v[1], v[2]))
		}
		blocks = append(blocks, block)
	}
	return append(blocks, scene.SentinelTriBlock())
}

// Unused lanes sit at the far end of the float range with zero edges so that
// no ray can hit them.
func paddingTriangle() types.Triangle {
	return types.Triangle{V0: types.Splat3(math.MaxFloat32)}
}
