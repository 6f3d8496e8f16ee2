package flatten

import (
	"time"

	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

var logger = log.New("flatten")

// A pending node expansion: the source node whose children still need to be
// flattened and the pre-allocated output slot that receives them.
type workItem struct {
	src uint32
	dst uint32
}

// Decode the BVH block of a container and flatten it.
func LoadBVH(data []byte) ([]scene.BvhNode, []types.Vec4, error) {
	bvh, err := format.ReadBVH(data)
	if err != nil {
		return nil, nil, err
	}
	return FlattenBVH(bvh)
}

// Decode the BVH block of a container and wrap the flattened arrays in an Accel.
func LoadBVHAccel(data []byte) (*scene.Accel, error) {
	bvh, err := format.ReadBVH(data)
	if err != nil {
		return nil, err
	}
	nodes, verts, err := FlattenBVH(bvh)
	if err != nil {
		return nil, err
	}
	return &scene.Accel{
		Kind:     scene.KindBVH,
		Bounds:   bvh.Nodes[0].BBox(),
		BvhNodes: nodes,
		Vertices: verts,
	}, nil
}

// Convert a decoded BVH into the traversal layout. The source tree is walked
// depth-first using an explicit stack; output slots for inner children are
// allocated as soon as they are discovered so the parent can reference them
// before they are expanded. Leaf primitives are appended to the packed vertex
// buffer, three vertices per triangle, and the w component of the last vertex
// of each leaf is set to the sentinel value.
func FlattenBVH(bvh *format.BVH) ([]scene.BvhNode, []types.Vec4, error) {
	if err := bvh.Validate(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	f := &bvhFlattener{
		src:     bvh,
		visited: make([]bool, len(bvh.Nodes)),
		verts:   make([]types.Vec4, 0, 3*len(bvh.PrimIDs)+len(bvh.Nodes)),
	}

	var err error
	if bvh.Nodes[0].IsLeaf() {
		err = f.flattenRootLeaf()
	} else {
		err = f.flatten()
	}
	if err != nil {
		return nil, nil, err
	}

	logger.Debugf("flattened BVH in %d ms; nodes: %d, packed vertices: %d", time.Since(start).Nanoseconds()/1e6, len(f.nodes), len(f.verts))
	return f.nodes, f.verts, nil
}

type bvhFlattener struct {
	src *format.BVH

	// Each source node may be reached at most once; a second visit means
	// the input is not a tree.
	visited []bool

	nodes []scene.BvhNode
	verts []types.Vec4
}

// A tree consisting of a single leaf still needs one node so the traversal
// has something to start from. The right slot repeats the leaf behind a box
// that can never be hit.
func (f *bvhFlattener) flattenRootLeaf() error {
	leaf := f.emitLeaf(&f.src.Nodes[0])
	f.nodes = append(f.nodes, scene.BvhNode{
		LeftBBox:  f.src.Nodes[0].BBox(),
		RightBBox: types.InvertedBBox(),
	})
	f.nodes[0].SetChildren(leaf, leaf)
	return nil
}

func (f *bvhFlattener) flatten() error {
	f.visited[0] = true
	f.nodes = append(f.nodes, scene.BvhNode{})
	stack := []workItem{{src: 0, dst: 0}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		srcNode := &f.src.Nodes[item.src]
		leftIndex := uint32(srcNode.ChildFirst)

		var children [2]scene.Child
		var bboxes [2]types.BBox
		for side := 0; side < 2; side++ {
			childIndex := leftIndex + uint32(side)
			if f.visited[childIndex] {
				return &format.CorruptDataError{
					Field:  "child_first",
					Record: int(item.src),
					Value:  int64(srcNode.ChildFirst),
					Limit:  int64(len(f.src.Nodes)),
				}
			}
			f.visited[childIndex] = true

			child := &f.src.Nodes[childIndex]
			bboxes[side] = child.BBox()
			if child.IsLeaf() {
				children[side] = f.emitLeaf(child)
				continue
			}

			dst := uint32(len(f.nodes))
			f.nodes = append(f.nodes, scene.BvhNode{})
			children[side] = scene.InnerChild(dst)
			stack = append(stack, workItem{src: childIndex, dst: dst})
		}

		node := &f.nodes[item.dst]
		node.LeftBBox, node.RightBBox = bboxes[0], bboxes[1]
		node.SetChildren(children[0], children[1])
	}

	return nil
}

// Append the triangles of a leaf to the packed buffer and return a reference
// to the offset where they start.
func (f *bvhFlattener) emitLeaf(leaf *format.BvhNode) scene.Child {
	offset := uint32(len(f.verts))
	first := int(leaf.ChildFirst)
	for i := 0; i < int(leaf.PrimCount); i++ {
		tri := f.src.Triangle(f.src.PrimIDs[first+i])
		for _, v := range tri {
			f.verts = append(f.verts, v.Vec4(0))
		}
	}
	f.verts[len(f.verts)-1][3] = types.Sentinel()
	return scene.LeafChild(offset)
}
