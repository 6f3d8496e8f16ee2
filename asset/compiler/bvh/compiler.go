package bvh

import (
	"errors"
	"time"

	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

var (
	ErrNoTriangles = errors.New("bvh compiler: no triangles to compile")
)

var logger = log.New("bvh compiler")

// The minimum number of triangles in a leaf when none is specified.
const DefaultMinLeafItems = 4

// A triangle wrapped so it can be partitioned by the BVH builder.
type primitive struct {
	index  uint32
	bbox   types.BBox
	center types.Vec3
}

func (p *primitive) BBox() types.BBox {
	return p.bbox
}

func (p *primitive) Center() types.Vec3 {
	return p.center
}

// Compile a set of triangles into an on-disk BVH using the surface area
// heuristic. Each leaf will hold at most minLeafItems triangles unless no
// split can improve its score.
func Compile(tris []types.Triangle, minLeafItems int) (*format.BVH, error) {
	if len(tris) == 0 {
		return nil, ErrNoTriangles
	}
	if minLeafItems <= 0 {
		minLeafItems = DefaultMinLeafItems
	}

	out := &format.BVH{
		PrimIDs:    make([]uint32, 0, len(tris)),
		Vertices:   make([]types.Vec3, 0, 3*len(tris)),
		TriIndices: make([]uint32, 0, 3*len(tris)),
	}

	workList := make([]BoundedVolume, len(tris))
	for idx, tri := range tris {
		for _, v := range tri.Vertices() {
			out.TriIndices = append(out.TriIndices, uint32(len(out.Vertices)))
			out.Vertices = append(out.Vertices, v)
		}
		workList[idx] = &primitive{
			index:  uint32(idx),
			bbox:   tri.BBox(),
			center: tri.Center(),
		}
	}

	out.Nodes = Build(workList, minLeafItems, func(leaf *format.BvhNode, itemList []BoundedVolume) {
		leaf.ChildFirst = int32(len(out.PrimIDs))
		leaf.PrimCount = uint16(len(itemList))
		for _, item := range itemList {
			out.PrimIDs = append(out.PrimIDs, item.(*primitive).index)
		}
	}, SurfaceAreaHeuristic)

	return out, nil
}

// Collapse a binary BVH into a 4-ary MBVH. Each inner node adopts the
// children of its largest inner children until it has 4 slots filled. Leaf
// triangles are copied into consecutive vertex triplets.
func Collapse(bvh *format.BVH) (*format.MBVH, error) {
	if err := bvh.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	c := &collapser{src: bvh}
	out := &format.MBVH{SceneBBox: bvh.Nodes[0].BBox()}

	type workItem struct {
		src uint32
		dst uint32
	}

	out.Nodes = append(out.Nodes, format.MbvhNode{})
	if bvh.Nodes[0].IsLeaf() {
		c.setSlot(out, &out.Nodes[0], 0, 0, nil)
		logger.Debugf("collapsed single leaf BVH")
		return out, nil
	}

	visited := make([]bool, len(bvh.Nodes))
	stack := []workItem{{src: 0, dst: 0}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for slot, srcIndex := range c.gatherChildren(item.src) {
			if srcIndex == 0 || visited[srcIndex] {
				return nil, &format.CorruptDataError{Field: "child_first", Record: int(item.src), Value: int64(srcIndex), Limit: int64(len(bvh.Nodes))}
			}
			visited[srcIndex] = true

			var pending *uint32
			if !bvh.Nodes[srcIndex].IsLeaf() {
				dst := uint32(len(out.Nodes))
				out.Nodes = append(out.Nodes, format.MbvhNode{})
				stack = append(stack, workItem{src: srcIndex, dst: dst})
				pending = &dst
			}
			c.setSlot(out, &out.Nodes[item.dst], slot, srcIndex, pending)
		}
	}

	logger.Debugf("collapsed %d BVH nodes into %d MBVH nodes in %d ms", len(bvh.Nodes), len(out.Nodes), time.Since(start).Nanoseconds()/1e6)
	return out, nil
}

type collapser struct {
	src *format.BVH
}

// Collect up to 4 descendants of an inner node by repeatedly replacing the
// inner child with the largest surface area by its two children.
func (c *collapser) gatherChildren(nodeIndex uint32) []uint32 {
	first := uint32(c.src.Nodes[nodeIndex].ChildFirst)
	children := []uint32{first, first + 1}

	for len(children) < format.MbvhWidth {
		best := -1
		var bestArea float32 = -1
		for i, child := range children {
			node := &c.src.Nodes[child]
			if node.IsLeaf() {
				continue
			}
			if area := node.BBox().SurfaceArea(); area > bestArea {
				best, bestArea = i, area
			}
		}
		if best < 0 {
			break
		}

		grandChild := uint32(c.src.Nodes[children[best]].ChildFirst)
		children[best] = grandChild
		children = append(children, grandChild+1)
	}
	return children
}

// Fill a node slot. Inner children reference the output node at innerIndex;
// leaves have their triangles appended to the vertex list.
func (c *collapser) setSlot(out *format.MBVH, node *format.MbvhNode, slot int, srcIndex uint32, innerIndex *uint32) {
	srcNode := &c.src.Nodes[srcIndex]
	node.BBox[slot] = srcNode.BBox()

	if innerIndex != nil {
		node.Children[slot] = int32(*innerIndex)
		node.PrimCount[slot] = -1
		return
	}

	node.Children[slot] = int32(len(out.Vertices))
	node.PrimCount[slot] = int32(srcNode.PrimCount)
	for i := 0; i < int(srcNode.PrimCount); i++ {
		for _, v := range c.src.Triangle(c.src.PrimIDs[int(srcNode.ChildFirst)+i]) {
			out.Vertices = append(out.Vertices, v.Vec4(1))
		}
	}
}
