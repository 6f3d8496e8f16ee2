package scene

import (
	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/types"
)

// Check every index stored in the traversal arrays so that an accel loaded
// from an untrusted source can be traversed without going out of bounds.
//
// Inner children must point inside the node array and each node other than
// the root may be referenced at most once; the root is never referenced.
// Leaf offsets must point inside the packed triangle buffer and each leaf
// scan must reach its sentinel. Grid cells must describe ranges inside the
// packed triangle list. Unused MBVH slots are not checked as their boxes are
// never hit.
//
// All failures are reported as a *format.CorruptDataError.
func (a *Accel) Validate() error {
	switch a.Kind {
	case KindBVH:
		return a.validateBVH()
	case KindMBVH:
		return a.validateMBVH()
	case KindGrid:
		return a.validateGrid()
	}
	return &format.CorruptDataError{Field: "kind", Record: 0, Value: int64(a.Kind), Limit: int64(KindGrid) + 1}
}

// Tracks inner node references while validating a tree.
type childChecker struct {
	nodeCount  int64
	leafLimit  int64
	referenced []bool
	scanned    map[uint32]struct{}

	// Returns true if the leaf record at offset is sentinel terminated.
	terminated func(offset uint32) bool
}

func newChildChecker(nodeCount, leafLimit int, terminated func(uint32) bool) *childChecker {
	return &childChecker{
		nodeCount:  int64(nodeCount),
		leafLimit:  int64(leafLimit),
		referenced: make([]bool, nodeCount),
		scanned:    make(map[uint32]struct{}),
		terminated: terminated,
	}
}

func (c *childChecker) check(field string, record int, encoded int32) error {
	child := DecodeChild(encoded)
	index := int64(child.Index())

	if !child.IsLeaf() {
		if index >= c.nodeCount || index == 0 || c.referenced[index] {
			return &format.CorruptDataError{Field: field, Record: record, Value: index, Limit: c.nodeCount}
		}
		c.referenced[index] = true
		return nil
	}

	if index >= c.leafLimit {
		return &format.CorruptDataError{Field: field, Record: record, Value: index, Limit: c.leafLimit}
	}
	if _, ok := c.scanned[child.Index()]; ok {
		return nil
	}
	if !c.terminated(child.Index()) {
		return &format.CorruptDataError{Field: field + "_sentinel", Record: record, Value: index, Limit: c.leafLimit}
	}
	c.scanned[child.Index()] = struct{}{}
	return nil
}

func (a *Accel) validateBVH() error {
	verts := a.Vertices
	checker := newChildChecker(len(a.BvhNodes), len(verts), func(offset uint32) bool {
		for idx := int(offset); idx+2 < len(verts); idx += 3 {
			if types.IsSentinel(verts[idx+2][3]) {
				return true
			}
		}
		return false
	})

	for idx := range a.BvhNodes {
		node := &a.BvhNodes[idx]
		if err := checker.check("left", idx, node.Left); err != nil {
			return err
		}
		if err := checker.check("right", idx, node.Right); err != nil {
			return err
		}
	}
	return nil
}

func (a *Accel) validateMBVH() error {
	blocks := a.TriBlocks
	checker := newChildChecker(len(a.MbvhNodes), len(blocks), func(offset uint32) bool {
		for idx := int(offset); idx < len(blocks); idx++ {
			if blocks[idx].IsSentinel() {
				return true
			}
		}
		return false
	})

	for idx := range a.MbvhNodes {
		node := &a.MbvhNodes[idx]
		for slot := 0; slot < TriBlockWidth; slot++ {
			if !node.SlotUsed(slot) {
				continue
			}
			if err := checker.check("children", idx, node.Children[slot]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Accel) validateGrid() error {
	g := a.Grid
	if g == nil {
		return &format.CorruptDataError{Field: "grid", Record: 0, Value: 0, Limit: 0}
	}

	for axis, dim := range g.Dims {
		if dim <= 0 {
			return &format.CorruptDataError{Field: "grid_dims", Record: axis, Value: int64(dim), Limit: 0}
		}
	}

	cellCount := int64(1)
	for _, dim := range g.Dims {
		cellCount *= int64(dim)
		if cellCount > int64(len(g.Cells)) {
			break
		}
	}
	if cellCount != int64(len(g.Cells)) {
		return &format.CorruptDataError{Field: "cell_count", Record: 0, Value: int64(len(g.Cells)), Limit: cellCount + 1}
	}

	refCount := int64(len(g.Triangles))
	for idx, cell := range g.Cells {
		if cell.Begin < 0 || int64(cell.Begin) > refCount {
			return &format.CorruptDataError{Field: "cell_begin", Record: idx, Value: int64(cell.Begin), Limit: refCount + 1}
		}
		if cell.End < cell.Begin || int64(cell.End) > refCount {
			return &format.CorruptDataError{Field: "cell_end", Record: idx, Value: int64(cell.End), Limit: refCount + 1}
		}
	}
	return nil
}
