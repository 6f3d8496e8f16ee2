package tracer

import (
	"math"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/types"
)

// The name of the scalar reference kernel.
const ReferenceKernelName = "reference"

// Initial capacity of the traversal stacks. The stacks grow past it for
// deep or skewed trees.
const stackCapacity = 64

// ReferenceKernel is a scalar single-ray traversal for every accel kind. It
// serves as the correctness oracle for the flattened layouts and as the
// baseline for the benchmark numbers.
//
// The TriID of a hit is the index of the triangle inside the packed buffer of
// the accel: the vertex offset / 3 for BVH, block*4 + lane for MBVH and the
// reference index for grids.
type ReferenceKernel struct{}

func init() {
	if err := Register(ReferenceKernel{}); err != nil {
		panic(err)
	}
}

// Get kernel name.
func (ReferenceKernel) Name() string {
	return ReferenceKernelName
}

// Returns true for all accel kinds.
func (ReferenceKernel) Supports(kind scene.Kind) bool {
	switch kind {
	case scene.KindBVH, scene.KindMBVH, scene.KindGrid:
		return true
	}
	return false
}

// Trace a batch of rays.
func (k ReferenceKernel) Trace(accel *scene.Accel, rays []types.Ray, hits []types.Hit) {
	for idx := range rays {
		switch accel.Kind {
		case scene.KindBVH:
			traceBVH(accel, &rays[idx], &hits[idx])
		case scene.KindMBVH:
			traceMBVH(accel, &rays[idx], &hits[idx])
		case scene.KindGrid:
			traceGrid(accel.Grid, &rays[idx], &hits[idx])
		}
	}
}

func traceBVH(accel *scene.Accel, ray *types.Ray, hit *types.Hit) {
	if len(accel.BvhNodes) == 0 {
		return
	}

	rd := newRayData(*ray)
	stack := make([]int32, 1, stackCapacity)

	for len(stack) > 0 {
		node := &accel.BvhNodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		_, _, hitLeft := rd.intersectBox(node.LeftBBox.Min, node.LeftBBox.Max, hit.TMax)
		_, _, hitRight := rd.intersectBox(node.RightBBox.Min, node.RightBBox.Max, hit.TMax)

		// Push right first so the left subtree is visited first.
		if hitRight {
			stack = visitBVHChild(accel, node.Right, ray, hit, stack)
		}
		if hitLeft {
			stack = visitBVHChild(accel, node.Left, ray, hit, stack)
		}
	}
}

// Push an inner child onto the stack or intersect the triangles of a leaf.
func visitBVHChild(accel *scene.Accel, encoded int32, ray *types.Ray, hit *types.Hit, stack []int32) []int32 {
	child := scene.DecodeChild(encoded)
	if !child.IsLeaf() {
		return append(stack, encoded)
	}

	// Scan triangles until the vertex carrying the sentinel in w.
	verts := accel.Vertices
	for offset := int(child.Index()); offset+2 < len(verts); offset += 3 {
		tri := types.NewTriangle(verts[offset].Vec3(), verts[offset+1].Vec3(), verts[offset+2].Vec3())
		if t, u, v, ok := intersectTriangle(ray.Org, ray.Dir, &tri, ray.TMin, hit.TMax); ok {
			*hit = types.Hit{TriID: int32(offset / 3), TMax: t, U: u, V: v}
		}
		if types.IsSentinel(verts[offset+2][3]) {
			break
		}
	}
	return stack
}

func traceMBVH(accel *scene.Accel, ray *types.Ray, hit *types.Hit) {
	if len(accel.MbvhNodes) == 0 {
		return
	}

	rd := newRayData(*ray)
	stack := make([]int32, 1, stackCapacity)

	for len(stack) > 0 {
		node := &accel.MbvhNodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		for slot := scene.TriBlockWidth - 1; slot >= 0; slot-- {
			min := types.XYZ(node.MinX[slot], node.MinY[slot], node.MinZ[slot])
			max := types.XYZ(node.MaxX[slot], node.MaxY[slot], node.MaxZ[slot])
			if _, _, ok := rd.intersectBox(min, max, hit.TMax); !ok {
				continue
			}

			child := scene.DecodeChild(node.Children[slot])
			if !child.IsLeaf() {
				stack = append(stack, node.Children[slot])
				continue
			}

			for blockIndex := int(child.Index()); blockIndex < len(accel.TriBlocks); blockIndex++ {
				block := &accel.TriBlocks[blockIndex]
				if block.IsSentinel() {
					break
				}
				for lane := 0; lane < scene.TriBlockWidth; lane++ {
					tri := block.Lane(lane)
					if t, u, v, ok := intersectTriangle(ray.Org, ray.Dir, &tri, ray.TMin, hit.TMax); ok {
						*hit = types.Hit{TriID: int32(blockIndex*scene.TriBlockWidth + lane), TMax: t, U: u, V: v}
					}
				}
			}
		}
	}
}

// 3D-DDA grid walk. Cells are visited in ray order and the walk stops as soon
// as the closest hit lies inside the current cell.
func traceGrid(g *scene.Grid, ray *types.Ray, hit *types.Hit) {
	if g == nil || len(g.Triangles) == 0 {
		return
	}

	rd := newRayData(*ray)
	tNear, tFar, ok := rd.intersectBox(g.Bounds.Min, g.Bounds.Max, hit.TMax)
	if !ok {
		return
	}

	cellSize := g.CellSize()
	entry := ray.At(tNear)

	var cell, step, out [3]int
	var tNext, tDelta [3]float32
	for axis := 0; axis < 3; axis++ {
		dim := int(g.Dims[axis])
		if cellSize[axis] > 0 {
			cell[axis] = types.CellIndex(entry[axis], g.Bounds.Min[axis], 1/cellSize[axis], dim)
		}

		switch {
		case cellSize[axis] > 0 && ray.Dir[axis] > 0:
			step[axis], out[axis] = 1, dim
			boundary := g.Bounds.Min[axis] + float32(cell[axis]+1)*cellSize[axis]
			tNext[axis] = (boundary - ray.Org[axis]) * rd.invDir[axis]
			tDelta[axis] = cellSize[axis] * rd.invDir[axis]
		case cellSize[axis] > 0 && ray.Dir[axis] < 0:
			step[axis], out[axis] = -1, -1
			boundary := g.Bounds.Min[axis] + float32(cell[axis])*cellSize[axis]
			tNext[axis] = (boundary - ray.Org[axis]) * rd.invDir[axis]
			tDelta[axis] = -cellSize[axis] * rd.invDir[axis]
		default:
			tNext[axis] = float32(math.Inf(1))
			tDelta[axis] = float32(math.Inf(1))
		}
	}

	for {
		c := g.Cells[g.CellIndex(cell[0], cell[1], cell[2])]
		for ref := c.Begin; ref < c.End; ref++ {
			tri := &g.Triangles[ref]
			if t, u, v, ok := intersectTriangle(ray.Org, ray.Dir, tri, ray.TMin, hit.TMax); ok {
				*hit = types.Hit{TriID: ref, TMax: t, U: u, V: v}
			}
		}

		axis := 0
		if tNext[1] < tNext[axis] {
			axis = 1
		}
		if tNext[2] < tNext[axis] {
			axis = 2
		}

		tExit := tNext[axis]
		if hit.TMax <= tExit || tExit > tFar || step[axis] == 0 {
			return
		}

		cell[axis] += step[axis]
		if cell[axis] == out[axis] {
			return
		}
		tNext[axis] += tDelta[axis]
	}
}
