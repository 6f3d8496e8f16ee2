package grid

import (
	"github.com/achilleasa/raybench/types"
)

// Test whether a triangle overlaps an axis-aligned box using the separating
// axis theorem (Akenine-Möller). The candidate axes are the 3 box face
// normals, the triangle normal and the 9 cross products between the triangle
// edges and the box edges. Touching counts as overlapping.
func TriBoxOverlap(boxCenter, boxHalfSize types.Vec3, tri [3]types.Vec3) bool {
	// Move everything so that the box is centered at the origin.
	v := [3]types.Vec3{
		tri[0].Sub(boxCenter),
		tri[1].Sub(boxCenter),
		tri[2].Sub(boxCenter),
	}
	edges := [3]types.Vec3{
		v[1].Sub(v[0]),
		v[2].Sub(v[1]),
		v[0].Sub(v[2]),
	}

	// Edge x box axis cross products. For box axis a the cross product
	// with e only has components along the two other axes.
	for _, e := range edges {
		for axis := 0; axis < 3; axis++ {
			var sepAxis types.Vec3
			u, w := (axis+1)%3, (axis+2)%3
			sepAxis[u] = -e[w]
			sepAxis[w] = e[u]
			if separated(v, boxHalfSize, sepAxis) {
				return false
			}
		}
	}

	// Box face normals; equivalent to testing the triangle bbox against
	// the box.
	for axis := 0; axis < 3; axis++ {
		min, max := minMax3(v[0][axis], v[1][axis], v[2][axis])
		if min > boxHalfSize[axis] || max < -boxHalfSize[axis] {
			return false
		}
	}

	// Triangle normal.
	return planeBoxOverlap(edges[0].Cross(edges[1]), v[0], boxHalfSize)
}

// Project the triangle and the box on axis and report whether the
// projections are disjoint.
func separated(v [3]types.Vec3, halfSize, axis types.Vec3) bool {
	p0, p1, p2 := v[0].Dot(axis), v[1].Dot(axis), v[2].Dot(axis)
	min, max := minMax3(p0, p1, p2)
	rad := halfSize[0]*abs(axis[0]) + halfSize[1]*abs(axis[1]) + halfSize[2]*abs(axis[2])
	return min > rad || max < -rad
}

// Check whether the plane through vert with the given normal crosses the
// origin centered box.
func planeBoxOverlap(normal, vert, halfSize types.Vec3) bool {
	var vmin, vmax types.Vec3
	for q := 0; q < 3; q++ {
		if normal[q] > 0 {
			vmin[q] = -halfSize[q] - vert[q]
			vmax[q] = halfSize[q] - vert[q]
		} else {
			vmin[q] = halfSize[q] - vert[q]
			vmax[q] = -halfSize[q] - vert[q]
		}
	}
	if normal.Dot(vmin) > 0 {
		return false
	}
	return normal.Dot(vmax) >= 0
}

func minMax3(a, b, c float32) (float32, float32) {
	min, max := a, a
	if b < min {
		min = b
	}
	if b > max {
		max = b
	}
	if c < min {
		min = c
	}
	if c > max {
		max = c
	}
	return min, max
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
