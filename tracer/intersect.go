package tracer

import (
	"github.com/achilleasa/raybench/types"
)

// Box hit distances are scaled by this factor so that rounding errors never
// cull a box that the ray grazes.
const boxTolerance = 1 + 2*(3*epsilon32/(1-3*epsilon32))

const epsilon32 = 5.96046448e-08

// Precomputed per-ray values used by the box tests.
type rayData struct {
	org    types.Vec3
	dir    types.Vec3
	invDir types.Vec3
	tmin   float32
}

func newRayData(r types.Ray) rayData {
	return rayData{
		org:    r.Org,
		dir:    r.Dir,
		invDir: types.XYZ(1/r.Dir[0], 1/r.Dir[1], 1/r.Dir[2]),
		tmin:   r.TMin,
	}
}

// Slab test. Returns the entry and exit distances clipped to [rd.tmin, tmax]
// and whether the interval is non-empty. Inverted boxes never pass.
func (rd *rayData) intersectBox(min, max types.Vec3, tmax float32) (float32, float32, bool) {
	tNear, tFar := rd.tmin, tmax
	for axis := 0; axis < 3; axis++ {
		t0 := (min[axis] - rd.org[axis]) * rd.invDir[axis]
		t1 := (max[axis] - rd.org[axis]) * rd.invDir[axis]
		if rd.invDir[axis] < 0 {
			t0, t1 = t1, t0
		}
		t1 *= boxTolerance

		// NaN values are ignored by the comparisons.
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return tNear, tFar, false
		}
	}
	return tNear, tFar, true
}

// Intersect a ray with a triangle stored as (v0, e1 = v0 - v1, e2 = v2 - v0,
// n = e1 x e2). Returns the hit distance and barycentric coordinates if the
// ray hits inside (tmin, tmax).
func intersectTriangle(org, dir types.Vec3, tri *types.Triangle, tmin, tmax float32) (t, u, v float32, hit bool) {
	den := tri.N.Dot(dir)
	if den == 0 {
		return 0, 0, 0, false
	}

	c := tri.V0.Sub(org)
	r := dir.Cross(c)
	inv := 1 / den
	u = r.Dot(tri.E2) * inv
	v = r.Dot(tri.E1) * inv
	if u < 0 || v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = tri.N.Dot(c) * inv
	if !(t > tmin && t < tmax) {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
