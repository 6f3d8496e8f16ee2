package types

// A triangle stored as a vertex, two edges and the (unnormalized) face normal:
// E1 = V0 - V1, E2 = V2 - V0, N = E1 x E2.
type Triangle struct {
	V0 Vec3
	E1 Vec3
	E2 Vec3
	N  Vec3
}

// Create a triangle from its three vertices.
func NewTriangle(v0, v1, v2 Vec3) Triangle {
	e1 := v0.Sub(v1)
	e2 := v2.Sub(v0)
	return Triangle{
		V0: v0,
		E1: e1,
		E2: e2,
		N:  e1.Cross(e2),
	}
}

// Recover the triangle vertices.
func (t Triangle) Vertices() [3]Vec3 {
	return [3]Vec3{t.V0, t.V0.Sub(t.E1), t.V0.Add(t.E2)}
}

// Get the triangle bounding box.
func (t Triangle) BBox() BBox {
	verts := t.Vertices()
	return BBox{
		Min: MinVec3(verts[0], MinVec3(verts[1], verts[2])),
		Max: MaxVec3(verts[0], MaxVec3(verts[1], verts[2])),
	}
}

// Get the triangle centroid.
func (t Triangle) Center() Vec3 {
	verts := t.Vertices()
	return verts[0].Add(verts[1]).Add(verts[2]).Mul(1.0 / 3.0)
}
