package types

// A ray with its valid parametric interval.
type Ray struct {
	Org  Vec3
	TMin float32
	Dir  Vec3
	TMax float32
}

// Get the point at parametric distance t.
func (r Ray) At(t float32) Vec3 {
	return r.Org.Add(r.Dir.Mul(t))
}

// The MissID is stored in Hit.TriID when a ray does not intersect anything.
const MissID int32 = -1

// An intersection record. TMax holds the parametric hit distance or the ray
// tmax when nothing was hit.
type Hit struct {
	TriID int32
	TMax  float32
	U, V  float32
}

// Create a hit record for a ray that has not hit anything yet.
func MissFor(r Ray) Hit {
	return Hit{TriID: MissID, TMax: r.TMax}
}

// Returns true if this record describes an intersection.
func (h Hit) IsHit() bool {
	return h.TriID >= 0
}
