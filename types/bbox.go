package types

import "math"

// An axis-aligned bounding box. An empty box has its min corner at +Inf and its
// max corner at -Inf so that it acts as the identity for Union.
type BBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box.
func EmptyBBox() BBox {
	inf := float32(math.Inf(1))
	return BBox{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Create a box that never overlaps anything (min > max on every axis) but,
// unlike EmptyBBox, only uses finite values.
func InvertedBBox() BBox {
	return BBox{
		Min: Splat3(math.MaxFloat32),
		Max: Splat3(-math.MaxFloat32),
	}
}

// Returns true if min > max along any axis.
func (b BBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Grow the box so it includes point p.
func (b BBox) Extend(p Vec3) BBox {
	return BBox{Min: MinVec3(b.Min, p), Max: MaxVec3(b.Max, p)}
}

// Return the union of two boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{Min: MinVec3(b.Min, o.Min), Max: MaxVec3(b.Max, o.Max)}
}

// Get the box side lengths.
func (b BBox) Extents() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the box center.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get half of the box side lengths.
func (b BBox) HalfSize() Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Returns true if p lies strictly inside the box.
func (b BBox) ContainsStrict(p Vec3) bool {
	return p[0] > b.Min[0] && p[0] < b.Max[0] &&
		p[1] > b.Min[1] && p[1] < b.Max[1] &&
		p[2] > b.Min[2] && p[2] < b.Max[2]
}

// Calculate the surface area of the box.
func (b BBox) SurfaceArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	side := b.Extents()
	return 2 * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}

// An inclusive range of cell indices along each axis.
type CellRange struct {
	Lx, Hx int
	Ly, Hy int
	Lz, Hz int
}

// Number of cells covered by the range.
func (r CellRange) Size() int {
	if r.Hx < r.Lx || r.Hy < r.Ly || r.Hz < r.Lz {
		return 0
	}
	return (r.Hx - r.Lx + 1) * (r.Hy - r.Ly + 1) * (r.Hz - r.Lz + 1)
}

// Map a coordinate to a cell index along one axis. The coordinate is shifted
// by origin, scaled by invCellSize and clamped to [0, dim-1].
func CellIndex(coord, origin, invCellSize float32, dim int) int {
	v := (coord - origin) * invCellSize
	if !(v > 0) {
		// Also catches NaN.
		return 0
	}
	if v >= float32(dim-1) {
		return dim - 1
	}
	return int(v)
}

// Find the conservative range of cells that the box bb can overlap inside a
// grid spanning gridBB with the given dimensions.
func Coverage(bb BBox, gridBB BBox, invCellSize Vec3, dims [3]int) CellRange {
	return CellRange{
		Lx: CellIndex(bb.Min[0], gridBB.Min[0], invCellSize[0], dims[0]),
		Hx: CellIndex(bb.Max[0], gridBB.Min[0], invCellSize[0], dims[0]),
		Ly: CellIndex(bb.Min[1], gridBB.Min[1], invCellSize[1], dims[1]),
		Hy: CellIndex(bb.Max[1], gridBB.Min[1], invCellSize[1], dims[1]),
		Lz: CellIndex(bb.Min[2], gridBB.Min[2], invCellSize[2], dims[2]),
		Hz: CellIndex(bb.Max[2], gridBB.Min[2], invCellSize[2], dims[2]),
	}
}
