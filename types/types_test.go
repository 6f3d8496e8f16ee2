package types

import (
	"math"
	"testing"
)

func TestBBoxUnion(t *testing.T) {
	bb := EmptyBBox()
	if !bb.IsEmpty() {
		t.Fatal("expected empty box to report IsEmpty")
	}
	if bb.SurfaceArea() != 0 {
		t.Fatalf("expected empty box surface area to be 0; got %f", bb.SurfaceArea())
	}

	bb = bb.Union(BBox{Min: XYZ(0, 0, 0), Max: XYZ(1, 1, 1)})
	bb = bb.Extend(XYZ(-1, 2, 0.5))

	expBB := BBox{Min: XYZ(-1, 0, 0), Max: XYZ(1, 2, 1)}
	if bb != expBB {
		t.Fatalf("expected box %v; got %v", expBB, bb)
	}
	if sa := bb.SurfaceArea(); sa != 2*(2*2+2*1+2*1) {
		t.Fatalf("expected surface area 16; got %f", sa)
	}
	if c := bb.Center(); c != XYZ(0, 1, 0.5) {
		t.Fatalf("expected center (0, 1, 0.5); got %v", c)
	}
	if !InvertedBBox().IsEmpty() {
		t.Fatal("expected inverted box to report IsEmpty")
	}
}

func TestCellIndex(t *testing.T) {
	type spec struct {
		coord  float32
		origin float32
		inv    float32
		dim    int
		exp    int
	}
	specs := []spec{
		spec{0, 0, 10, 10, 0},
		spec{0.55, 0, 10, 10, 5},
		spec{1, 0, 10, 10, 9},
		spec{2, 0, 10, 10, 9},
		spec{-1, 0, 10, 10, 0},
		// Zero extent axis
		spec{3, 3, 0, 10, 0},
		spec{float32(math.NaN()), 0, 10, 10, 0},
	}

	for index, s := range specs {
		if got := CellIndex(s.coord, s.origin, s.inv, s.dim); got != s.exp {
			t.Fatalf("[spec %d] expected cell %d; got %d", index, s.exp, got)
		}
	}
}

func TestCoverage(t *testing.T) {
	gridBB := BBox{Min: XYZ(0, 0, 0), Max: XYZ(4, 4, 4)}
	inv := XYZ(1, 1, 1)
	dims := [3]int{4, 4, 4}

	r := Coverage(BBox{Min: XYZ(0.5, 1.5, 3.5), Max: XYZ(2.5, 1.7, 4)}, gridBB, inv, dims)
	expRange := CellRange{Lx: 0, Hx: 2, Ly: 1, Hy: 1, Lz: 3, Hz: 3}
	if r != expRange {
		t.Fatalf("expected range %+v; got %+v", expRange, r)
	}
	if r.Size() != 3 {
		t.Fatalf("expected range size 3; got %d", r.Size())
	}
	if (CellRange{Lx: 1, Hx: 0}).Size() != 0 {
		t.Fatal("expected inverted range to have size 0")
	}
}

func TestSentinel(t *testing.T) {
	if !IsSentinel(Sentinel()) {
		t.Fatal("expected Sentinel() to carry the sentinel bit pattern")
	}
	if IsSentinel(0) {
		t.Fatal("expected +0 not to be a sentinel")
	}
	if Sentinel() != 0 {
		t.Fatal("expected the sentinel to compare equal to zero")
	}
}

func TestTriangle(t *testing.T) {
	v0, v1, v2 := XYZ(1, 0, 0), XYZ(3, 0, 0), XYZ(1, 2, 0)
	tri := NewTriangle(v0, v1, v2)

	if tri.E1 != XYZ(-2, 0, 0) || tri.E2 != XYZ(0, 2, 0) {
		t.Fatalf("unexpected edges %v, %v", tri.E1, tri.E2)
	}
	if tri.N != XYZ(0, 0, -4) {
		t.Fatalf("expected normal (0, 0, -4); got %v", tri.N)
	}

	verts := tri.Vertices()
	if verts != [3]Vec3{v0, v1, v2} {
		t.Fatalf("expected vertices %v; got %v", [3]Vec3{v0, v1, v2}, verts)
	}

	expBB := BBox{Min: XYZ(1, 0, 0), Max: XYZ(3, 2, 0)}
	if tri.BBox() != expBB {
		t.Fatalf("expected bbox %v; got %v", expBB, tri.BBox())
	}
}

func TestRay(t *testing.T) {
	r := Ray{Org: XYZ(1, 1, 1), Dir: XYZ(0, 2, 0), TMax: 5}
	if p := r.At(1.5); p != XYZ(1, 4, 1) {
		t.Fatalf("expected point (1, 4, 1); got %v", p)
	}

	hit := MissFor(r)
	if hit.IsHit() || hit.TriID != MissID || hit.TMax != 5 {
		t.Fatalf("unexpected miss record %+v", hit)
	}
}
