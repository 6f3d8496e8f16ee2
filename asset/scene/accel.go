package scene

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/raybench/types"
	"github.com/cespare/xxhash/v2"
	"github.com/olekukonko/tablewriter"
)

// The kind of a traversal-ready acceleration structure.
type Kind uint8

// Supported acceleration structures.
const (
	KindBVH Kind = iota + 1
	KindMBVH
	KindGrid
)

func (k Kind) String() string {
	switch k {
	case KindBVH:
		return "bvh"
	case KindMBVH:
		return "mbvh"
	case KindGrid:
		return "grid"
	}
	return "unknown"
}

// A flattened binary BVH node (64 bytes). Both child boxes are inlined so that
// a traversal can test them without fetching the children.
type BvhNode struct {
	LeftBBox  types.BBox
	RightBBox types.BBox

	// Sign-encoded children; see Child.
	Left  int32
	Right int32

	_ [2]int32
}

// Set the left and right children.
func (n *BvhNode) SetChildren(left, right Child) {
	n.Left = left.Encode()
	n.Right = right.Encode()
}

// Get the left and right children.
func (n *BvhNode) Children() (left, right Child) {
	return DecodeChild(n.Left), DecodeChild(n.Right)
}

// A flattened 4-ary node (112 bytes) with child boxes stored as a structure of
// arrays so that all 4 boxes can be tested with 4-wide loads. Unused slots
// hold an inverted box and a zero child index.
type MbvhNode struct {
	MinX, MinY, MinZ [4]float32
	MaxX, MaxY, MaxZ [4]float32

	// Sign-encoded children; see Child.
	Children [4]int32
}

// Set the bounding box of a child slot.
func (n *MbvhNode) SetBBox(slot int, bbox types.BBox) {
	n.MinX[slot], n.MinY[slot], n.MinZ[slot] = bbox.Min[0], bbox.Min[1], bbox.Min[2]
	n.MaxX[slot], n.MaxY[slot], n.MaxZ[slot] = bbox.Max[0], bbox.Max[1], bbox.Max[2]
}

// Get the bounding box of a child slot.
func (n *MbvhNode) BBox(slot int) types.BBox {
	return types.BBox{
		Min: types.XYZ(n.MinX[slot], n.MinY[slot], n.MinZ[slot]),
		Max: types.XYZ(n.MaxX[slot], n.MaxY[slot], n.MaxZ[slot]),
	}
}

// Returns true if the slot holds a real child.
func (n *MbvhNode) SlotUsed(slot int) bool {
	return !n.BBox(slot).IsEmpty()
}

// Number of triangles packed in a TriBlock.
const TriBlockWidth = 4

// Up to 4 triangles stored as a structure of arrays. Each field holds the
// x, y and z components for the 4 lanes.
type TriBlock struct {
	V0 [3][TriBlockWidth]float32
	E1 [3][TriBlockWidth]float32
	E2 [3][TriBlockWidth]float32
	N  [3][TriBlockWidth]float32
}

// Store a triangle in a lane.
func (b *TriBlock) SetLane(lane int, tri types.Triangle) {
	for axis := 0; axis < 3; axis++ {
		b.V0[axis][lane] = tri.V0[axis]
		b.E1[axis][lane] = tri.E1[axis]
		b.E2[axis][lane] = tri.E2[axis]
		b.N[axis][lane] = tri.N[axis]
	}
}

// Get the triangle stored in a lane.
func (b *TriBlock) Lane(lane int) types.Triangle {
	var tri types.Triangle
	for axis := 0; axis < 3; axis++ {
		tri.V0[axis] = b.V0[axis][lane]
		tri.E1[axis] = b.E1[axis][lane]
		tri.E2[axis] = b.E2[axis][lane]
		tri.N[axis] = b.N[axis][lane]
	}
	return tri
}

// Returns true if every lane component carries the sentinel bit pattern.
func (b *TriBlock) IsSentinel() bool {
	for _, field := range [][3][TriBlockWidth]float32{b.V0, b.E1, b.E2, b.N} {
		for axis := 0; axis < 3; axis++ {
			for lane := 0; lane < TriBlockWidth; lane++ {
				if !types.IsSentinel(field[axis][lane]) {
					return false
				}
			}
		}
	}
	return true
}

// A block whose components all carry the sentinel bit pattern.
func SentinelTriBlock() TriBlock {
	var b TriBlock
	s := types.Sentinel()
	for axis := 0; axis < 3; axis++ {
		for lane := 0; lane < TriBlockWidth; lane++ {
			b.V0[axis][lane], b.E1[axis][lane], b.E2[axis][lane], b.N[axis][lane] = s, s, s, s
		}
	}
	return b
}

// A half-open range into the packed triangle references of a grid.
type Cell struct {
	Begin int32
	End   int32
}

// Number of triangle references in the cell.
func (c Cell) Count() int32 {
	return c.End - c.Begin
}

// A uniform grid. Cells are stored in row-major order (x + Nx*y + Nx*Ny*z)
// and Triangles holds one copy of a triangle per overlapped cell.
type Grid struct {
	Dims      [3]int32
	Bounds    types.BBox
	Cells     []Cell
	Triangles []types.Triangle
}

// Get the flattened index of cell (x, y, z).
func (g *Grid) CellIndex(x, y, z int) int {
	return x + int(g.Dims[0])*(y+int(g.Dims[1])*z)
}

// Get the size of a cell.
func (g *Grid) CellSize() types.Vec3 {
	ext := g.Bounds.Extents()
	return types.XYZ(ext[0]/float32(g.Dims[0]), ext[1]/float32(g.Dims[1]), ext[2]/float32(g.Dims[2]))
}

// A traversal-ready acceleration structure. Only the arrays that match Kind
// are populated. Once built it is never modified and can be shared by any
// number of concurrent traversals.
type Accel struct {
	Kind Kind

	// Scene bounds.
	Bounds types.BBox

	// Binary BVH nodes and the sentinel-terminated packed vertex buffer.
	BvhNodes []BvhNode
	Vertices []types.Vec4

	// 4-ary nodes and their sentinel-terminated triangle blocks.
	MbvhNodes []MbvhNode
	TriBlocks []TriBlock

	Grid *Grid
}

// Calculate a digest over the traversal arrays. Two accels with the same
// digest have byte-identical node and triangle arrays.
func (a *Accel) Digest() uint64 {
	h := xxhash.New()
	var arrays []interface{}
	switch a.Kind {
	case KindBVH:
		arrays = []interface{}{a.BvhNodes, a.Vertices}
	case KindMBVH:
		arrays = []interface{}{a.MbvhNodes, a.TriBlocks}
	case KindGrid:
		if a.Grid != nil {
			arrays = []interface{}{a.Grid.Dims, a.Grid.Bounds, a.Grid.Cells, a.Grid.Triangles}
		}
	}

	_ = binary.Write(h, binary.LittleEndian, uint8(a.Kind))
	for _, arr := range arrays {
		if v := reflect.ValueOf(arr); v.Kind() == reflect.Slice && v.Len() == 0 {
			continue
		}
		// Writing fixed size values into a hash never fails.
		_ = binary.Write(h, binary.LittleEndian, arr)
	}
	return h.Sum64()
}

// Build a tabular representation of the accel statistics.
func (a *Accel) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Array", "Entries", "Size"})

	var total string
	switch a.Kind {
	case KindBVH:
		table.Append([]string{"Nodes", fmt.Sprint(len(a.BvhNodes)), fmtSize(a.BvhNodes)})
		table.Append([]string{"Vertices", fmt.Sprint(len(a.Vertices)), fmtSize(a.Vertices)})
		table.Append([]string{"Leaves", fmt.Sprint(a.LeafCount()), ""})
		total = fmtSize(a.BvhNodes, a.Vertices)
	case KindMBVH:
		table.Append([]string{"Nodes", fmt.Sprint(len(a.MbvhNodes)), fmtSize(a.MbvhNodes)})
		table.Append([]string{"Triangle blocks", fmt.Sprint(len(a.TriBlocks)), fmtSize(a.TriBlocks)})
		table.Append([]string{"Leaves", fmt.Sprint(a.LeafCount()), ""})
		total = fmtSize(a.MbvhNodes, a.TriBlocks)
	case KindGrid:
		if a.Grid != nil {
			table.Append([]string{"Cells", fmt.Sprint(len(a.Grid.Cells)), fmtSize(a.Grid.Cells)})
			table.Append([]string{"References", fmt.Sprint(len(a.Grid.Triangles)), fmtSize(a.Grid.Triangles)})
			table.Append([]string{"Dimensions", fmt.Sprintf("%dx%dx%d", a.Grid.Dims[0], a.Grid.Dims[1], a.Grid.Dims[2]), ""})
			total = fmtSize(a.Grid.Cells, a.Grid.Triangles)
		}
	}
	table.Append([]string{"Bounds", fmt.Sprintf("%v - %v", a.Bounds.Min, a.Bounds.Max), ""})
	table.SetFooter([]string{"Total (" + a.Kind.String() + ")", fmt.Sprintf("%016x", a.Digest()), strings.TrimLeft(total, " ")})

	table.Render()
	return buf.String()
}

// Count the leaf records in the packed triangle buffers.
func (a *Accel) LeafCount() int {
	count := 0
	switch a.Kind {
	case KindBVH:
		for _, v := range a.Vertices {
			if types.IsSentinel(v[3]) {
				count++
			}
		}
	case KindMBVH:
		for idx := range a.TriBlocks {
			if a.TriBlocks[idx].IsSentinel() {
				count++
			}
		}
	}
	return count
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
