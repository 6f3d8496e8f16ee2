package format

import (
	"github.com/achilleasa/raybench/types"
)

// The mesh block header.
type MeshHeader struct {
	VertCount uint32
	TriCount  uint32
}

// An indexed triangle mesh.
type Mesh struct {
	// Vertices are padded to 4 components; the w component is ignored.
	Vertices []types.Vec4

	// Three vertex indices per triangle.
	Indices []uint32
}

// Locate and decode the mesh block of a container.
func ReadMesh(data []byte) (*Mesh, error) {
	payload, err := LocateBlock(data, MeshBlock)
	if err != nil {
		return nil, err
	}
	return DecodeMesh(payload)
}

// Decode a mesh block payload.
func DecodeMesh(payload []byte) (*Mesh, error) {
	d := newDecoder(payload, MeshBlock)

	var hdr MeshHeader
	if err := d.read("header", &hdr); err != nil {
		return nil, err
	}

	if err := d.expect("vertices", int(hdr.VertCount), types.Vec4{}); err != nil {
		return nil, err
	}
	mesh := &Mesh{Vertices: make([]types.Vec4, hdr.VertCount)}
	if err := d.read("vertices", mesh.Vertices); err != nil {
		return nil, err
	}

	if err := d.expect("indices", 3*int(hdr.TriCount), uint32(0)); err != nil {
		return nil, err
	}
	mesh.Indices = make([]uint32, 3*hdr.TriCount)
	if err := d.read("indices", mesh.Indices); err != nil {
		return nil, err
	}

	return mesh, nil
}

// Create a mesh from a triangle soup without sharing vertices.
func MeshFromTriangles(tris []types.Triangle) *Mesh {
	mesh := &Mesh{
		Vertices: make([]types.Vec4, 0, 3*len(tris)),
		Indices:  make([]uint32, 0, 3*len(tris)),
	}
	for _, tri := range tris {
		for _, v := range tri.Vertices() {
			mesh.Indices = append(mesh.Indices, uint32(len(mesh.Vertices)))
			mesh.Vertices = append(mesh.Vertices, v.Vec4(1))
		}
	}
	return mesh
}

// Encode the mesh into a block payload.
func (m *Mesh) Encode() []byte {
	hdr := MeshHeader{
		VertCount: uint32(len(m.Vertices)),
		TriCount:  uint32(len(m.Indices) / 3),
	}
	return encode(hdr, m.Vertices, m.Indices)
}

// Expand the indexed mesh into a triangle soup.
func (m *Mesh) Triangles() ([]types.Triangle, error) {
	vertCount := int64(len(m.Vertices))
	tris := make([]types.Triangle, len(m.Indices)/3)
	for idx := range tris {
		for k := 0; k < 3; k++ {
			if err := checkRange("vertex_index", idx, int64(m.Indices[3*idx+k]), 1, vertCount); err != nil {
				return nil, err
			}
		}
		tris[idx] = types.NewTriangle(
			m.Vertices[m.Indices[3*idx]].Vec3(),
			m.Vertices[m.Indices[3*idx+1]].Vec3(),
			m.Vertices[m.Indices[3*idx+2]].Vec3(),
		)
	}
	return tris, nil
}
