package compiler

import (
	"time"

	"github.com/achilleasa/raybench/asset/compiler/bvh"
	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

// Options for compiling a mesh into tree blocks.
type Options struct {
	// Max triangles per BVH leaf. If zero, bvh.DefaultMinLeafItems is used.
	MinLeafItems int

	// Skip the 4-ary tree.
	SkipMBVH bool
}

type containerCompiler struct {
	logger log.Logger
	opts   Options

	mesh *format.Mesh
	tris []types.Triangle

	bvh  *format.BVH
	mbvh *format.MBVH
}

// Compile the mesh block of a container into a new container holding a BVH
// block, an MBVH block (unless skipped) and a copy of the mesh block, in
// that order.
func Compile(data []byte, opts Options) ([]byte, error) {
	compiler := &containerCompiler{
		logger: log.New("container compiler"),
		opts:   opts,
	}

	start := time.Now()
	compiler.logger.Noticef("compiling container")

	var err error
	err = compiler.loadMesh(data)
	if err != nil {
		return nil, err
	}

	err = compiler.partitionGeometry()
	if err != nil {
		return nil, err
	}

	out := compiler.assemble()
	compiler.logger.Noticef("compiled container in %d ms", time.Since(start).Nanoseconds()/1e6)
	return out, nil
}

func (cc *containerCompiler) loadMesh(data []byte) error {
	var err error
	cc.mesh, err = format.ReadMesh(data)
	if err != nil {
		return err
	}

	cc.tris, err = cc.mesh.Triangles()
	if err != nil {
		return err
	}
	cc.logger.Infof("loaded mesh with %d vertices and %d triangles", len(cc.mesh.Vertices), len(cc.tris))
	return nil
}

// Build the binary BVH and collapse it into the 4-ary tree.
func (cc *containerCompiler) partitionGeometry() error {
	start := time.Now()
	cc.logger.Notice("partitioning geometry")

	var err error
	cc.bvh, err = bvh.Compile(cc.tris, cc.opts.MinLeafItems)
	if err != nil {
		return err
	}
	cc.logger.Infof("built BVH with %d nodes", len(cc.bvh.Nodes))

	if !cc.opts.SkipMBVH {
		cc.mbvh, err = bvh.Collapse(cc.bvh)
		if err != nil {
			return err
		}
		cc.logger.Infof("collapsed BVH into MBVH with %d nodes", len(cc.mbvh.Nodes))
	}

	cc.logger.Noticef("partitioned geometry in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

func (cc *containerCompiler) assemble() []byte {
	blocks := []format.Block{{Type: format.BvhBlock, Payload: cc.bvh.Encode()}}
	if cc.mbvh != nil {
		blocks = append(blocks, format.Block{Type: format.MbvhBlock, Payload: cc.mbvh.Encode()})
	}
	blocks = append(blocks, format.Block{Type: format.MeshBlock, Payload: cc.mesh.Encode()})
	return format.Assemble(blocks...)
}
