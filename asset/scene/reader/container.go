package reader

import (
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset"
	"github.com/achilleasa/raybench/asset/compiler/flatten"
	"github.com/achilleasa/raybench/asset/compiler/grid"
	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
)

type containerReader struct {
	logger log.Logger
	opts   Options
}

// Create a new reader for tree containers.
func newContainerReader(opts Options) *containerReader {
	return &containerReader{
		logger: log.New("container reader"),
		opts:   opts,
	}
}

// Read a tree container and prepare the requested accel from its blocks.
func (r *containerReader) Read(res *asset.Resource) (*scene.Accel, error) {
	r.logger.Noticef(`parsing tree container from "%s"`, res.Path())
	start := time.Now()

	data, err := res.ReadAll()
	if err != nil {
		return nil, err
	}

	kind := r.opts.Kind
	if kind == 0 {
		if kind, err = detectKind(data); err != nil {
			return nil, err
		}
	}

	var accel *scene.Accel
	switch kind {
	case scene.KindBVH:
		accel, err = flatten.LoadBVHAccel(data)
	case scene.KindMBVH:
		accel, err = flatten.LoadMBVHAccel(data)
	case scene.KindGrid:
		accel, err = r.buildGrid(data)
	default:
		err = fmt.Errorf("containerReader: unsupported accel kind %d", kind)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Noticef("prepared %s accel in %d ms", accel.Kind, time.Since(start).Nanoseconds()/1e6)
	return accel, nil
}

func (r *containerReader) buildGrid(data []byte) (*scene.Accel, error) {
	mesh, err := format.ReadMesh(data)
	if err != nil {
		return nil, err
	}
	tris, err := mesh.Triangles()
	if err != nil {
		return nil, err
	}

	g, err := grid.Build(tris, grid.Options{Dims: r.opts.GridDims, Workers: r.opts.Workers})
	if err != nil {
		return nil, err
	}
	return &scene.Accel{Kind: scene.KindGrid, Bounds: g.Bounds, Grid: g}, nil
}

// Pick the first tree block in the container.
func detectKind(data []byte) (scene.Kind, error) {
	blocks, err := format.ListBlocks(data)
	if err != nil {
		return 0, err
	}
	for _, block := range blocks {
		switch block {
		case format.BvhBlock:
			return scene.KindBVH, nil
		case format.MbvhBlock:
			return scene.KindMBVH, nil
		}
	}
	return 0, &format.FormatError{Context: "locating a BVH or MBVH block", Err: format.ErrBlockNotFound}
}
