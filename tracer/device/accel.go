package device

import (
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

// A set of buffers holding an uploaded accel.
type AccelBuffers struct {
	Buffers []*Buffer

	// A copy of the accel whose arrays point to device memory.
	Accel *scene.Accel
}

// Release all buffers.
func (ab *AccelBuffers) Release() {
	for _, buf := range ab.Buffers {
		buf.Release()
	}
	ab.Buffers = nil
}

// Upload the arrays of an accel to the device. Each array is transferred with
// a single bulk copy; any failure aborts the upload and releases the buffers
// allocated so far.
func UploadAccel(d *Device, accel *scene.Accel) (*AccelBuffers, error) {
	if accel.Kind == scene.KindGrid && accel.Grid == nil {
		return nil, fmt.Errorf("device (%s): grid accel has no grid data", d.Name)
	}

	logger := log.New("device")
	start := time.Now()

	out := &AccelBuffers{
		Accel: &scene.Accel{Kind: accel.Kind, Bounds: accel.Bounds},
	}

	upload := func(name string, data interface{}) (interface{}, error) {
		buf := d.Buffer(name)
		if err := buf.WriteData(data); err != nil {
			out.Release()
			return nil, err
		}
		out.Buffers = append(out.Buffers, buf)
		return buf.Data(), nil
	}

	switch accel.Kind {
	case scene.KindBVH:
		nodes, err := upload("bvh nodes", accel.BvhNodes)
		if err != nil {
			return nil, err
		}
		verts, err := upload("packed vertices", accel.Vertices)
		if err != nil {
			return nil, err
		}
		out.Accel.BvhNodes = nodes.([]scene.BvhNode)
		out.Accel.Vertices = verts.([]types.Vec4)
	case scene.KindMBVH:
		nodes, err := upload("mbvh nodes", accel.MbvhNodes)
		if err != nil {
			return nil, err
		}
		blocks, err := upload("triangle blocks", accel.TriBlocks)
		if err != nil {
			return nil, err
		}
		out.Accel.MbvhNodes = nodes.([]scene.MbvhNode)
		out.Accel.TriBlocks = blocks.([]scene.TriBlock)
	case scene.KindGrid:
		cells, err := upload("grid cells", accel.Grid.Cells)
		if err != nil {
			return nil, err
		}
		tris, err := upload("grid triangles", accel.Grid.Triangles)
		if err != nil {
			return nil, err
		}
		out.Accel.Grid = &scene.Grid{
			Dims:      accel.Grid.Dims,
			Bounds:    accel.Grid.Bounds,
			Cells:     cells.([]scene.Cell),
			Triangles: tris.([]types.Triangle),
		}
	}

	total := 0
	for _, buf := range out.Buffers {
		total += buf.Size()
	}
	logger.Debugf("uploaded %s accel (%d bytes) to %s in %d ms", accel.Kind, total, d.Name, time.Since(start).Nanoseconds()/1e6)
	return out, nil
}
