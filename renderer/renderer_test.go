package renderer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/achilleasa/raybench/asset/compiler/bvh"
	"github.com/achilleasa/raybench/asset/compiler/flatten"
	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/tracer"
	"github.com/achilleasa/raybench/tracer/device"
	"github.com/achilleasa/raybench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A wall of triangles on the z = 5 plane covering x, y in [0, 4].
func wallAccel(t *testing.T) *scene.Accel {
	var tris []types.Triangle
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			fx, fy := float32(x), float32(y)
			tris = append(tris,
				types.NewTriangle(types.XYZ(fx, fy, 5), types.XYZ(fx+1, fy, 5), types.XYZ(fx, fy+1, 5)),
				types.NewTriangle(types.XYZ(fx+1, fy, 5), types.XYZ(fx+1, fy+1, 5), types.XYZ(fx, fy+1, 5)),
			)
		}
	}

	src, err := bvh.Compile(tris, 2)
	require.NoError(t, err)
	nodes, verts, err := flatten.FlattenBVH(src)
	require.NoError(t, err)
	return &scene.Accel{Kind: scene.KindBVH, BvhNodes: nodes, Vertices: verts}
}

func wallRays() []types.Ray {
	var rays []types.Ray
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			// Half of the rays start outside the wall extents.
			rays = append(rays, types.Ray{
				Org:  types.XYZ(0.05+float32(x)*0.8, 0.05+float32(y)*0.4, 0),
				Dir:  types.XYZ(0, 0, 1),
				TMax: 1e9,
			})
		}
	}
	return rays
}

func TestRender(t *testing.T) {
	accel := wallAccel(t)
	rays := wallRays()

	for _, dev := range device.GetDevices(device.AllDevices) {
		r, err := NewDefault(accel, rays, Options{Times: 3, DryRuns: 1, Device: dev.Name, Workers: 3})
		require.NoError(t, err)

		require.NoError(t, r.Render(context.Background()))

		expHits := 0
		for idx, hit := range r.Hits() {
			insideWall := rays[idx].Org[0] < 4 && rays[idx].Org[1] < 4
			require.Equal(t, insideWall, hit.IsHit(), "[%s] ray %d", dev.Name, idx)
			if insideWall {
				expHits++
				assert.InDelta(t, 5.0, hit.TMax, 1e-5)
			} else {
				assert.Equal(t, rays[idx].TMax, hit.TMax)
			}
		}

		stats := r.Stats()
		assert.Equal(t, expHits, stats.Hits)
		assert.Equal(t, len(rays), stats.Rays)
		assert.Equal(t, 3, stats.Times)
		assert.Equal(t, dev.Name, stats.Device)
		assert.Equal(t, tracer.ReferenceKernelName, stats.Kernel)
		assert.Len(t, stats.RunID, 36)
		assert.Len(t, stats.Tracers, 3)

		var batched uint32
		for _, tr := range stats.Tracers {
			batched += tr.BatchSize
		}
		assert.Equal(t, uint32(len(rays)), batched)
		assert.True(t, strings.Contains(stats.Table(), "hits"))

		r.Close()
	}
}

func TestRenderDoesNotModifyInputRays(t *testing.T) {
	rays := wallRays()
	orig := make([]types.Ray, len(rays))
	copy(orig, rays)

	r, err := NewDefault(wallAccel(t), rays, Options{Times: 2, Device: "host"})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Render(context.Background()))
	require.Equal(t, orig, rays)
}

func TestRenderInterrupted(t *testing.T) {
	r, err := NewDefault(wallAccel(t), wallRays(), Options{Times: 5})
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Render(ctx), ErrInterrupted)
}

func TestNewDefaultErrors(t *testing.T) {
	accel := wallAccel(t)
	rays := wallRays()

	type spec struct {
		accel  *scene.Accel
		rays   []types.Ray
		opts   Options
		expErr error
	}
	specs := []spec{
		spec{nil, rays, Options{Times: 1}, ErrAccelNotDefined},
		spec{accel, nil, Options{Times: 1}, ErrNoRays},
		spec{accel, rays, Options{Times: 0}, ErrInvalidIterations},
		spec{accel, rays, Options{Times: 1, Kernel: "gpu"}, tracer.ErrUnknownKernel},
		spec{accel, rays, Options{Times: 1, Device: "tpu"}, device.ErrNoSuchDevice},
		spec{&scene.Accel{Kind: scene.KindGrid}, rays, Options{Times: 1}, nil},
	}

	for index, s := range specs {
		_, err := NewDefault(s.accel, s.rays, s.opts)
		if err == nil {
			t.Fatalf("[spec %d] expected an error", index)
		}
		if s.expErr != nil && !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestRunStats(t *testing.T) {
	stats := RunStats{Rays: 1000, Times: 4, TotalTime: 2 * time.Second}
	assert.Equal(t, 500*time.Millisecond, stats.AvgTime())
	assert.Equal(t, 2000.0, stats.RaysPerSec())

	assert.Equal(t, time.Duration(0), RunStats{}.AvgTime())
	assert.Equal(t, 0.0, RunStats{}.RaysPerSec())
}
