package rays

import (
	"bytes"
	"errors"
	"testing"

	"github.com/achilleasa/raybench/types"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRayStream(t *testing.T) {
	in := []types.Ray{
		{Org: types.XYZ(1, 2, 3), Dir: types.XYZ(0, 0, -1)},
		{Org: types.XYZ(-1, 0.5, 8), Dir: types.XYZ(1, 1, 1)},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	data := buf.Bytes()
	require.Len(t, data, 2*RecordSize)

	// A partial record at the end is dropped.
	data = append(data, 1, 2, 3)
	out := Decode(data, 0.5, 100)
	require.Len(t, out, 2)
	for i := range out {
		assert.Equal(t, in[i].Org, out[i].Org)
		assert.Equal(t, in[i].Dir, out[i].Dir)
		assert.Equal(t, float32(0.5), out[i].TMin)
		assert.Equal(t, float32(100), out[i].TMax)
	}
}

func TestFbuf(t *testing.T) {
	values := []float32{0, 1.5, -2, 1e9}
	assert.Equal(t, values, DecodeFbuf(EncodeFbuf(values)))
	assert.Empty(t, DecodeFbuf([]byte{1, 2}))

	hits := []types.Hit{{TriID: 3, TMax: 2.5}, types.MissFor(types.Ray{TMax: 1e9})}
	assert.Equal(t, []float32{2.5, 1e9}, HitDistances(hits))
}

func TestDiff(t *testing.T) {
	type spec struct {
		a, b     []float32
		expCount int
		expAvg   float32
	}
	specs := []spec{
		{[]float32{1, 2, 3}, []float32{1, 2, 3}, 0, 0},
		{[]float32{1, 2, 3}, []float32{1, 4, 2}, 2, 1.5},
		{nil, nil, 0, 0},
	}

	for specIndex, s := range specs {
		res, err := Diff(s.a, s.b)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
		}
		if res.Count != s.expCount || res.AvgError != s.expAvg {
			t.Fatalf("[spec %d] expected %d differences with avg error %f; got %d and %f", specIndex, s.expCount, s.expAvg, res.Count, res.AvgError)
		}
		if len(res.Values) != len(s.a) {
			t.Fatalf("[spec %d] expected %d diff values; got %d", specIndex, len(s.a), len(res.Values))
		}
	}

	_, err := Diff([]float32{1}, nil)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestPrimary(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 90, 2)
	assert.InDelta(t, -1, cam.Dir[2], 1e-6)
	assert.InDelta(t, 2, cam.Right.Len(), 1e-5)
	assert.InDelta(t, 1, cam.Up.Len(), 1e-5)
	assert.InDelta(t, 1, cam.Up[1], 1e-5)

	out := Primary(cam, 4, 2)
	require.Len(t, out, 8)
	for _, r := range out {
		assert.Equal(t, types.XYZ(0, 0, 5), r.Org)
		assert.Equal(t, DefaultTMax, r.TMax)
	}

	// Top-left pixel points up and to the left.
	first := out[0].Dir
	assert.InDelta(t, -2, first[0], 1e-5)
	assert.InDelta(t, 1, first[1], 1e-5)
	assert.InDelta(t, -1, first[2], 1e-5)
}

func TestRandom(t *testing.T) {
	bounds := types.BBox{Min: types.XYZ(-1, 0, 2), Max: types.XYZ(1, 4, 3)}
	a := Random(bounds, 100, 42)
	b := Random(bounds, 100, 42)
	require.Len(t, a, 100)
	assert.Equal(t, a, b)

	for _, r := range a {
		for _, p := range []types.Vec3{r.Org, r.At(1)} {
			for axis := 0; axis < 3; axis++ {
				assert.True(t, p[axis] >= bounds.Min[axis]-1e-5 && p[axis] <= bounds.Max[axis]+1e-5, "point %v outside bounds", p)
			}
		}
	}
	assert.NotEqual(t, a, Random(bounds, 100, 43))
}

func TestShadow(t *testing.T) {
	primary := []types.Ray{{Org: types.XYZ(0, 0, 0), Dir: types.XYZ(0, 0, 1)}}
	out, err := Shadow(primary, []float32{2}, mgl32.Vec3{0, 5, 2})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, types.XYZ(0, 0, 2), out[0].Org)
	assert.Equal(t, types.XYZ(0, 5, 0), out[0].Dir)

	_, err = Shadow(primary, nil, mgl32.Vec3{})
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestParseVec3(t *testing.T) {
	v, err := ParseVec3("1, -2.5,3")
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, -2.5, 3}, v)

	for _, bad := range []string{"", "1,2", "1,2,x", "1,2,3,4"} {
		_, err := ParseVec3(bad)
		assert.Error(t, err, bad)
	}
}
