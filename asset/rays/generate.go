package rays

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/achilleasa/raybench/types"
	"github.com/go-gl/mathgl/mgl32"
)

// Default interval assigned to generated rays.
const (
	DefaultTMin float32 = 0
	DefaultTMax float32 = 1e9
)

// A pinhole camera. Right and Up are scaled so that the image plane spans
// [-1, 1] along each of them at unit distance along Dir.
type Camera struct {
	Eye   mgl32.Vec3
	Dir   mgl32.Vec3
	Right mgl32.Vec3
	Up    mgl32.Vec3
}

// Create a camera looking from eye towards center. The fov is the vertical
// field of view in degrees and ratio is the image width / height.
func NewCamera(eye, center, up mgl32.Vec3, fov, ratio float32) Camera {
	f := float32(math.Tan(float64(mgl32.DegToRad(fov / 2))))
	dir := center.Sub(eye).Normalize()
	right := dir.Cross(up).Normalize().Mul(f * ratio)
	return Camera{
		Eye:   eye,
		Dir:   dir,
		Right: right,
		Up:    right.Cross(dir).Normalize().Mul(f),
	}
}

// Generate one primary ray per pixel in row-major order starting at the
// top-left corner of the image.
func Primary(cam Camera, width, height int) []types.Ray {
	out := make([]types.Ray, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			kx := 2*float32(x)/float32(width) - 1
			ky := 1 - 2*float32(y)/float32(height)
			dir := cam.Dir.Add(cam.Right.Mul(kx)).Add(cam.Up.Mul(ky))
			out = append(out, types.Ray{
				Org:  fromMgl(cam.Eye),
				Dir:  fromMgl(dir),
				TMin: DefaultTMin,
				TMax: DefaultTMax,
			})
		}
	}
	return out
}

// Generate count rays that connect two random points inside bounds. The
// direction is not normalized so the second point is reached at t = 1.
func Random(bounds types.BBox, count int, seed int64) []types.Ray {
	rng := rand.New(rand.NewSource(seed))
	min := toMgl(bounds.Min)
	ext := toMgl(bounds.Extents())

	point := func() mgl32.Vec3 {
		r := mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}
		return min.Add(mgl32.Vec3{ext[0] * r[0], ext[1] * r[1], ext[2] * r[2]})
	}

	out := make([]types.Ray, count)
	for i := range out {
		from := point()
		to := point()
		out[i] = types.Ray{
			Org:  fromMgl(from),
			Dir:  fromMgl(to.Sub(from)),
			TMin: DefaultTMin,
			TMax: DefaultTMax,
		}
	}
	return out
}

// Generate shadow rays from the hit points of a set of primary rays towards
// a point light. depth holds the hit distance of each primary ray.
func Shadow(primary []types.Ray, depth []float32, light mgl32.Vec3) ([]types.Ray, error) {
	if len(primary) != len(depth) {
		return nil, fmt.Errorf("%w: %d rays vs %d depth values", ErrSizeMismatch, len(primary), len(depth))
	}

	out := make([]types.Ray, len(primary))
	for i, r := range primary {
		org := toMgl(r.Org).Add(toMgl(r.Dir).Mul(depth[i]))
		out[i] = types.Ray{
			Org:  fromMgl(org),
			Dir:  fromMgl(light.Sub(org)),
			TMin: DefaultTMin,
			TMax: DefaultTMax,
		}
	}
	return out, nil
}

// Parse a vector in "x,y,z" format.
func ParseVec3(s string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("rays: invalid vector %q; expected x,y,z", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return v, fmt.Errorf("rays: invalid vector %q: %s", s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func toMgl(v types.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func fromMgl(v mgl32.Vec3) types.Vec3 {
	return types.XYZ(v[0], v[1], v[2])
}
