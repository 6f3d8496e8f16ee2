package rays

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

// Size of a ray record in a ray stream file: origin and direction as 3 floats each.
const RecordSize = 24

var (
	ErrSizeMismatch = errors.New("rays: buffer sizes do not match")
)

var logger = log.New("rays")

// Decode a ray stream. The stream does not store the valid ray interval so
// every ray gets the supplied tmin and tmax. Trailing bytes that do not form
// a full record are ignored.
func Decode(data []byte, tmin, tmax float32) []types.Ray {
	count := len(data) / RecordSize
	if rem := len(data) % RecordSize; rem != 0 {
		logger.Warningf("ignoring %d trailing bytes after %d ray records", rem, count)
	}

	out := make([]types.Ray, count)
	for i := range out {
		rec := data[i*RecordSize:]
		out[i] = types.Ray{
			Org:  types.XYZ(f32At(rec, 0), f32At(rec, 1), f32At(rec, 2)),
			Dir:  types.XYZ(f32At(rec, 3), f32At(rec, 4), f32At(rec, 5)),
			TMin: tmin,
			TMax: tmax,
		}
	}
	return out
}

// Encode rays as a ray stream. Only the origin and direction are stored.
func Encode(rays []types.Ray) []byte {
	out := make([]byte, len(rays)*RecordSize)
	for i, r := range rays {
		rec := out[i*RecordSize:]
		for c := 0; c < 3; c++ {
			putF32(rec, c, r.Org[c])
			putF32(rec, 3+c, r.Dir[c])
		}
	}
	return out
}

// Write rays to w as a ray stream.
func Write(w io.Writer, rays []types.Ray) error {
	if _, err := w.Write(Encode(rays)); err != nil {
		return fmt.Errorf("rays: could not write ray stream: %s", err)
	}
	return nil
}

// Decode an fbuf file into one float per ray.
func DecodeFbuf(data []byte) []float32 {
	count := len(data) / 4
	if rem := len(data) % 4; rem != 0 {
		logger.Warningf("ignoring %d trailing bytes after %d fbuf values", rem, count)
	}

	out := make([]float32, count)
	for i := range out {
		out[i] = f32At(data, i)
	}
	return out
}

// Encode values as an fbuf file.
func EncodeFbuf(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		putF32(out, i, v)
	}
	return out
}

// Build the fbuf contents for a set of hits: the hit distance of each ray in
// input order (the ray tmax for misses).
func HitDistances(hits []types.Hit) []float32 {
	out := make([]float32, len(hits))
	for i, hit := range hits {
		out[i] = hit.TMax
	}
	return out
}

// The result of comparing two fbufs.
type DiffResult struct {
	// Per element absolute difference.
	Values []float32

	// Number of elements that differ.
	Count int

	// Average error over the differing elements.
	AvgError float32
}

// Compare two fbufs element by element.
func Diff(a, b []float32) (*DiffResult, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d values", ErrSizeMismatch, len(a), len(b))
	}

	res := &DiffResult{Values: make([]float32, len(a))}
	var sum float64
	for i := range a {
		d := float32(math.Abs(float64(a[i] - b[i])))
		res.Values[i] = d
		if d != 0 {
			res.Count++
			sum += float64(d)
		}
	}
	if res.Count > 0 {
		res.AvgError = float32(sum / float64(res.Count))
	}
	return res, nil
}

func f32At(data []byte, index int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[4*index:]))
}

func putF32(data []byte, index int, v float32) {
	binary.LittleEndian.PutUint32(data[4*index:], math.Float32bits(v))
}
