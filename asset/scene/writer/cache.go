package writer

import (
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/klauspost/compress/zstd"
)

type cacheWriter struct {
	logger log.Logger
	out    io.Writer
}

// Create a new cache writer.
func newCacheWriter(out io.Writer) *cacheWriter {
	return &cacheWriter{
		logger: log.New("cache writer"),
		out:    out,
	}
}

// Write the accel as a header followed by a zstd compressed gob stream.
func (w *cacheWriter) Write(accel *scene.Accel) error {
	start := time.Now()

	hdr := scene.CacheHeader{
		Magic:   scene.CacheMagic,
		Version: scene.CacheVersion,
		Digest:  accel.Digest(),
	}
	if err := binary.Write(w.out, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("cacheWriter: could not write header: %s", err)
	}

	zw, err := zstd.NewWriter(w.out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(zw).Encode(accel); err != nil {
		zw.Close()
		return fmt.Errorf("cacheWriter: could not encode %s accel: %s", accel.Kind, err)
	}
	if err = zw.Close(); err != nil {
		return err
	}

	w.logger.Noticef("wrote %s accel cache (digest %016x) in %d ms", accel.Kind, hdr.Digest, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Encode an accel into an in-memory cache image.
func Encode(accel *scene.Accel, out io.Writer) error {
	return newCacheWriter(out).Write(accel)
}
