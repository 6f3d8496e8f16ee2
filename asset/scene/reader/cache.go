package reader

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset"
	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/log"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrNotACache      = errors.New("cacheReader: not an accel cache")
	ErrDigestMismatch = errors.New("cacheReader: digest mismatch")
)

type cacheReader struct {
	logger log.Logger
}

// Create a new accel cache reader.
func newCacheReader() *cacheReader {
	return &cacheReader{
		logger: log.New("cache reader"),
	}
}

// Read accel from a compressed cache file and verify its digest.
func (p *cacheReader) Read(res *asset.Resource) (*scene.Accel, error) {
	p.logger.Noticef(`parsing accel cache from "%s"`, res.Path())
	start := time.Now()

	data, err := res.ReadAll()
	if err != nil {
		return nil, err
	}
	accel, err := Decode(data)
	if err != nil {
		return nil, err
	}

	p.logger.Noticef("loaded %s accel in %d ms", accel.Kind, time.Since(start).Nanoseconds()/1e6)
	return accel, nil
}

// Decode an in-memory cache image. The decoded accel is validated so that
// it can be traversed safely.
func Decode(data []byte) (*scene.Accel, error) {
	var hdr scene.CacheHeader
	if len(data) < binary.Size(hdr) {
		return nil, ErrNotACache
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != scene.CacheMagic {
		return nil, ErrNotACache
	}
	if hdr.Version != scene.CacheVersion {
		return nil, fmt.Errorf("cacheReader: unsupported cache version %d", hdr.Version)
	}

	zr, err := zstd.NewReader(bytes.NewReader(data[binary.Size(hdr):]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	accel := &scene.Accel{}
	if err = gob.NewDecoder(zr).Decode(accel); err != nil {
		return nil, fmt.Errorf("cacheReader: failed to decode accel: %s", err)
	}

	if digest := accel.Digest(); digest != hdr.Digest {
		return nil, fmt.Errorf("%w: expected %016x; got %016x", ErrDigestMismatch, hdr.Digest, digest)
	}

	// The digest only covers the file's own contents; indices still need
	// checking before the accel reaches a traversal kernel.
	if err = accel.Validate(); err != nil {
		return nil, err
	}
	return accel, nil
}
