package scene

// The header that precedes the compressed payload of an accel cache file.
type CacheHeader struct {
	Magic   [4]byte
	Version uint32

	// Digest of the traversal arrays, used to verify the cache on load.
	Digest uint64
}

var (
	CacheMagic = [4]byte{'R', 'B', 'A', 'C'}
)

// Cache format version.
const CacheVersion = 1
