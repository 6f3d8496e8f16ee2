package types

import "math"

// The bit pattern (negative zero) used to flag the end of a variable length
// leaf record inside packed triangle buffers.
const SentinelBits uint32 = 0x80000000

// Get the sentinel value as a float.
func Sentinel() float32 {
	return math.Float32frombits(SentinelBits)
}

// Returns true if f carries the sentinel bit pattern. A plain comparison
// cannot be used as -0 == 0.
func IsSentinel(f float32) bool {
	return math.Float32bits(f) == SentinelBits
}
