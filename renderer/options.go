package renderer

// Default benchmark settings.
const (
	DefaultTimes   = 100
	DefaultDryRuns = 0
)

type Options struct {
	// Number of timed iterations.
	Times int

	// Number of untimed iterations executed before the timed ones.
	DryRuns int

	// The traversal kernel to use.
	Kernel string

	// Device selection.
	Device string

	// Number of tracers; if zero, one tracer per device worker is used.
	Workers int
}
