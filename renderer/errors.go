package renderer

import "errors"

var (
	ErrNoTracers         = errors.New("renderer: no tracers attached")
	ErrAccelNotDefined   = errors.New("renderer: no accel defined")
	ErrNoRays            = errors.New("renderer: no rays to trace")
	ErrInvalidIterations = errors.New("renderer: number of timed iterations must be positive")
	ErrInterrupted       = errors.New("renderer: interrupted while rendering")
)
