package tracer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/types"
)

var (
	ErrUnknownKernel    = errors.New("tracer: unknown kernel")
	ErrUnsupportedAccel = errors.New("tracer: kernel does not support accel")
	ErrKernelRegistered = errors.New("tracer: kernel already registered")
	ErrSizeMismatch     = errors.New("tracer: ray and hit buffer sizes do not match")
	ErrNoTracers        = errors.New("tracer: no tracers attached")
)

// A Kernel intersects a batch of rays with a traversal-ready accel. For each
// ray i it must only write hits[i]; hits[i].TMax holds the closest distance
// accepted so far when Trace is called. The accel is shared between
// concurrent calls and must not be modified.
type Kernel interface {
	// Get kernel name.
	Name() string

	// Returns true if the kernel can traverse this kind of accel.
	Supports(scene.Kind) bool

	// Trace a batch of rays.
	Trace(accel *scene.Accel, rays []types.Ray, hits []types.Hit)
}

var (
	registryMutex sync.RWMutex
	registry      = make(map[string]Kernel)
)

// Register a kernel so it can be looked up by name.
func Register(k Kernel) error {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := registry[k.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrKernelRegistered, k.Name())
	}
	registry[k.Name()] = k
	return nil
}

// Look up a kernel by name.
func Lookup(name string) (Kernel, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	k, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKernel, name)
	}
	return k, nil
}

// Get the names of all registered kernels in sorted order.
func Kernels() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
