package device

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
)

type DeviceType uint8

// Supported device types.
const (
	// Arrays are copied into device owned memory.
	CpuDevice DeviceType = 1 << iota

	// Device and host share memory; uploads are a no-op.
	UnifiedDevice

	AllDevices DeviceType = 0xFF
)

var (
	ErrNoSuchDevice = errors.New("device: no such device")
	ErrOutOfMemory  = errors.New("device: insufficient device memory")
	ErrNotASlice    = errors.New("device: only slices can be uploaded")
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case UnifiedDevice:
		return "Unified"
	}
	return "Other"
}

// A device that runs traversal kernels on host goroutines.
type Device struct {
	Name string
	Type DeviceType

	// Number of goroutines used for tracing.
	Workers int

	// Maximum number of bytes that can be uploaded; 0 means unlimited.
	MemLimit int

	mutex sync.Mutex
	used  int
}

// A list of devices.
type DeviceList []*Device

// Implements Stringer.
func (d *Device) String() string {
	memLimit := "unlimited"
	if d.MemLimit > 0 {
		memLimit = fmt.Sprintf("%d bytes", d.MemLimit)
	}
	return fmt.Sprintf(
		"Name: %s\nType: %s\nSpecs: %d workers, %s memory",
		d.Name,
		d.Type.String(),
		d.Workers,
		memLimit,
	)
}

// Get the number of bytes currently held by device buffers.
func (d *Device) Used() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.used
}

// Create a named buffer bound to this device.
func (d *Device) Buffer(name string) *Buffer {
	return &Buffer{
		device: d,
		name:   name,
	}
}

func (d *Device) reserve(size int) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.MemLimit > 0 && d.used+size > d.MemLimit {
		return fmt.Errorf("%w: %s needs %d bytes; %d of %d in use", ErrOutOfMemory, d.Name, size, d.used, d.MemLimit)
	}
	d.used += size
	return nil
}

func (d *Device) release(size int) {
	d.mutex.Lock()
	d.used -= size
	d.mutex.Unlock()
}

// Get the list of available devices matching the type mask.
func GetDevices(typeMask DeviceType) DeviceList {
	all := DeviceList{
		&Device{Name: "host", Type: CpuDevice, Workers: runtime.NumCPU()},
		&Device{Name: "unified", Type: UnifiedDevice, Workers: runtime.NumCPU()},
	}

	var out DeviceList
	for _, dev := range all {
		if dev.Type&typeMask != 0 {
			out = append(out, dev)
		}
	}
	return out
}

// Find a device by name.
func (dl DeviceList) Select(name string) (*Device, error) {
	for _, dev := range dl {
		if strings.EqualFold(dev.Name, name) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchDevice, name)
}
