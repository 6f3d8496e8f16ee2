package device

import (
	"fmt"
	"reflect"
)

type Buffer struct {
	// Associated Device.
	device *Device

	// A name for identifying the buffer.
	name string

	// Allocated size.
	size int

	// Device side copy of the data.
	data reflect.Value
}

// Get buffer size.
func (b *Buffer) Size() int {
	return b.size
}

// Get buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Write data to the device buffer with a single bulk copy. The data must be
// a slice. On unified memory devices the buffer aliases the host slice.
func (b *Buffer) WriteData(data interface{}) error {
	src, dataLen, err := getSliceData(data)
	if err != nil {
		return fmt.Errorf("device (%s): could not write buffer %s: %w", b.device.Name, b.name, err)
	}

	b.Release()
	if err := b.device.reserve(dataLen); err != nil {
		return fmt.Errorf("device (%s): could not allocate buffer %s: %w", b.device.Name, b.name, err)
	}
	b.size = dataLen

	if b.device.Type == UnifiedDevice {
		b.data = src
		return nil
	}

	b.data = reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(b.data, src)
	return nil
}

// Get the device side data. The returned value has the same type as the
// slice passed to WriteData.
func (b *Buffer) Data() interface{} {
	if !b.data.IsValid() {
		return nil
	}
	return b.data.Interface()
}

// Release buffer.
func (b *Buffer) Release() {
	if b.data.IsValid() {
		b.device.release(b.size)
		b.data = reflect.Value{}
		b.size = 0
	}
}

// Given an interface{} containing a slice return its value and its length in bytes.
func getSliceData(data interface{}) (reflect.Value, int, error) {
	reflVal := reflect.ValueOf(data)
	if reflVal.Kind() != reflect.Slice {
		return reflect.Value{}, 0, ErrNotASlice
	}

	return reflVal, reflVal.Len() * int(reflVal.Type().Elem().Size()), nil
}
