package writer

import (
	"os"

	"github.com/achilleasa/raybench/asset/scene"
)

// The Writer interface is implemented by all accel writers.
type Writer interface {
	// Write a flattened acceleration structure.
	Write(*scene.Accel) error
}

// Write a flattened accel to a compressed cache file.
func WriteAccel(accel *scene.Accel, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	err = newCacheWriter(f).Write(accel)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}
