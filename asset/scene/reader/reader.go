package reader

import (
	"fmt"

	"github.com/achilleasa/raybench/asset"
	"github.com/achilleasa/raybench/asset/scene"
)

// The Reader interface is implemented by all accel readers.
type Reader interface {
	// Read and prepare a traversal-ready accel from a resource.
	Read(*asset.Resource) (*scene.Accel, error)
}

// Options that control how an accel is prepared from a tree container.
type Options struct {
	// The accel to prepare. If zero, the first BVH or MBVH block found in
	// the container is used.
	Kind scene.Kind

	// Grid resolution; used when Kind is KindGrid.
	GridDims [3]int

	// Goroutines used by the grid builder.
	Workers int
}

// Read accel from file. Files with an .accel extension are treated as
// compiled caches; anything else is parsed as a tree container.
func ReadAccel(filename string, opts Options) (*scene.Accel, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	// Select reader based on file extension
	var reader Reader
	switch res.Ext() {
	case ".accel":
		if opts.Kind != 0 {
			return nil, fmt.Errorf("readAccel: accel caches can not be converted to a different accel kind")
		}
		reader = newCacheReader()
	default:
		reader = newContainerReader(opts)
	}
	return reader.Read(res)
}
