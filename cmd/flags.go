package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/achilleasa/raybench/asset/scene"
)

// Parse an accel kind name. An empty string maps to the zero kind, which lets
// readers pick the kind from the input file.
func parseKind(name string) (scene.Kind, error) {
	switch strings.ToLower(name) {
	case "":
		return 0, nil
	case "bvh":
		return scene.KindBVH, nil
	case "mbvh":
		return scene.KindMBVH, nil
	case "grid":
		return scene.KindGrid, nil
	}
	return 0, fmt.Errorf("unknown accel kind %q; supported kinds: bvh, mbvh, grid", name)
}

// Parse grid dimensions in "x,y,z" format.
func parseDims(s string) ([3]int, error) {
	var dims [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return dims, fmt.Errorf("invalid grid dimensions %q; expected x,y,z", s)
	}
	for idx, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v <= 0 {
			return dims, fmt.Errorf("invalid grid dimensions %q; expected 3 positive integers", s)
		}
		dims[idx] = v
	}
	return dims, nil
}
