package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/raybench/asset/compiler/grid"
	"github.com/achilleasa/raybench/cmd"
	"github.com/achilleasa/raybench/renderer"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	defaultDims := fmt.Sprintf("%d,%d,%d", grid.DefaultDims[0], grid.DefaultDims[1], grid.DefaultDims[2])
	accelFlags := []cli.Flag{
		cli.StringFlag{
			Name:   "kind, k",
			Value:  "",
			Usage:  "accel to prepare from a container (bvh, mbvh or grid); defaults to the first tree block",
			EnvVar: "RAYBENCH_KIND",
		},
		cli.StringFlag{
			Name:   "grid-dims",
			Value:  defaultDims,
			Usage:  "grid resolution in x,y,z format",
			EnvVar: "RAYBENCH_GRID_DIMS",
		},
		cli.IntFlag{
			Name:   "workers",
			Value:  0,
			Usage:  "goroutines used by the grid builder (0 = number of CPUs)",
			EnvVar: "RAYBENCH_WORKERS",
		},
	}

	app := cli.NewApp()
	app.Name = "raybench"
	app.Usage = "benchmark ray traversal of acceleration structures"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:   "log-level",
			Value:  "",
			Usage:  "log level (debug, info, notice, warning, error); -v and -vv take precedence",
			EnvVar: "RAYBENCH_LOG_LEVEL",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "bench",
			Usage: "trace a ray stream against an accel",
			Description: `
Load an accel from a tree container (.bvh) or a compiled accel cache (.accel)
and a ray stream, then trace the rays a number of times and report timings.

The hit distance of each ray from the last iteration is written to an fbuf file.`,
			ArgsUsage: "accel_file ray_file",
			Flags: append([]cli.Flag{
				cli.Float64Flag{
					Name:   "tmin",
					Value:  0,
					Usage:  "min ray distance",
					EnvVar: "RAYBENCH_TMIN",
				},
				cli.Float64Flag{
					Name:   "tmax",
					Value:  1e9,
					Usage:  "max ray distance",
					EnvVar: "RAYBENCH_TMAX",
				},
				cli.IntFlag{
					Name:   "times, t",
					Value:  renderer.DefaultTimes,
					Usage:  "number of timed iterations",
					EnvVar: "RAYBENCH_TIMES",
				},
				cli.IntFlag{
					Name:   "dry-runs, d",
					Value:  renderer.DefaultDryRuns,
					Usage:  "number of untimed iterations",
					EnvVar: "RAYBENCH_DRY_RUNS",
				},
				cli.StringFlag{
					Name:   "kernel",
					Value:  "reference",
					Usage:  "traversal kernel",
					EnvVar: "RAYBENCH_KERNEL",
				},
				cli.StringFlag{
					Name:   "device",
					Value:  "",
					Usage:  "device name (see list-devices)",
					EnvVar: "RAYBENCH_DEVICE",
				},
				cli.IntFlag{
					Name:   "tracers",
					Value:  0,
					Usage:  "number of tracers (0 = one per device worker)",
					EnvVar: "RAYBENCH_TRACERS",
				},
				cli.StringFlag{
					Name:   "out, o",
					Value:  "output.fbuf",
					Usage:  "fbuf file for the hit distances",
					EnvVar: "RAYBENCH_OUTPUT",
				},
			}, accelFlags...),
			Action: cmd.RunBenchmark,
		},
		{
			Name:  "compile",
			Usage: "compile the mesh block of a container into BVH and MBVH blocks",
			Description: `
Read the mesh block of each container, build a BVH using the surface area
heuristic, collapse it into a 4-ary MBVH and write a container with the BVH,
MBVH and mesh blocks next to the input using a .bvh extension.`,
			ArgsUsage: "container1 container2 ...",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "leaf-size",
					Value: 4,
					Usage: "max triangles per BVH leaf",
				},
				cli.BoolFlag{
					Name:  "skip-mbvh",
					Usage: "do not emit an MBVH block",
				},
			},
			Action: cmd.CompileContainer,
		},
		{
			Name:      "grid",
			Usage:     "build a uniform grid from the mesh block of a container",
			ArgsUsage: "container",
			Flags:     accelFlags,
			Action:    cmd.BuildGrid,
		},
		{
			Name:      "flatten",
			Usage:     "flatten a container into a compressed accel cache",
			ArgsUsage: "container",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "",
					Usage: "cache file (defaults to the input name with a .<kind>.accel extension)",
				},
			}, accelFlags...),
			Action: cmd.FlattenAccel,
		},
		{
			Name:      "info",
			Usage:     "print accel statistics",
			ArgsUsage: "accel_file",
			Flags:     accelFlags,
			Action:    cmd.ShowInfo,
		},
		{
			Name:  "gen-primary",
			Usage: "generate primary rays for a pinhole camera",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "eye", Value: "0,0,-5", Usage: "camera position"},
				cli.StringFlag{Name: "center", Value: "0,0,0", Usage: "look-at point"},
				cli.StringFlag{Name: "up", Value: "0,1,0", Usage: "up vector"},
				cli.Float64Flag{Name: "fov", Value: 45, Usage: "vertical field of view in degrees"},
				cli.IntFlag{Name: "width", Value: 1024, Usage: "frame width"},
				cli.IntFlag{Name: "height", Value: 1024, Usage: "frame height"},
				cli.StringFlag{Name: "out, o", Value: "primary.rays", Usage: "ray file"},
			},
			Action: cmd.GenPrimaryRays,
		},
		{
			Name:      "gen-random",
			Usage:     "generate random rays inside the bounds of an accel",
			ArgsUsage: "accel_file",
			Flags: append([]cli.Flag{
				cli.IntFlag{Name: "count, n", Value: 1 << 20, Usage: "number of rays"},
				cli.Int64Flag{Name: "seed", Value: 0, Usage: "random seed (0 = time based)"},
				cli.StringFlag{Name: "out, o", Value: "random.rays", Usage: "ray file"},
			}, accelFlags...),
			Action: cmd.GenRandomRays,
		},
		{
			Name:      "gen-shadow",
			Usage:     "generate shadow rays from primary rays and their hit distances",
			ArgsUsage: "primary_ray_file depth_fbuf",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "light", Value: "0,10,0", Usage: "point light position"},
				cli.StringFlag{Name: "out, o", Value: "shadow.rays", Usage: "ray file"},
			},
			Action: cmd.GenShadowRays,
		},
		{
			Name:      "fbuf-diff",
			Usage:     "compare two fbuf files",
			ArgsUsage: "fbuf1 fbuf2",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out, o", Value: "", Usage: "optional fbuf file for the per element difference"},
			},
			Action: cmd.DiffFbuf,
		},
		{
			Name:   "list-devices",
			Usage:  "list available devices and kernels",
			Action: cmd.ListDevices,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
