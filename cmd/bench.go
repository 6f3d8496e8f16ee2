package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/achilleasa/raybench/asset"
	"github.com/achilleasa/raybench/asset/rays"
	"github.com/achilleasa/raybench/asset/scene/reader"
	"github.com/achilleasa/raybench/renderer"
	"github.com/urfave/cli"
)

// Trace a ray stream against an accel and report timings.
func RunBenchmark(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return errors.New("expected accel and ray file arguments")
	}

	ropts, err := readerOptions(ctx)
	if err != nil {
		return err
	}
	accel, err := reader.ReadAccel(ctx.Args().Get(0), ropts)
	if err != nil {
		return err
	}

	rayList, err := readRays(ctx.Args().Get(1), float32(ctx.Float64("tmin")), float32(ctx.Float64("tmax")))
	if err != nil {
		return err
	}

	opts := renderer.Options{
		Times:   ctx.Int("times"),
		DryRuns: ctx.Int("dry-runs"),
		Kernel:  ctx.String("kernel"),
		Device:  ctx.String("device"),
		Workers: ctx.Int("tracers"),
	}

	r, err := renderer.NewDefault(accel, rayList, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err = r.Render(runCtx); err != nil {
		return err
	}

	// Display stats
	stats := r.Stats()
	logger.Noticef("run %s statistics\n%s", stats.RunID, stats.Table())

	out := ctx.String("out")
	if err = asset.WriteFile(out, rays.EncodeFbuf(rays.HitDistances(r.Hits()))); err != nil {
		return err
	}
	logger.Noticef("wrote hit distances to %s", out)
	return nil
}
