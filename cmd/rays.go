package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset"
	"github.com/achilleasa/raybench/asset/rays"
	"github.com/achilleasa/raybench/asset/scene/reader"
	"github.com/achilleasa/raybench/types"
	"github.com/urfave/cli"
)

// Generate primary rays for a pinhole camera.
func GenPrimaryRays(ctx *cli.Context) error {
	setupLogging(ctx)

	eye, err := rays.ParseVec3(ctx.String("eye"))
	if err != nil {
		return err
	}
	center, err := rays.ParseVec3(ctx.String("center"))
	if err != nil {
		return err
	}
	up, err := rays.ParseVec3(ctx.String("up"))
	if err != nil {
		return err
	}

	width, height := ctx.Int("width"), ctx.Int("height")
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	cam := rays.NewCamera(eye, center, up, float32(ctx.Float64("fov")), float32(width)/float32(height))
	return writeRays(ctx.String("out"), rays.Primary(cam, width, height))
}

// Generate random rays between pairs of points inside the bounds of an accel.
func GenRandomRays(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing accel file argument")
	}

	opts, err := readerOptions(ctx)
	if err != nil {
		return err
	}
	accel, err := reader.ReadAccel(ctx.Args().First(), opts)
	if err != nil {
		return err
	}

	seed := ctx.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
		logger.Infof("using random seed %d", seed)
	}

	return writeRays(ctx.String("out"), rays.Random(accel.Bounds, ctx.Int("count"), seed))
}

// Generate shadow rays from the hit points of primary rays towards a light.
func GenShadowRays(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return errors.New("expected primary ray and depth fbuf file arguments")
	}

	light, err := rays.ParseVec3(ctx.String("light"))
	if err != nil {
		return err
	}

	primary, err := readRays(ctx.Args().Get(0), rays.DefaultTMin, rays.DefaultTMax)
	if err != nil {
		return err
	}
	depthData, err := asset.ReadAll(ctx.Args().Get(1))
	if err != nil {
		return err
	}

	shadow, err := rays.Shadow(primary, rays.DecodeFbuf(depthData), light)
	if err != nil {
		return err
	}
	return writeRays(ctx.String("out"), shadow)
}

// Compare two fbuf files.
func DiffFbuf(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return errors.New("expected two fbuf file arguments")
	}

	var values [2][]float32
	for idx := range values {
		data, err := asset.ReadAll(ctx.Args().Get(idx))
		if err != nil {
			return err
		}
		values[idx] = rays.DecodeFbuf(data)
	}

	res, err := rays.Diff(values[0], values[1])
	if err != nil {
		return err
	}

	logger.Noticef("%d of %d values differ; average error %f", res.Count, len(res.Values), res.AvgError)
	if out := ctx.String("out"); out != "" {
		if err = asset.WriteFile(out, rays.EncodeFbuf(res.Values)); err != nil {
			return err
		}
		logger.Noticef("wrote difference buffer to %s", out)
	}
	return nil
}

func readRays(file string, tmin, tmax float32) ([]types.Ray, error) {
	data, err := asset.ReadAll(file)
	if err != nil {
		return nil, err
	}
	rayList := rays.Decode(data, tmin, tmax)
	logger.Infof("loaded %d rays from %s", len(rayList), file)
	return rayList, nil
}

func writeRays(file string, rayList []types.Ray) error {
	if err := asset.WriteFile(file, rays.Encode(rayList)); err != nil {
		return err
	}
	logger.Noticef("wrote %d rays to %s", len(rayList), file)
	return nil
}
