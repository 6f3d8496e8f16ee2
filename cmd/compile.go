package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/achilleasa/raybench/asset"
	"github.com/achilleasa/raybench/asset/compiler"
	"github.com/achilleasa/raybench/asset/scene/reader"
	"github.com/achilleasa/raybench/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile the mesh block of each container argument into BVH and MBVH blocks.
func CompileContainer(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing container file argument")
	}

	opts := compiler.Options{
		MinLeafItems: ctx.Int("leaf-size"),
		SkipMBVH:     ctx.Bool("skip-mbvh"),
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		inFile := ctx.Args().Get(idx)
		logger.Noticef("compiling container: %s", inFile)

		data, err := asset.ReadAll(inFile)
		if err != nil {
			return err
		}

		out, err := compiler.Compile(data, opts)
		if err != nil {
			return err
		}

		outFile := replaceExt(inFile, ".bvh")
		if outFile == inFile {
			outFile = replaceExt(inFile, ".compiled.bvh")
		}
		if err = asset.WriteFile(outFile, out); err != nil {
			return err
		}
		logger.Noticef("wrote %s", outFile)
	}

	return nil
}

// Flatten a container into a compiled accel cache.
func FlattenAccel(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing container file argument")
	}

	opts, err := readerOptions(ctx)
	if err != nil {
		return err
	}

	inFile := ctx.Args().First()
	accel, err := reader.ReadAccel(inFile, opts)
	if err != nil {
		return err
	}

	// Display accel info
	logger.Noticef("accel information:\n%s", accel.Stats())

	outFile := ctx.String("out")
	if outFile == "" {
		outFile = replaceExt(inFile, "."+accel.Kind.String()+".accel")
	}
	if err = writer.WriteAccel(accel, outFile); err != nil {
		return err
	}
	logger.Noticef("wrote %s", outFile)
	return nil
}

// Print the statistics of an accel source.
func ShowInfo(ctx *cli.Context) error {
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

	logger.Noticef("accel information:\n%s", accel.Stats())
	return nil
}

func readerOptions(ctx *cli.Context) (reader.Options, error) {
	var opts reader.Options
	var err error

	if opts.Kind, err = parseKind(ctx.String("kind")); err != nil {
		return opts, err
	}
	if opts.GridDims, err = parseDims(ctx.String("grid-dims")); err != nil {
		return opts, err
	}
	opts.Workers = ctx.Int("workers")
	return opts, nil
}

func replaceExt(file, ext string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ext
}
