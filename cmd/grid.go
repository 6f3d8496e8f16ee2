package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset"
	"github.com/achilleasa/raybench/asset/compiler/grid"
	"github.com/achilleasa/raybench/asset/format"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Build a uniform grid from the mesh block of a container and report its
// statistics.
func BuildGrid(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing container file argument")
	}

	dims, err := parseDims(ctx.String("grid-dims"))
	if err != nil {
		return err
	}

	data, err := asset.ReadAll(ctx.Args().First())
	if err != nil {
		return err
	}
	mesh, err := format.ReadMesh(data)
	if err != nil {
		return err
	}
	tris, err := mesh.Triangles()
	if err != nil {
		return err
	}

	start := time.Now()
	g, err := grid.Build(tris, grid.Options{Dims: dims, Workers: ctx.Int("workers")})
	if err != nil {
		return err
	}
	buildTime := time.Since(start)

	stats := grid.Stats(g)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"Triangles", fmt.Sprint(len(tris))})
	table.Append([]string{"Dimensions", fmt.Sprintf("%dx%dx%d", g.Dims[0], g.Dims[1], g.Dims[2])})
	table.Append([]string{"Bounds", fmt.Sprintf("%v - %v", g.Bounds.Min, g.Bounds.Max)})
	table.Append([]string{"Cells", fmt.Sprint(stats.Cells)})
	table.Append([]string{"Empty cells", fmt.Sprint(stats.EmptyCells)})
	table.Append([]string{"References", fmt.Sprint(stats.References)})
	table.Append([]string{"Max refs per cell", fmt.Sprint(stats.MaxRefs)})
	table.Append([]string{"Avg refs per used cell", fmt.Sprintf("%.2f", stats.AvgRefs)})
	table.SetFooter([]string{"Build time", buildTime.String()})
	table.Render()

	logger.Noticef("grid statistics\n%s", buf.String())
	return nil
}
