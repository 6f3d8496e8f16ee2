package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/raybench/tracer"
	"github.com/achilleasa/raybench/tracer/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available devices and kernels.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Device", "Type", "Workers", "Memory"})
	for _, dev := range device.GetDevices(device.AllDevices) {
		memLimit := "unlimited"
		if dev.MemLimit > 0 {
			memLimit = fmt.Sprintf("%d bytes", dev.MemLimit)
		}
		table.Append([]string{dev.Name, dev.Type.String(), fmt.Sprint(dev.Workers), memLimit})
	}
	table.Render()

	buf.WriteString(fmt.Sprintf("\nAvailable kernels: %v\n", tracer.Kernels()))
	logger.Notice("\n" + buf.String())
	return nil
}
