package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/olekukonko/tablewriter"
)

type TracerStat struct {
	// The tracer id.
	Id string

	// The batch size and the percentage of the ray buffer it represents.
	BatchSize   uint32
	RaysPercent float32

	// Trace time for assigned batch in the last iteration.
	TraceTime time.Duration
}

type RunStats struct {
	// A unique id for this benchmark run.
	RunID string

	// Run setup.
	Kernel  string
	Device  string
	Kind    scene.Kind
	Rays    int
	Times   int
	DryRuns int

	// Individual tracer stats.
	Tracers []TracerStat

	// Total time for all timed iterations.
	TotalTime time.Duration

	// Number of rays that hit something in the last iteration.
	Hits int
}

// Get the average time per timed iteration.
func (s RunStats) AvgTime() time.Duration {
	if s.Times == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Times)
}

// Get the number of traced rays per second over all timed iterations.
func (s RunStats) RaysPerSec() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.Rays) * float64(s.Times) / s.TotalTime.Seconds()
}

// Build a tabular representation of the run statistics.
func (s RunStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Batch size", "% of rays", "Trace time"})
	for _, stat := range s.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BatchSize),
			fmt.Sprintf("%02.1f %%", stat.RaysPercent),
			stat.TraceTime.String(),
		})
	}
	table.SetFooter([]string{
		fmt.Sprintf("%s / %s", s.Kernel, s.Kind),
		fmt.Sprintf("%d hits", s.Hits),
		fmt.Sprintf("%.0f rays/s", s.RaysPerSec()),
		fmt.Sprintf("%.3f ms", float64(s.TotalTime.Nanoseconds())/1e6),
	})

	table.Render()
	return buf.String()
}
