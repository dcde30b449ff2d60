package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/strand-ui/strand/pkg/strand"
)

func benchCmd() *cobra.Command {
	var (
		widths  []int
		heights []int
		iters   int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark propagation latency",
		Long: `Benchmark write-to-effect propagation latency over memo grids.

For each width x height combination one source cell fans out into
width chains of height stacked memos, each chain terminated by an
effect. The reported time is a single source write propagating
through the whole grid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(widths, heights, iters)
		},
	}

	cmd.Flags().IntSliceVar(&widths, "widths", []int{1, 10, 100}, "grid widths to benchmark")
	cmd.Flags().IntSliceVar(&heights, "heights", []int{1, 10, 100}, "grid heights to benchmark")
	cmd.Flags().IntVar(&iters, "iters", 100, "writes per grid")

	return cmd
}

func runBench(widths, heights []int, iters int) error {
	if iters <= 0 {
		return fmt.Errorf("iters must be positive, got %d", iters)
	}

	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("Strand propagate, %s writes per grid", humanize.Comma(int64(iters))))
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "effects", "avg", "min", "p75", "p99", "max"})

	for _, w := range widths {
		for _, h := range heights {
			calc, runs := benchGrid(w, h, iters)
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					humanize.Comma(int64(runs)),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	tbl.Render()
	return nil
}

// benchGrid times iters writes through a width x height memo grid and returns
// the latency percentiles plus the total effect runs performed.
func benchGrid(width, height, iters int) (*tachymeter.Metrics, uint64) {
	rt := strand.NewRuntime()
	defer rt.Dispose()

	src := buildGrid(rt, width, height)

	// One warm-up write so every memo has computed once.
	src.Update(func(n int) int { return n + 1 })
	base := rt.Stats().EffectRuns

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		src.Update(func(n int) int { return n + 1 })
		tach.AddTime(time.Since(start))
	}

	return tach.Calc(), rt.Stats().EffectRuns - base
}

// buildGrid wires width chains of height stacked memos onto one source cell,
// each chain observed by an effect, and returns the source.
func buildGrid(rt *strand.Runtime, width, height int) *strand.Cell[int] {
	src := strand.NewCell(rt, 1)

	for i := 0; i < width; i++ {
		last := func() int { return src.Get() }
		for j := 0; j < height; j++ {
			prev := last
			m := strand.NewMemo(rt, func() int { return prev() + 1 })
			last = m.Get
		}

		read := last
		strand.CreateEffect(rt, func() strand.Cleanup {
			_ = read()
			return nil
		})
	}

	return src
}
