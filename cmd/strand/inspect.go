package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/strand-ui/strand/pkg/devtools"
	"github.com/strand-ui/strand/pkg/strand"
)

func inspectCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the devtools API over a demo graph",
		Long: `Run a demo reactive graph with periodic writes and serve the
devtools inspection API:

  GET /graph    JSON graph snapshot
  GET /history  recorded write log
  GET /stats    runtime counters
  GET /metrics  Prometheus exposition
  GET /live     websocket snapshot stream`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(addr, interval)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":7878", "listen address")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "demo write interval")

	return cmd
}

func runInspect(addr string, interval time.Duration) error {
	logger := slog.Default().With("component", "inspect")

	recorder := devtools.NewRecorder(0)
	rt := strand.NewRuntime(strand.WithWriteHook(recorder.Hook))
	defer rt.Dispose()

	temperature := buildDemoGraph(rt, logger)

	// Demo driver: all writes enter through Dispatch so the runtime stays
	// confined while HTTP handlers snapshot it.
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if rt.IsDisposed() {
				return
			}
			rt.Dispatch(func() {
				temperature.Update(func(t float64) float64 {
					return t + rand.Float64()*2 - 1
				})
			})
		}
	}()

	srv := devtools.NewServer(rt,
		devtools.WithRecorder(recorder),
		devtools.WithLogger(logger),
	)

	logger.Info("devtools listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		return fmt.Errorf("devtools server: %w", err)
	}
	return nil
}

// buildDemoGraph assembles a small graph worth looking at: a temperature
// cell, smoothing memos, and a threshold-alert effect.
func buildDemoGraph(rt *strand.Runtime, logger *slog.Logger) *strand.Cell[float64] {
	temperature := strand.NewCell(rt, 20.0, strand.WithLabel("temperature"))

	rounded := strand.NewMemo(rt, func() int {
		return int(temperature.Get() + 0.5)
	}, strand.WithMemoLabel("rounded"))

	alert := strand.NewMemo(rt, func() bool {
		return rounded.Get() >= 25
	}, strand.WithMemoLabel("alert"))

	strand.CreateEffect(rt, func() strand.Cleanup {
		if alert.Get() {
			logger.Warn("temperature high", "rounded", rounded.Get())
		}
		return nil
	}, strand.WithEffectLabel("alert-log"))

	return temperature
}
