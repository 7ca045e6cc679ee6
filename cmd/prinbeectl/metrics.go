package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prinbee/prinbee-core/page"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Render page-file operational metrics",
	}
	cmd.AddCommand(newMetricsDemoCmd())
	return cmd
}

// newMetricsDemoCmd feeds a page.Metrics histogram with a synthetic sync
// workload and charts the resulting latency quantile curve, the same
// shape a real deployment would get by wiring Metrics into page.File
// and letting actual Sync calls record latencies.
func newMetricsDemoCmd() *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Chart a synthetic sync-latency quantile curve",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			m := page.NewMetrics(reg, "prinbee", "prinbeectl_demo")

			rng := rand.New(rand.NewSource(1))
			for i := 0; i < samples; i++ {
				micros := time.Duration(rng.ExpFloat64()*500) * time.Microsecond
				m.ObserveSyncLatency(micros)
			}

			var series []float64
			for q := 5.0; q <= 99.0; q += 5.0 {
				series = append(series, float64(m.SyncLatencyQuantile(q)))
			}

			plot := asciigraph.Plot(series, asciigraph.Height(12), asciigraph.Caption("sync latency (us) by percentile, 5-95 step 5"))
			fmt.Println(plot)
			return nil
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 10000, "number of synthetic sync observations to feed the histogram")
	return cmd
}
