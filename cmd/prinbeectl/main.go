// Command prinbeectl is a small operational CLI over the storage core:
// it inspects and compares on-disk table schemas and renders page-file
// sync-latency metrics, exercising the config/logging/schema stack end
// to end the way an operator would.
package main

import (
	"os"

	"github.com/prinbee/prinbee-core/internal/vlog"
	"github.com/spf13/cobra"
)

var log = vlog.Default()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prinbeectl",
		Short: "Inspect and operate on prinbee table storage",
	}
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newMetricsCmd())
	return root
}
