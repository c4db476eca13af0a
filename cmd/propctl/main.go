// Command propctl is the operator CLI for the property store: it talks
// to the same router and wire client the read/write APIs use, so its
// get/set/list/wait/route/dump subcommands exercise real code paths
// rather than a separate debug-only implementation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	principal  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "propctl",
		Short:         "Inspect and control the process-wide property store",
		Long:          "propctl reads, writes, and inspects the property store through the same router and wire client the daemon and its readers use.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to propd.yaml (defaults built in if unset)")
	root.PersistentFlags().StringVar(&principal, "principal", "", "principal id presented to the label predicate")

	root.AddCommand(newGetCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newWaitCmd())
	root.AddCommand(newRouteCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newBenchCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
