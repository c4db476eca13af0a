package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/propd/benchmarks"
)

func newBenchCmd() *cobra.Command {
	var pattern, format string
	cmd := &cobra.Command{
		Use:   "bench [packages...]",
		Short: "Run the store's Go benchmarks and check them against PRD targets",
		Long:  "bench shells out to `go test -bench` for each named package (defaulting to the propapi and propwait packages) and reports results, optionally checked against the built-in PRD targets.",
		RunE: func(cmd *cobra.Command, args []string) error {
			packages := args
			if len(packages) == 0 {
				packages = []string{
					"github.com/oba-ldap/propd/internal/propapi",
					"github.com/oba-ldap/propd/internal/propwait",
				}
			}

			report, err := benchmarks.RunBenchmarks(packages, pattern)
			if err != nil {
				return fmt.Errorf("propctl: bench: %w", err)
			}
			report.SetSystemInfo(runtime.Version(), runtime.GOOS, runtime.GOARCH)

			out := cmd.OutOrStdout()
			switch format {
			case "markdown":
				return report.GenerateMarkdownReport(out)
			case "json":
				return report.GenerateJSONReport(out)
			default:
				return report.GenerateTextReport(out)
			}
		},
	}
	cmd.Flags().StringVar(&pattern, "run", ".", "benchmark name pattern passed to -bench")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, markdown, or json")
	return cmd
}
