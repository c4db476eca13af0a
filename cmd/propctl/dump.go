package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/propd/internal/prop"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <area-file>",
		Short: "Walk a property area file offline, without a router or daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			area, err := prop.OpenReadOnly(path)
			if err != nil {
				return fmt.Errorf("propctl: opening %q: %w", path, err)
			}
			defer area.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s  global_serial=%d\n", path, area.GlobalSerial())
			area.Foreach(func(name, value []byte, serial uint32) bool {
				fmt.Fprintf(out, "%s=%s (serial=%d)\n", name, value, serial)
				return true
			})
			return nil
		},
	}
}
