package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/propd/internal/propapi"
)

func newListCmd() *cobra.Command {
	var areaFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every accessible property, optionally restricted to one area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			r, err := buildRouter(cfg, false)
			if err != nil {
				return err
			}
			defer r.Close()

			reader := propapi.NewReaderAPI(r)
			reader.Foreach(principal, func(label string, name, value []byte, serial uint32) bool {
				if areaFilter != "" && label != areaFilter {
					return true
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s=%s\n", label, name, value)
				return true
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&areaFilter, "area", "", "restrict listing to this context's label")
	return cmd
}
