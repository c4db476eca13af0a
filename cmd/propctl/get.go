package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/propd/internal/propapi"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Read a single property's value",
		Args:  cobra.ExactArgs(1),
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
			value, _, err := reader.Get(args[0], principal)
			if err != nil {
				return err
			}
			if value == nil {
				return fmt.Errorf("propctl: %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(value))
			return nil
		},
	}
}
