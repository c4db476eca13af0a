package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/propd/internal/routecache"
)

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <name>",
		Short: "Print which area label a property name resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			r, err := buildRouter(cfg, false)
			if err != nil {
				return err
			}
			defer r.Close()

			cache, err := routecache.New()
			if err != nil {
				return fmt.Errorf("propctl: building route cache: %w", err)
			}
			defer cache.Close()

			if res, ok := cache.Get(name); ok {
				log.WithArea(res.Label).Debug("propctl: route cache hit", "name", name)
				fmt.Fprintln(cmd.OutOrStdout(), res.Label)
				return nil
			}

			label, ok := r.RouteLabel(name)
			if !ok {
				return fmt.Errorf("propctl: no area matches %q", name)
			}
			log.WithArea(label).Debug("propctl: routed", "name", name)
			cache.Put(name, routecache.Result{Label: label})
			fmt.Fprintln(cmd.OutOrStdout(), label)
			return nil
		},
	}
}
