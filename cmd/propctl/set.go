package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oba-ldap/propd/internal/propapi"
	"github.com/oba-ldap/propd/internal/propconfig"
	"github.com/oba-ldap/propd/internal/wireclient"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Set a property, talking the daemon's wire protocol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, value := args[0], args[1]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			version := cfg.Wire.Version
			if version == 0 {
				version = detectWireVersion(cfg)
			}

			// A correlation ID tags this call's log lines across the
			// client and (if it logs too) the daemon; it is never
			// placed on the wire, which speaks its own fixed framing
			// only.
			reqLog := log.WithCorrelationID(uuid.NewString())
			reqLog.Info("propctl: set", "name", name, "version", version)

			client := wireclient.New(cfg.Wire.SocketPath, version, wireclient.WithLogger(reqLog))
			if err := client.Set(name, value); err != nil {
				reqLog.Error("propctl: set failed", "name", name, "err", err)
				return fmt.Errorf("propctl: set %q: %w", name, err)
			}
			return nil
		},
	}
}

// detectWireVersion reads ro.property_service.version through the
// read-only router the same way any other client process would, since
// the daemon itself never answers that question over the wire.
func detectWireVersion(cfg *propconfig.Config) int {
	r, err := buildRouter(cfg, false)
	if err != nil {
		return 1
	}
	defer r.Close()

	reader := propapi.NewReaderAPI(r)
	value, _, err := reader.Get(wireclient.VersionProperty, principal)
	if err != nil || value == nil {
		return 1
	}
	return wireclient.SelectVersion(string(value))
}
