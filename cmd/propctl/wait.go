package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/propd/internal/propapi"
)

func newWaitCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait <name>",
		Short: "Block until a property's value changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

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
			handle, err := reader.Find(name, principal)
			if err != nil {
				return fmt.Errorf("propctl: wait %q: %w", name, err)
			}
			_, lastSeen, err := handle.Read()
			if err != nil {
				return fmt.Errorf("propctl: wait %q: %w", name, err)
			}

			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			// propctl runs in its own process with no shared
			// propwait.Broker to the daemon that owns this area, so
			// this polls directly rather than calling WaitAPI — the
			// same-process wake optimization only applies within one
			// process, per internal/propwait's documented boundary.
			value, serial, err := pollUntilChanged(ctx, handle, lastSeen)
			if err != nil {
				return fmt.Errorf("propctl: wait %q: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s (serial=%d)\n", name, value, serial)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")
	return cmd
}

func pollUntilChanged(ctx context.Context, handle interface {
	Read() ([]byte, uint32, error)
}, lastSeen uint32) ([]byte, uint32, error) {
	const interval = 50 * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		value, serial, err := handle.Read()
		if err != nil {
			return nil, 0, err
		}
		if serial != lastSeen {
			return value, serial, nil
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-ticker.C:
		}
	}
}
