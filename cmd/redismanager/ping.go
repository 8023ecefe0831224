package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lightdream/redismanager/bus"
)

func (c *cli) pingCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ping <target>",
		Short: "Ping a node and print the round-trip time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateTarget(args[0]); err != nil {
				return err
			}
			cfg, err := c.load()
			if err != nil {
				return err
			}
			app, p, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				start := time.Now()
				pong, err := bus.CallTimeout[bus.Pong](ctx, p.Manager(), args[0], bus.Ping{}, timeout)
				if err != nil {
					return fmt.Errorf("ping %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pong from %s in %s\n", pong.ID, time.Since(start).Round(time.Microsecond))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "response timeout (default: bus.timeout)")
	return cmd
}
