package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lightdream/redismanager/bus"
)

func (c *cli) sendCmd() *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send <target> <type> [json]",
		Short: "Publish a raw event, optionally waiting for the response",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateSendArgs(args[0], args[1], args[2:]); err != nil {
				return err
			}
			ev := bus.RawEvent{Type: args[1]}
			if len(args) == 3 {
				ev.Data = json.RawMessage(args[2])
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
				m := p.Manager()
				out := cmd.OutOrStdout()
				if !wait {
					if err := m.Notify(ctx, args[0], ev); err != nil {
						return err
					}
					fmt.Fprintf(out, "sent %s to %s\n", ev.Type, args[0])
					return nil
				}

				pending, err := m.SendAndWait(ctx, args[0], ev, timeout)
				if err != nil {
					return err
				}
				if pending.Response() == "" {
					fmt.Fprintln(out, "<nil>")
					return nil
				}
				fmt.Fprintf(out, "%s (%s)\n", pending.Response(), pending.ResponseType())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the response and print it")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "response timeout with --wait (default: bus.timeout)")
	return cmd
}
