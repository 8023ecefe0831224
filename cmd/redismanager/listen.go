package main

import (
	"github.com/spf13/cobra"

	"github.com/lightdream/redismanager/server"
)

func (c *cli) listenCmd() *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run a node that answers pings until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.HTTP.Enabled = true
				cfg.HTTP.Addr = httpAddr
			}

			app, _, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if cfg.HTTP.Enabled {
				srv := server.New(cfg.HTTP, app.Logger)
				srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)
				if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
					return err
				}
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve /health and /version on host:port")
	return cmd
}
