package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightdream/redismanager/bootstrap"
	"github.com/lightdream/redismanager/config"
	"github.com/lightdream/redismanager/observability"
	"github.com/lightdream/redismanager/platform"
	"github.com/lightdream/redismanager/version"
)

type cli struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "redismanager",
		Short:         "Event bus over Redis pub/sub",
		Long:          "redismanager runs bus nodes and sends events to them over a shared Redis channel.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file path (default: ./config/config.yml or ./config.yml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", ".env file path (default: ./.env.redis-manager or ./.env)")

	root.AddCommand(
		c.listenCmd(),
		c.pingCmd(),
		c.sendCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads the config file, the .env file and REDIS_MANAGER_* variables.
func (c *cli) load() (*Config, error) {
	var opts []config.LoaderOption
	if c.configFile != "" {
		if _, err := os.Stat(c.configFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	if c.envFile != "" {
		if _, err := os.Stat(c.envFile); err != nil {
			return nil, fmt.Errorf("env file: %w", err)
		}
		opts = append(opts, config.WithEnvFile(c.envFile))
	}

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newApp builds the application with the platform component registered
// and telemetry installed.
func newApp(ctx context.Context, cfg *Config) (*bootstrap.App[*Config], *platform.Component, error) {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, nil, err
	}

	shutdown, err := observability.Setup(ctx, cfg.Observability, cfg.Name, version.Short(), cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("observability: %w", err)
	}
	app.OnStop(func(ctx context.Context) error { return shutdown(ctx) })

	p, err := platform.New(cfg.Platform, app.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := app.RegisterComponent(p); err != nil {
		return nil, nil, err
	}
	return app, p, nil
}
