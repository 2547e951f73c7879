package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/primesieve/bootstrap"
	"github.com/kbukum/primesieve/cache"
	"github.com/kbukum/primesieve/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve primes over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			app, err := newServeApp(cfg)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port")
	return cmd
}

// newServeApp wires telemetry, the result cache and the HTTP server into an
// application.
func newServeApp(cfg *Config) (*bootstrap.App[*Config], error) {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, err
	}

	tel, err := newTelemetry(cfg)
	if err != nil {
		return nil, err
	}
	if err := app.RegisterComponent(tel); err != nil {
		return nil, err
	}

	opts := []server.PrimesOption{
		server.WithObserver(tel.SieveMetrics()),
		server.WithLogger(app.Logger),
	}
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return nil, err
		}
		if err := app.RegisterComponent(cache.NewComponent(c)); err != nil {
			return nil, err
		}
		opts = append(opts, server.WithCache(c))
	}

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware(cfg.Name, tel.Metrics())
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
	server.NewPrimesHandler(cfg.Server, cfg.Sieve, opts...).Register(srv.GinEngine())

	if cfg.Server.Enabled {
		if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
			return nil, err
		}
	} else {
		app.Logger.Warn("http server disabled")
	}
	return app, nil
}
