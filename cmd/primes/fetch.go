package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/primesieve/bootstrap"
	"github.com/kbukum/primesieve/client"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/report"
)

type fetchFlags struct {
	url    string
	low    int64
	high   int64
	limit  int
	format string
	stream bool
}

func newFetchCmd(g *globalFlags) *cobra.Command {
	f := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch primes from a running primes server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("url") {
				cfg.Client.BaseURL = f.url
			}
			return fetchPrimes(cmd, cfg, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.url, "url", "", "Server base URL")
	flags.Int64Var(&f.low, "low", 0, "Smallest prime to report")
	flags.Int64Var(&f.high, "high", 36, "Exclusive upper bound of the range")
	flags.IntVar(&f.limit, "limit", 0, "Stop after this many primes, 0 for all")
	flags.StringVar(&f.format, "format", report.FormatLines, "Output format: lines, json or sse")
	flags.BoolVar(&f.stream, "stream", false, "Use the streaming endpoint")
	return cmd
}

func fetchPrimes(cmd *cobra.Command, cfg *Config, f *fetchFlags) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	c, err := client.New(app.Cfg.Client, client.WithLogger(app.Logger))
	if err != nil {
		return err
	}
	out, err := report.New(f.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	q := client.Query{Low: f.low, High: f.high, Limit: f.limit}

	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		var err error
		sink := out.Sink()
		if f.stream {
			err = c.Stream(ctx, q, func(p int64) error { return sink(ctx, p) })
		} else {
			err = fetchList(ctx, app.Logger, c, q, sink)
		}
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = ferr
		}
		return err
	})
}

func fetchList(ctx context.Context, log *logger.Logger, c *client.Client, q client.Query, sink func(context.Context, int64) error) error {
	res, err := c.Primes(ctx, q)
	if err != nil {
		return err
	}
	for _, p := range res.Primes {
		if err := sink(ctx, p); err != nil {
			return err
		}
	}
	log.Info("fetched primes", logger.Fields(
		logger.FieldRunID, res.Meta.RunID,
		"count", res.Count,
		"cached", res.Meta.Cached,
		"stopped", res.Meta.Stopped,
	))
	return nil
}
