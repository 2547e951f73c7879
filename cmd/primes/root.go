package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/primesieve/bootstrap"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/observability"
	"github.com/kbukum/primesieve/report"
	"github.com/kbukum/primesieve/sieve"
	"github.com/kbukum/primesieve/version"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	logLevel   string
}

type runFlags struct {
	low       int64
	high      int64
	buffer    int
	transport string
	maxStages int
	limit     int
	format    string
	stats     bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	f := &runFlags{}

	rootCmd := &cobra.Command{
		Use:   "primes",
		Short: "Find primes with a concurrent chain of sieve stages",
		Long: "primes runs a chain of concurrent filter stages over the integers\n" +
			"below --high and prints every prime at or above --low.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrimes(cmd, g, f)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "Config file (default: search ./cmd/primes/config.yml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	flags := rootCmd.Flags()
	flags.Int64Var(&f.low, "low", 2, "Smallest prime to report")
	flags.Int64Var(&f.high, "high", 36, "Exclusive upper bound of the range")
	flags.IntVar(&f.buffer, "buffer", 16, "Capacity of each channel stream")
	flags.StringVar(&f.transport, "transport", "chan", "Stream transport: chan or pipe")
	flags.IntVar(&f.maxStages, "max-stages", 0, "Maximum number of stages, 0 for unbounded")
	flags.IntVar(&f.limit, "limit", 0, "Stop after this many primes, 0 for all")
	flags.StringVar(&f.format, "format", report.FormatLines, "Output format: lines, json or sse")
	flags.BoolVar(&f.stats, "stats", false, "Print per-stage statistics to stderr")

	rootCmd.AddCommand(
		newServeCmd(g),
		newFetchCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the config and applies the global flags.
func (g *globalFlags) load() (*Config, error) {
	cfg, err := loadConfig(g.configFile)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	return cfg, nil
}

// apply copies the flags the user set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *sieve.Config) {
	flags := cmd.Flags()
	if flags.Changed("low") {
		cfg.Low = f.low
	}
	if flags.Changed("high") {
		cfg.High = f.high
	}
	if flags.Changed("buffer") {
		cfg.Buffer = f.buffer
	}
	if flags.Changed("transport") {
		cfg.Transport = f.transport
	}
	if flags.Changed("max-stages") {
		cfg.MaxStages = f.maxStages
	}
	if flags.Changed("limit") {
		cfg.Limit = f.limit
	}
}

func runPrimes(cmd *cobra.Command, g *globalFlags, f *runFlags) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	// Defaults are applied by now, so an explicit --high 0 survives.
	f.apply(cmd, &app.Cfg.Sieve)

	tel, err := newTelemetry(cfg)
	if err != nil {
		return err
	}
	// stdout carries the primes.
	tel.WithWriter(cmd.ErrOrStderr())
	if err := app.RegisterComponent(tel); err != nil {
		return err
	}

	out, err := report.New(f.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		summary, err := sieve.Run(ctx, app.Cfg.Sieve, out.Sink(),
			sieve.WithLogger(app.Logger),
			sieve.WithObserver(tel.SieveMetrics()),
		)
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = ferr
		}
		if summary != nil {
			app.Logger.Info("run finished", logger.Fields(
				logger.FieldRunID, summary.RunID,
				"primes", summary.Primes,
				"stages", len(summary.Stages),
				"stopped", summary.Stopped,
				logger.FieldDuration, summary.Elapsed.Milliseconds(),
			))
			if f.stats {
				printStats(cmd.ErrOrStderr(), summary)
			}
		}
		return err
	})
}

func newTelemetry(cfg *Config) (*observability.Telemetry, error) {
	ver := cfg.Version
	if ver == "" {
		ver = version.Version
	}
	return observability.NewTelemetry(cfg.Telemetry, cfg.Name, ver, cfg.Environment)
}

func printStats(w io.Writer, s *sieve.Summary) {
	fmt.Fprintf(w, "run %s [%d, %d): %d primes, %d stages, %s\n",
		s.RunID, s.Low, s.High, s.Primes, len(s.Stages), s.Elapsed)
	for _, st := range s.Stages {
		fmt.Fprintf(w, "  stage %-4d base %-8d forwarded %-8d dropped %d\n",
			st.Index, st.Base, st.Forwarded, st.Dropped)
	}
}
