package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/epa-data-etl/internal/config"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

// rootOptions are the process-level dependencies, swapped out in tests.
type rootOptions struct {
	metrics func() *observability.Metrics
	logOut  io.Writer
}

// runFunc is a subcommand body that receives the app built for its run.
type runFunc func(cmd *cobra.Command, args []string, a *app) error

// binder wraps a runFunc into a cobra RunE that loads config and builds the app.
type binder func(runFunc) func(*cobra.Command, []string) error

func newRootCmd() *cobra.Command {
	return newRootCmdWith(rootOptions{metrics: observability.NewMetrics, logOut: os.Stderr})
}

func newRootCmdWith(opts rootOptions) *cobra.Command {
	var logLevel, logFormat, httpAddr, proxy string

	cmd := &cobra.Command{
		Use:   "epa",
		Short: "Download EPA AQS and AirNow monitoring data",
		Long: `epa downloads EPA air quality data into append-only CSV or NDJSON files.

AQS bulk archives are planned per year segment and parameter, AirNow
observations are downloaded one day at a time and annotated with zip,
county and state identifiers from local shapefiles. Every row gets a
Monitor key and a per-file Record key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "", "log format: text or json (env LOG_FORMAT)")
	pf.StringVar(&httpAddr, "http-addr", "", "serve /healthz, /readyz and /metrics on this address (env HTTP_ADDR)")
	pf.StringVar(&proxy, "proxy", "", "HTTP proxy for external connections (env EPA_PROXY)")

	var bind binder = func(fn runFunc) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			overrideString(&cfg.LogLevel, logLevel)
			overrideString(&cfg.LogFormat, logFormat)
			overrideString(&cfg.HTTPAddr, httpAddr)
			overrideString(&cfg.Fetch.Proxy, proxy)

			a, err := newApp(cfg, opts.metrics(), opts.logOut)
			if err != nil {
				return err
			}
			defer a.close()
			return fn(c, args, a)
		}
	}

	cmd.AddCommand(
		newAQSCmd(bind),
		newAirNowCmd(bind),
		newExpandCmd(bind),
	)
	return cmd
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
