package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/epa-data-etl/internal/adapter/remote"
	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/pipeline"
	"github.com/couchcryptid/epa-data-etl/internal/planner"
)

func newAQSCmd(bind binder) *cobra.Command {
	var (
		years       string
		parameters  []string
		aggregation string
		destination string
		baseURL     string
		mergeYears  bool
		status      bool
		reset       bool
	)

	cmd := &cobra.Command{
		Use:   "aqs",
		Short: "Download AQS pre-generated annual or daily files",
		Example: `  epa aqs --years 2015-2019 --merge-years --parameters 44201,88101
  epa aqs --aggregation daily --years 2020 --parameters pm25,ozone --destination data/
  epa aqs --years 2019 --status`,
	}

	cmd.RunE = bind(func(c *cobra.Command, _ []string, a *app) error {
		ctx := c.Context()
		cfg := &a.cfg.AQS

		ys, err := planner.ParseYears(years)
		if err != nil {
			return err
		}
		cfg.Years = ys
		if len(parameters) > 0 {
			cfg.Parameters = parameters
		}
		overrideString(&cfg.Aggregation, aggregation)
		overrideString(&cfg.Destination, destination)
		cfg.MergeYears = mergeYears
		cfg.Reset = reset
		if err := cfg.Validate(); err != nil {
			return err
		}

		agg, err := domain.ParseAggregation(cfg.Aggregation)
		if err != nil {
			return err
		}
		codes, err := planner.ParseParameters(cfg.Parameters)
		if err != nil {
			return err
		}
		tasks, err := planner.Plan(planner.Request{
			Aggregation: agg,
			Years:       cfg.Years,
			Parameters:  codes,
			MergeYears:  cfg.MergeYears,
			Destination: cfg.Destination,
			BaseURL:     baseURL,
		})
		if err != nil {
			return err
		}

		fetcher, err := a.fetcher()
		if err != nil {
			return err
		}
		d := pipeline.NewAQSDownloader(
			remote.NewRemoteSource(fetcher, "", a.logger),
			pipeline.AQSOptions{
				Stater:    fetcher,
				Publisher: a.publisher(),
				Uploader:  a.uploader(),
				BatchSize: cfg.BatchSize,
			},
			a.metrics, a.logger,
		)

		if status {
			statuses, err := d.Status(ctx, tasks)
			if err != nil {
				return err
			}
			return printStatus(c, statuses)
		}

		if cfg.Reset {
			for _, t := range tasks {
				if err := t.Reset(); err != nil {
					return err
				}
			}
		}
		if err := os.MkdirAll(cfg.Destination, 0o755); err != nil {
			return fmt.Errorf("create destination directory: %w", err)
		}

		if err := a.serve(d); err != nil {
			return err
		}
		return d.ExecuteAll(ctx, tasks)
	})

	f := cmd.Flags()
	f.StringVar(&years, "years", "", `years to download, e.g. "2015-2018,2020"`)
	f.StringSliceVar(&parameters, "parameters", nil, "parameter codes or names (no2, ozone, pm25, max_temp, min_temp); required for daily")
	f.StringVar(&aggregation, "aggregation", "", "annual or daily (env AQS_AGGREGATION)")
	f.StringVar(&destination, "destination", "", "output directory (env AQS_DESTINATION)")
	f.StringVar(&baseURL, "base-url", planner.DefaultBaseURL, "location of the AQS pre-generated files")
	f.BoolVar(&mergeYears, "merge-years", false, "combine consecutive years into one output file")
	f.BoolVar(&status, "status", false, "report which outputs are up to date and exit")
	f.BoolVar(&reset, "reset", false, "remove existing outputs before downloading")
	_ = cmd.MarkFlagRequired("years")
	_ = f.MarkHidden("base-url")
	return cmd
}

func printStatus(c *cobra.Command, statuses []pipeline.TaskStatus) error {
	tw := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, s := range statuses {
		state := "stale"
		if s.UpToDate {
			state = "up to date"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d sources\n", s.Task.Destination, state, len(s.Task.URLs))
	}
	return tw.Flush()
}
