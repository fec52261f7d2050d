package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/epa-data-etl/internal/adapter/remote"
	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/pipeline"
	"github.com/couchcryptid/epa-data-etl/internal/planner"
)

func newExpandCmd(bind binder) *cobra.Command {
	var (
		output     string
		parameters []string
		reset      bool
	)

	cmd := &cobra.Command{
		Use:   "expand FILE...",
		Short: "Add Monitor and Record keys to already downloaded AQS files",
		Long: `expand reads local AQS zip or CSV files in the order given and appends
their rows, keyed and optionally filtered by parameter code, to one output
file.`,
		Example: `  epa expand --output ozone_2019.csv.gz --parameters ozone annual_conc_by_monitor_2019.zip`,
		Args:    cobra.MinimumNArgs(1),
	}

	cmd.RunE = bind(func(c *cobra.Command, args []string, a *app) error {
		codes, err := planner.ParseParameters(parameters)
		if err != nil {
			return err
		}
		task, err := domain.NewDownloadTask(output, args, codes)
		if err != nil {
			return err
		}
		if reset {
			if err := task.Reset(); err != nil {
				return err
			}
		}

		d := pipeline.NewAQSDownloader(remote.LocalSource{}, pipeline.AQSOptions{
			Publisher: a.publisher(),
			Uploader:  a.uploader(),
			BatchSize: a.cfg.AQS.BatchSize,
		}, a.metrics, a.logger)
		if err := a.serve(d); err != nil {
			return err
		}
		return d.Execute(c.Context(), task)
	})

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file; .csv or .json, optionally .gz")
	f.StringSliceVar(&parameters, "parameters", nil, "keep only these parameter codes or names")
	f.BoolVar(&reset, "reset", false, "remove the output before expanding")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
