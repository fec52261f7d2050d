package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/epa-data-etl/internal/config"
	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/gis"
	"github.com/couchcryptid/epa-data-etl/internal/pipeline"
	"github.com/couchcryptid/epa-data-etl/internal/qc"
)

// defaultGeography is the set of columns appended to AirNow rows.
var defaultGeography = []string{
	domain.ColumnZCTA,
	domain.ColumnState,
	domain.ColumnFIPS5,
	domain.ColumnStateFP,
	domain.ColumnCountyFP,
	domain.ColumnCounty,
	domain.ColumnStateUSPS,
}

// qcDefault selects the embedded rule set.
const qcDefault = "default"

func newAirNowCmd(bind binder) *cobra.Command {
	var (
		parameter   string
		start, end  string
		destination string
		apiKey      string
		shapes      []string
		qcRules     string
		reset       bool
	)

	cmd := &cobra.Command{
		Use:   "airnow",
		Short: "Download AirNow observations day by day with geography",
		Example: `  epa airnow --parameter pm25 --start 2023-01-01 --end 2023-01-31 --destination pm25.csv.gz
  epa airnow --parameter ozone --start 2023-06-01 --destination ozone.json --qc`,
	}

	cmd.RunE = bind(func(c *cobra.Command, _ []string, a *app) error {
		cfg := &a.cfg.AirNow
		overrideString(&cfg.Parameter, parameter)
		overrideString(&cfg.Destination, destination)
		overrideString(&cfg.QC, qcRules)
		cfg.Reset = reset

		var err error
		if cfg.StartDate, err = parseDate("start", start); err != nil {
			return err
		}
		today := a.clock.Now()
		cfg.EndDate = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		if end != "" {
			if cfg.EndDate, err = parseDate("end", end); err != nil {
				return err
			}
		}

		creds, err := config.LookupCredentials(a.logger, config.SearchDirs()...)
		if err != nil {
			return err
		}
		cfg.APIKey = firstNonEmpty(apiKey, creds.APIKey)
		cfg.Shapes = shapes
		if len(cfg.Shapes) == 0 {
			cfg.Shapes = creds.Shapes
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		d, err := newAirNowDownloader(a)
		if err != nil {
			return err
		}
		if cfg.Reset {
			if err := d.Reset(); err != nil {
				return err
			}
		}
		if dir := filepath.Dir(cfg.Destination); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create destination directory: %w", err)
			}
		}

		if err := a.serve(d); err != nil {
			return err
		}
		return d.DownloadRange(c.Context(), cfg.StartDate, cfg.EndDate)
	})

	f := cmd.Flags()
	f.StringVar(&parameter, "parameter", "", "pollutant: pm25, pm10, ozone, no2, co, so2 (env AIRNOW_PARAMETER)")
	f.StringVar(&start, "start", "", "first day to download, YYYY-MM-DD")
	f.StringVar(&end, "end", "", "last day to download, YYYY-MM-DD (default today)")
	f.StringVar(&destination, "destination", "", "output file; .csv or .json, optionally .gz (env AIRNOW_DESTINATION)")
	f.StringVar(&apiKey, "api-key", "", "AirNow API key (env "+config.APIKeyEnv+" or .airnow.yaml)")
	f.StringSliceVar(&shapes, "shapes", nil, "zip and county shapefiles in lookup order")
	f.StringVar(&qcRules, "qc", "", "run quality checks; optionally the path of a YAML rule file (env AIRNOW_QC)")
	f.Lookup("qc").NoOptDefVal = qcDefault
	f.BoolVar(&reset, "reset", false, "remove the destination before downloading")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newAirNowDownloader(a *app) (*pipeline.AirNowDownloader, error) {
	cfg := a.cfg.AirNow

	fetcher, err := a.fetcher()
	if err != nil {
		return nil, err
	}
	annotator, err := gis.NewAnnotator(defaultGeography, gis.ShapefileLoader(cfg.Shapes, a.logger), a.metrics, a.logger)
	if err != nil {
		return nil, err
	}
	opts := pipeline.AirNowOptions{
		Pacer:     pipeline.NewPacer(cfg.PaceInterval, a.clock),
		Publisher: a.publisher(),
		Uploader:  a.uploader(),
	}
	if cfg.QC != "" {
		path := cfg.QC
		if path == qcDefault {
			path = ""
		}
		rules, err := qc.LoadRules(path)
		if err != nil {
			return nil, err
		}
		opts.QC = qc.NewChecker(rules, a.metrics, a.logger)
	}

	return pipeline.NewAirNowDownloader(
		pipeline.AirNowConfig{
			Parameter:   domain.Pollutant(cfg.Parameter),
			APIKey:      cfg.APIKey,
			Destination: cfg.Destination,
			URL:         cfg.URL,
		},
		fetcher,
		gis.NewSiteCache(annotator, a.metrics, a.logger),
		opts,
		a.metrics, a.logger,
	)
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, domain.ConfigError("%s date is required", name)
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, domain.ConfigError("invalid %s date %q, want YYYY-MM-DD", name, s)
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
