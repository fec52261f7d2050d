package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
	"github.com/couchcryptid/epa-data-etl/internal/sink"
	"github.com/couchcryptid/epa-data-etl/internal/tabular"
)

const (
	// DefaultAirNowURL is the AirNow observation data endpoint.
	DefaultAirNowURL = "https://www.airnowapi.org/aq/data/"
	// DefaultBBox covers the contiguous US, Alaska panhandle and southern
	// Canada.
	DefaultBBox = "-140.58788,20.634217,-60.119132,60.453505"
)

// AirNowConfig describes one AirNow download: a pollutant, the credentials
// and the destination file.
type AirNowConfig struct {
	Parameter   domain.Pollutant
	APIKey      string
	Destination string
	URL         string
	BBox        string
}

// Validate checks required fields and fills defaults.
func (c *AirNowConfig) Validate() error {
	if c.APIKey == "" {
		return domain.ConfigError("AirNow API key was not found")
	}
	if c.Destination == "" {
		return domain.ConfigError("AirNow destination is required")
	}
	p, err := domain.ParsePollutant(string(c.Parameter))
	if err != nil {
		return err
	}
	c.Parameter = p
	if c.URL == "" {
		c.URL = DefaultAirNowURL
	}
	if c.BBox == "" {
		c.BBox = DefaultBBox
	}
	return nil
}

// Fetcher retrieves a response body, retrying until validate accepts it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values, validate func(body []byte) error) ([]byte, error)
}

// SiteResolver remembers the geography of monitoring sites.
type SiteResolver interface {
	Resolve(ctx context.Context, rows []domain.Record, siteColumn, xColumn, yColumn string) error
	Lookup(siteID string) (domain.SiteDescriptor, bool)
}

// AirNowOptions holds the optional collaborators of an AirNowDownloader.
type AirNowOptions struct {
	// Pacer spaces day requests. Nil disables pacing.
	Pacer     *Pacer
	QC        QualityChecker
	Publisher Publisher
	Uploader  Uploader
}

// AirNowDownloader fetches AirNow observations one day at a time, reduces
// them to one row per site, adds geography and keys, and appends them to a
// single destination file.
type AirNowDownloader struct {
	readiness
	cfg       AirNowConfig
	fetcher   Fetcher
	sites     SiteResolver
	pacer     *Pacer
	qc        QualityChecker
	publisher Publisher
	uploader  Uploader
	counter   *domain.RecordCounter
	columns   []string
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewAirNowDownloader validates cfg and returns a downloader.
func NewAirNowDownloader(cfg AirNowConfig, fetcher Fetcher, sites SiteResolver, opts AirNowOptions, metrics *observability.Metrics, logger *slog.Logger) (*AirNowDownloader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AirNowDownloader{
		cfg:       cfg,
		fetcher:   fetcher,
		sites:     sites,
		pacer:     opts.Pacer,
		qc:        opts.QC,
		publisher: opts.Publisher,
		uploader:  opts.Uploader,
		counter:   domain.NewRecordCounter(),
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Reset removes the destination file.
func (d *AirNowDownloader) Reset() error {
	task := domain.DownloadTask{Destination: d.cfg.Destination}
	if err := task.Reset(); err != nil {
		return err
	}
	d.columns = nil
	return nil
}

// DownloadRange downloads every day from start to end inclusive. Any failed
// or empty day stops the range; days already written stay in the file.
func (d *AirNowDownloader) DownloadRange(ctx context.Context, start, end time.Time) error {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return domain.ConfigError("end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	d.metrics.PipelineRunning.Set(1)
	defer d.metrics.PipelineRunning.Set(0)

	d.logger.Info("airnow download started",
		"parameter", d.cfg.Parameter,
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"destination", d.cfg.Destination,
	)

	var last time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if d.pacer != nil {
			if err := d.pacer.Wait(ctx); err != nil {
				return err
			}
		}
		if !last.IsZero() && day.Month() != last.Month() {
			d.logger.Info("month complete", "month", last.Format("2006-01"))
		}
		if err := d.Download(ctx, day); err != nil {
			return err
		}
		last = day
	}
	d.logger.Info("airnow download completed", "last_day", last.Format(time.DateOnly), "records", d.counter.Issued())

	if d.uploader != nil {
		if err := d.uploader.Upload(ctx, d.cfg.Destination); err != nil {
			return fmt.Errorf("upload %s: %w", d.cfg.Destination, err)
		}
	}
	return nil
}

// Download fetches, processes and writes one day.
func (d *AirNowDownloader) Download(ctx context.Context, day time.Time) error {
	date := day.Format(time.DateOnly)
	raw, err := d.fetchDay(ctx, day)
	if err != nil {
		return fmt.Errorf("airnow %s: %w", date, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("airnow %s: %w", date, domain.ErrEmptyResponse)
	}

	rows, err := d.process(ctx, date, raw)
	if err != nil {
		return fmt.Errorf("airnow %s: %w", date, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("airnow %s: no rows with resolved sites: %w", date, domain.ErrEmptyResponse)
	}

	if err := d.write(rows); err != nil {
		return fmt.Errorf("airnow %s: %w", date, err)
	}
	d.metrics.DaysFetched.Inc()
	d.metrics.RowsWritten.WithLabelValues("airnow").Add(float64(len(rows)))
	d.markReady()
	publish(ctx, d.publisher, rows, d.logger)

	d.logger.Info("day written", "date", date, "observations", len(raw), "rows", len(rows))
	return nil
}

// fetchDay requests every window of the day and merges the arrays.
func (d *AirNowDownloader) fetchDay(ctx context.Context, day time.Time) ([]domain.Record, error) {
	date := day.Format(time.DateOnly)
	var merged []domain.Record
	for _, w := range d.cfg.Parameter.DayWindows() {
		params := url.Values{}
		params.Set("bbox", d.cfg.BBox)
		params.Set("format", "application/json")
		params.Set("datatype", "b")
		params.Set("verbose", "1")
		params.Set("parameters", d.cfg.Parameter.String())
		params.Set("API_KEY", d.cfg.APIKey)
		params.Set("startdate", date+w[0])
		params.Set("enddate", date+w[1])

		body, err := d.fetcher.Fetch(ctx, d.cfg.URL, params, validateJSONArray)
		if err != nil {
			return nil, err
		}
		rows, err := tabular.DecodeJSONArray(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}
	return merged, nil
}

// process aggregates raw observations by site and keeps the rows whose site
// has geography.
func (d *AirNowDownloader) process(ctx context.Context, date string, raw []domain.Record) ([]domain.Record, error) {
	if d.qc != nil {
		d.qc.Inspect(date, raw)
	}

	aggregated := AggregateBySite(raw, domain.ColumnFullAQSCode)
	if err := d.sites.Resolve(ctx, aggregated, domain.ColumnFullAQSCode, domain.ColumnLongitude, domain.ColumnLatitude); err != nil {
		return nil, err
	}

	out := make([]domain.Record, 0, len(aggregated))
	dropped := 0
	for _, row := range aggregated {
		site, ok := d.sites.Lookup(row.String(domain.ColumnFullAQSCode))
		if !ok {
			dropped++
			d.logger.Debug("site has no geography, dropping row", "site", row.String(domain.ColumnFullAQSCode))
			continue
		}
		rec := domain.ApplySite(row, site)
		if err := domain.AssignRecordKey(&rec, d.counter); err != nil {
			return nil, err
		}
		rec.Set(domain.ColumnMonitor, domain.AirNowMonitorKey(rec))
		out = append(out, rec)
	}
	if dropped > 0 {
		d.metrics.UnresolvedDropped.Add(float64(dropped))
	}
	return out, nil
}

func (d *AirNowDownloader) write(rows []domain.Record) error {
	if d.columns == nil {
		d.columns = rows[0].Columns()
	}
	if sink.FormatFor(d.cfg.Destination) == sink.FormatCSV {
		empty, err := sink.IsEmpty(d.cfg.Destination)
		if err != nil {
			return err
		}
		if empty {
			if err := d.writeHeader(); err != nil {
				return err
			}
		}
	}

	out, err := sink.OpenAppender(d.cfg.Destination)
	if err != nil {
		return err
	}
	if err := out.Write(rows, d.columns); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (d *AirNowDownloader) writeHeader() error {
	out, err := sink.OpenAppender(d.cfg.Destination)
	if err != nil {
		return err
	}
	if err := out.WriteHeader(d.columns); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

var errNotJSONArray = errors.New("response is not a JSON array")

func validateJSONArray(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
		return errNotJSONArray
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, t.Location())
}
