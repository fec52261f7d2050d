package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/epa-data-etl/internal/adapter/remote"
	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
	"github.com/couchcryptid/epa-data-etl/internal/sink"
	"github.com/couchcryptid/epa-data-etl/internal/tabular"
)

// DefaultBatchSize is the number of rows buffered between writes.
const DefaultBatchSize = 5000

// AQSOptions holds the optional collaborators of an AQSDownloader.
type AQSOptions struct {
	// Stater answers Last-Modified queries for the up-to-date check. Nil
	// disables the check, so every task runs.
	Stater    domain.SourceStater
	Publisher Publisher
	Uploader  Uploader
	BatchSize int
}

// AQSDownloader executes AQS download tasks: each URL is acquired through a
// Source, its single CSV table is read, keyed, filtered and appended to the
// task destination.
type AQSDownloader struct {
	readiness
	source    Source
	stater    domain.SourceStater
	publisher Publisher
	uploader  Uploader
	batchSize int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewAQSDownloader creates a downloader reading through source.
func NewAQSDownloader(source Source, opts AQSOptions, metrics *observability.Metrics, logger *slog.Logger) *AQSDownloader {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &AQSDownloader{
		source:    source,
		stater:    opts.Stater,
		publisher: opts.Publisher,
		uploader:  opts.Uploader,
		batchSize: batchSize,
		metrics:   metrics,
		logger:    logger,
	}
}

// TaskStatus reports whether a task's destination is current.
type TaskStatus struct {
	Task     domain.DownloadTask
	UpToDate bool
}

// Status checks every task against its sources without downloading.
func (d *AQSDownloader) Status(ctx context.Context, tasks []domain.DownloadTask) ([]TaskStatus, error) {
	if d.stater == nil {
		return nil, domain.ConfigError("status requires a source stater")
	}
	out := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, TaskStatus{Task: t, UpToDate: t.IsUpToDate(ctx, d.stater)})
	}
	return out, nil
}

// ExecuteAll runs tasks in order and stops at the first failure.
func (d *AQSDownloader) ExecuteAll(ctx context.Context, tasks []domain.DownloadTask) error {
	d.metrics.PipelineRunning.Set(1)
	defer d.metrics.PipelineRunning.Set(0)

	for i, t := range tasks {
		if err := d.Execute(ctx, t); err != nil {
			return err
		}
		d.logger.Info("task finished", "task", i+1, "of", len(tasks), "destination", t.Destination)
	}
	return nil
}

// Execute runs one task. A task whose destination is newer than all of its
// sources is skipped. Rows written before a failure stay in the destination.
func (d *AQSDownloader) Execute(ctx context.Context, task domain.DownloadTask) error {
	if d.stater != nil && task.IsUpToDate(ctx, d.stater) {
		d.logger.Info("destination is up to date, skipping", "destination", task.Destination)
		d.metrics.Tasks.WithLabelValues("skipped").Inc()
		return nil
	}

	start := time.Now()
	written, err := d.run(ctx, task)
	if err != nil {
		d.metrics.Tasks.WithLabelValues("failed").Inc()
		return fmt.Errorf("task %s: %w", task.Destination, err)
	}
	d.metrics.Tasks.WithLabelValues("completed").Inc()
	d.logger.Info("task completed",
		"destination", task.Destination,
		"rows", written,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if d.uploader != nil {
		if err := d.uploader.Upload(ctx, task.Destination); err != nil {
			return fmt.Errorf("upload %s: %w", task.Destination, err)
		}
	}
	return nil
}

func (d *AQSDownloader) run(ctx context.Context, task domain.DownloadTask) (written int, err error) {
	empty, err := sink.IsEmpty(task.Destination)
	if err != nil {
		return 0, err
	}
	if !empty {
		d.logger.Warn("destination is not empty, appending without header", "destination", task.Destination)
	}

	w := &aqsTaskWriter{
		d:           d,
		task:        task,
		transformer: NewRowTransformer(task, domain.NewRecordCounter()),
		needHeader:  empty,
	}
	defer func() {
		if cerr := w.close(); cerr != nil && err == nil {
			err = cerr
		}
		written = w.written
	}()

	for _, u := range task.URLs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := w.copyFrom(ctx, u); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// aqsTaskWriter carries the state of one task across its URLs: the open
// destination, the header columns and the current batch.
type aqsTaskWriter struct {
	d           *AQSDownloader
	task        domain.DownloadTask
	transformer *RowTransformer
	out         *sink.Appender
	columns     []string
	needHeader  bool
	batch       []domain.Record
	written     int
}

func (w *aqsTaskWriter) copyFrom(ctx context.Context, location string) error {
	path, cleanup, err := w.d.source.Open(ctx, location)
	if err != nil {
		return err
	}
	defer cleanup()

	table, err := remote.OpenTable(path)
	if err != nil {
		return err
	}
	defer table.Close()

	reader := tabular.NewCSVReader(table)
	header, err := reader.Header()
	if err != nil {
		return fmt.Errorf("read %s: %w", location, err)
	}
	columns := append(append([]string{}, header...), domain.ColumnMonitor, domain.ColumnRecord)

	read, filtered := 0, 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", location, err)
		}
		read++
		keep, err := w.transformer.Apply(&row)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", location, read, err)
		}
		if !keep {
			filtered++
			continue
		}
		if w.columns == nil {
			w.columns = columns
		}
		w.batch = append(w.batch, row)
		if len(w.batch) >= w.d.batchSize {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	if err := w.flush(ctx); err != nil {
		return err
	}

	w.d.metrics.RowsFiltered.Add(float64(filtered))
	w.d.logger.Debug("source copied", "url", location, "rows", read, "filtered", filtered)
	return nil
}

func (w *aqsTaskWriter) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	if w.out == nil {
		out, err := sink.OpenAppender(w.task.Destination)
		if err != nil {
			return err
		}
		w.out = out
		if w.needHeader {
			if err := out.WriteHeader(w.columns); err != nil {
				return err
			}
			w.needHeader = false
		}
	}
	if err := w.out.Write(w.batch, w.columns); err != nil {
		return err
	}

	w.written += len(w.batch)
	w.d.metrics.RowsWritten.WithLabelValues("aqs").Add(float64(len(w.batch)))
	w.d.markReady()
	publish(ctx, w.d.publisher, w.batch, w.d.logger)
	w.batch = w.batch[:0]
	return nil
}

func (w *aqsTaskWriter) close() error {
	if w.out == nil {
		return nil
	}
	return w.out.Close()
}
