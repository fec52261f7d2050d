// Package pipeline runs the AQS bulk-file and AirNow day-range downloads:
// acquire source data, derive keys, annotate geography and append to the
// destination file.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// Source makes a location available as a local file. The returned cleanup
// func releases any temporary copy.
type Source interface {
	Open(ctx context.Context, location string) (path string, cleanup func(), err error)
}

// Publisher mirrors written rows to a downstream system.
type Publisher interface {
	Publish(ctx context.Context, rows []domain.Record) error
}

// Uploader copies a finished output file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

// QualityChecker inspects raw rows and returns the number of violations.
type QualityChecker interface {
	Inspect(label string, rows []domain.Record) int
}

// readiness tracks whether a downloader has written any rows yet.
type readiness struct {
	ready atomic.Bool
}

// CheckReadiness returns nil once at least one batch has been written.
func (r *readiness) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("pipeline has not written any rows yet")
	}
	return nil
}

func (r *readiness) markReady() { r.ready.Store(true) }

// publish forwards rows to p when configured. Failures are logged and do not
// fail the download: the file is the system of record.
func publish(ctx context.Context, p Publisher, rows []domain.Record, logger *slog.Logger) {
	if p == nil || len(rows) == 0 {
		return
	}
	if err := p.Publish(ctx, rows); err != nil {
		logger.Warn("publish rows failed", "error", err, "rows", len(rows))
	}
}
