package main

import (
	"io"
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/epa-data-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/epa-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/epa-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/epa-data-etl/internal/adapter/remote"
	"github.com/couchcryptid/epa-data-etl/internal/config"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
	"github.com/couchcryptid/epa-data-etl/internal/pipeline"
)

// app holds the collaborators shared by every subcommand for one run.
type app struct {
	cfg     *config.Config
	runID   string
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	kafka    *kafka.Publisher
	store    *objectstore.Uploader
	stopHTTP func()
}

func newApp(cfg *config.Config, metrics *observability.Metrics, logOut io.Writer) (*app, error) {
	runID := uuid.NewString()
	logger := observability.NewLogger(logOut, cfg.LogLevel, cfg.LogFormat).With("run_id", runID)

	a := &app{
		cfg:     cfg,
		runID:   runID,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}

	if cfg.Kafka.Enabled() {
		a.kafka = kafka.NewPublisher(cfg.Kafka, runID, metrics, logger)
		logger.Info("record publishing enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	if cfg.ObjectStore.Enabled() {
		store, err := objectstore.NewUploader(cfg.ObjectStore, runID, metrics, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
		logger.Info("artifact upload enabled", "endpoint", cfg.ObjectStore.Endpoint, "bucket", cfg.ObjectStore.Bucket)
	}
	return a, nil
}

func (a *app) fetcher() (*remote.Fetcher, error) {
	return remote.NewFetcher(remote.Config{
		MaxAttempts: a.cfg.Fetch.MaxAttempts,
		RetryDelay:  a.cfg.Fetch.RetryDelay,
		Timeout:     a.cfg.Fetch.Timeout,
		Proxy:       a.cfg.Fetch.Proxy,
	}, a.clock, a.metrics, a.logger)
}

// publisher returns the configured publisher, or a nil interface when
// publishing is disabled.
func (a *app) publisher() pipeline.Publisher {
	if a.kafka == nil {
		return nil
	}
	return a.kafka
}

func (a *app) uploader() pipeline.Uploader {
	if a.store == nil {
		return nil
	}
	return a.store
}

// serve starts the health and metrics server when HTTP_ADDR is set.
func (a *app) serve(ready sharedobs.ReadinessChecker) error {
	if a.cfg.HTTPAddr == "" || a.stopHTTP != nil {
		return nil
	}
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, ready, nil, a.logger)
	stop, err := srv.StartBackground(a.cfg.ShutdownTimeout)
	if err != nil {
		return err
	}
	a.stopHTTP = stop
	return nil
}

func (a *app) close() {
	if a.stopHTTP != nil {
		a.stopHTTP()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("kafka publisher close error", "error", err)
		}
	}
	a.logger.Info("shutdown complete")
}
