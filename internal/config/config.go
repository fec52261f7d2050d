package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// Config holds all settings, populated from environment variables and
// overridden per command by flags.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	Fetch       Fetch
	Kafka       Kafka
	ObjectStore ObjectStore
	AQS         AQS
	AirNow      AirNow
}

// Fetch configures remote downloads.
type Fetch struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Proxy       string
}

// Kafka configures the optional record mirror. No brokers disables it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether records should be published.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// ObjectStore configures the optional upload of finished files. An empty
// endpoint disables it.
type ObjectStore struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Enabled reports whether finished files should be uploaded.
func (o ObjectStore) Enabled() bool { return o.Endpoint != "" }

// AQS holds the bulk file download options.
type AQS struct {
	Years       []int
	Parameters  []string
	Aggregation string
	Destination string
	MergeYears  bool
	Reset       bool
	BatchSize   int
}

// AirNow holds the observation API download options.
type AirNow struct {
	Parameter    string
	Destination  string
	StartDate    time.Time
	EndDate      time.Time
	Reset        bool
	QC           string
	APIKey       string
	Shapes       []string
	PaceInterval time.Duration
	URL          string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	maxAttempts, err := parsePositiveInt("FETCH_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("FETCH_RETRY_DELAY", 10*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	pace, err := parseDuration("AIRNOW_PACE_INTERVAL", 7200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	batchSize, err := parsePositiveInt("AQS_BATCH_SIZE", 5000)
	if err != nil {
		return nil, err
	}

	useSSL := true
	if v := os.Getenv("OBJECTSTORE_USE_SSL"); v != "" {
		useSSL, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid OBJECTSTORE_USE_SSL")
		}
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,
		Fetch: Fetch{
			MaxAttempts: maxAttempts,
			RetryDelay:  retryDelay,
			Timeout:     fetchTimeout,
			Proxy:       os.Getenv("EPA_PROXY"),
		},
		Kafka: Kafka{
			Brokers: brokers,
			Topic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "epa-records"),
		},
		ObjectStore: ObjectStore{
			Endpoint:  os.Getenv("OBJECTSTORE_ENDPOINT"),
			Bucket:    os.Getenv("OBJECTSTORE_BUCKET"),
			AccessKey: os.Getenv("OBJECTSTORE_ACCESS_KEY"),
			SecretKey: os.Getenv("OBJECTSTORE_SECRET_KEY"),
			UseSSL:    useSSL,
			Prefix:    os.Getenv("OBJECTSTORE_PREFIX"),
		},
		AQS: AQS{
			Aggregation: sharedcfg.EnvOrDefault("AQS_AGGREGATION", string(domain.AggregationAnnual)),
			Destination: sharedcfg.EnvOrDefault("AQS_DESTINATION", "."),
			BatchSize:   batchSize,
		},
		AirNow: AirNow{
			Parameter:    sharedcfg.EnvOrDefault("AIRNOW_PARAMETER", string(domain.PollutantPM25)),
			Destination:  os.Getenv("AIRNOW_DESTINATION"),
			QC:           os.Getenv("AIRNOW_QC"),
			PaceInterval: pace,
			URL:          os.Getenv("AIRNOW_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Fetch.MaxAttempts < 1 {
		return domain.ConfigError("fetch attempts must be at least 1")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return domain.ConfigError("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.ObjectStore.Enabled() && c.ObjectStore.Bucket == "" {
		return domain.ConfigError("OBJECTSTORE_BUCKET is required when OBJECTSTORE_ENDPOINT is set")
	}
	return nil
}

// Validate checks the AQS options before planning.
func (a AQS) Validate() error {
	if _, err := domain.ParseAggregation(a.Aggregation); err != nil {
		return err
	}
	if len(a.Years) == 0 {
		return domain.ConfigError("at least one year is required")
	}
	return nil
}

// Validate checks the AirNow options before a range download.
func (a AirNow) Validate() error {
	if _, err := domain.ParsePollutant(a.Parameter); err != nil {
		return err
	}
	if a.Destination == "" {
		return domain.ConfigError("AirNow destination is required")
	}
	if a.StartDate.IsZero() {
		return domain.ConfigError("start date is required")
	}
	if !a.EndDate.IsZero() && a.EndDate.Before(a.StartDate) {
		return domain.ConfigError("end date %s is before start date %s",
			a.EndDate.Format(time.DateOnly), a.StartDate.Format(time.DateOnly))
	}
	if len(a.Shapes) == 0 {
		return domain.ConfigError("shape files are not specified")
	}
	return nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
