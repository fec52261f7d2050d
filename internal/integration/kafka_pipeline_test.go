//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/epa-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/epa-data-etl/internal/adapter/remote"
	"github.com/couchcryptid/epa-data-etl/internal/config"
	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
	"github.com/couchcryptid/epa-data-etl/internal/pipeline"
	"github.com/couchcryptid/epa-data-etl/internal/sink"
)

const testTopic = "epa-records-test"

const annual2019 = `"State Code","County Code","Site Num","Parameter Code","POC","Year","Arithmetic Mean"
"06","037","1103",44201,1,2019,0.041
"06","037","1103",88101,1,2019,9.52
"09","009","0027",44201,1,2019,0.038
"CC","040","0020",44201,1,2019,0.032
`

// publishedMessage holds a deserialized message read from the topic.
type publishedMessage struct {
	Key     string
	Value   map[string]any
	Headers map[string]string
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("epa-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("annual_conc_by_monitor_2019.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, annual2019)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "annual_conc_by_monitor_2019.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var value map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &value), "unmarshal message")
	return publishedMessage{Key: string(msg.Key), Value: value, Headers: headers}
}

// TestAQSDownloadPublishesRecords runs an AQS task over a local archive with
// the Kafka publisher attached and checks the topic mirrors the output file.
func TestAQSDownloadPublishesRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	logger := observability.DiscardLogger()
	metrics := observability.NewMetricsForTesting()
	publisher := kafka.NewPublisher(config.Kafka{Brokers: []string{broker}, Topic: testTopic}, "run-integration", metrics, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	dir := t.TempDir()
	archive := writeFixture(t, dir)
	dest := filepath.Join(dir, "annual_conc_by_monitor_2019_44201.csv.gz")
	task, err := domain.NewDownloadTask(dest, []string{archive}, []domain.ParameterCode{domain.ParameterOzone})
	require.NoError(t, err)

	d := pipeline.NewAQSDownloader(remote.LocalSource{}, pipeline.AQSOptions{Publisher: publisher}, metrics, logger)
	require.NoError(t, d.ExecuteAll(ctx, []domain.DownloadTask{task}))

	written, err := sink.ReadFile(dest)
	require.NoError(t, err)
	require.Len(t, written.Records, 3)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, rec := range written.Records {
		pm := readPublished(ctx, t, consumer)
		assert.Equal(t, rec.String(domain.ColumnRecord), pm.Key, "message %d key", i)
		assert.Equal(t, rec.String(domain.ColumnMonitor), pm.Headers["monitor"])
		assert.Equal(t, "run-integration", pm.Headers["run_id"])
		assert.Equal(t, rec.String(domain.ColumnMonitor), pm.Value["Monitor"])
	}

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no extra messages on topic")
}
