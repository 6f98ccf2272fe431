//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkatc "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/riverwatch/waterpoint/internal/config"
	"github.com/riverwatch/waterpoint/internal/domain"
	"github.com/riverwatch/waterpoint/internal/geocode"
	"github.com/riverwatch/waterpoint/internal/ingest"
	"github.com/riverwatch/waterpoint/internal/observability"
	"github.com/riverwatch/waterpoint/internal/store"
)

const testTopic = "test-raw-water-reports"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := kafkatc.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkatc.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic pre-creates a topic so the consumer group does not race topic
// auto-creation.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial kafka")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// staticBackend resolves from a fixed table, standing in for a geocoding API.
type staticBackend struct {
	answers map[string]domain.Coordinate
}

func (b *staticBackend) Name() string { return "static" }

func (b *staticBackend) Lookup(_ context.Context, address string) (domain.Coordinate, bool, error) {
	coord, ok := b.answers[address]
	return coord, ok, nil
}

// TestKafkaIngest runs the full update path against a real broker: produce
// collector rows, consume them through KafkaSource, geocode, stage, and swap.
func TestKafkaIngest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaTopic:        testTopic,
		KafkaGroupID:      fmt.Sprintf("test-ingest-%d", time.Now().UnixNano()),
		KafkaBatchSize:    10,
		KafkaBatchTimeout: 10 * time.Second,
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{
			Key:   []byte("河南省-花园口"),
			Value: []byte(`{"省份":"河南省","断面名称":"花园口","pH":7.63}`),
		},
		kafkago.Message{
			Key:   []byte("bad"),
			Value: []byte("not-json{{{"),
		},
		kafkago.Message{
			Key:   []byte("北京市-古北口"),
			Value: []byte(`{"省份":"北京市","断面名称":"古北口","pH":7.11}`),
		},
	))

	source := ingest.NewKafkaSource(cfg, discardLogger())
	t.Cleanup(func() { _ = source.Close() })

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Init(ctx))

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	cache := geocode.LoadCache(filepath.Join(t.TempDir(), "cache.json"), logger)
	resolver := geocode.NewResolver(&staticBackend{answers: map[string]domain.Coordinate{
		"河南省花园口": {Lat: 34.9130, Lon: 113.6540},
	}}, cache, logger, metrics)

	updater := ingest.NewUpdater(
		st, resolver, cache, domain.DefaultAddressFields,
		clockwork.NewRealClock(), logger, metrics,
	)

	// Retry until the consumer group has partitions assigned and the batch
	// arrives. An empty batch makes Run fail with ErrEmptyStaging.
	var report ingest.Report
	for {
		report, err = updater.Run(ctx, source)
		if err == nil && report.Staged > 0 {
			break
		}
		require.ErrorIs(t, err, store.ErrEmptyStaging)
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for messages from topic")
		}
	}

	// The malformed message is skipped; both valid rows are published.
	assert.Equal(t, 2, report.Staged)
	assert.Equal(t, 1, report.Geocoded)
	assert.Equal(t, 1, report.Ungeocoded)

	recs, err := st.ActiveRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "花园口", recs[0].Site)
	assert.Equal(t, "河南省花园口", recs[0].Address)
	require.NotNil(t, recs[0].Coord)
	assert.InDelta(t, 34.9130, recs[0].Coord.Lat, 1e-6)
	assert.Equal(t, "kafka", recs[0].Source)

	assert.Equal(t, "古北口", recs[1].Site)
	assert.Nil(t, recs[1].Coord, "address missing from the backend stays uncoordinated")
}
