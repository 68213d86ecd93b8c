//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ctessum/geom"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/oslomod/teotil3-scenarios/internal/adapter/excel"
	"github.com/oslomod/teotil3-scenarios/internal/adapter/kafka"
	"github.com/oslomod/teotil3-scenarios/internal/basin"
	"github.com/oslomod/teotil3-scenarios/internal/config"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
	"github.com/oslomod/teotil3-scenarios/internal/observability"
	"github.com/oslomod/teotil3-scenarios/internal/pipeline"
)

const testTopic = "test-scenario-runs"

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
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

type publishedSummary struct {
	Summary domain.RunSummary
	Key     string
	Headers map[string]string
}

func readSummary(ctx context.Context, t *testing.T, broker string) publishedSummary {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read run summary")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var s domain.RunSummary
	require.NoError(t, json.Unmarshal(msg.Value, &s))
	return publishedSummary{Summary: s, Key: string(msg.Key), Headers: headers}
}

// TestPublisher verifies a run summary round-trips through Kafka with its
// key and headers.
func TestPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	pub := kafka.NewPublisher(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	summary := domain.NewRunSummary("Tiltak A", 2019)
	summary.SitesLoaded = 3
	summary.Totals["large-wastewater_totp_kg"] = 1234.5
	summary.Finish()
	require.NoError(t, pub.Publish(ctx, summary))

	got := readSummary(ctx, t, broker)
	assert.Equal(t, summary.RunID, got.Key)
	assert.Equal(t, "Tiltak A", got.Headers["scenario"])
	assert.Equal(t, "2019", got.Headers["year"])
	_, err := time.Parse(time.RFC3339, got.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")
	assert.Equal(t, 3, got.Summary.SitesLoaded)
	assert.InDelta(t, 1234.5, got.Summary.Totals["large-wastewater_totp_kg"], 1e-9)
}

type staticReference struct{}

func (staticReference) InputParams(context.Context) ([]modelinput.InputParam, error) {
	return []modelinput.InputParam{{ID: 1, Name: "TOTP", Unit: "tonnes"}}, nil
}

func (staticReference) OutputParams(context.Context) ([]modelinput.OutputParam, error) {
	return []modelinput.OutputParam{{ID: 10, Name: "TOTP", Unit: "kg"}}, nil
}

func (staticReference) Conversions(context.Context) ([]modelinput.Conversion, error) {
	return []modelinput.Conversion{{InParID: 1, OutParID: 10, Factor: 1000}}, nil
}

type staticRegines struct{}

func (staticRegines) Regines(context.Context, int) ([]basin.Regine, error) {
	return []basin.Regine{{Code: "001.10", Vassom: 1, Polygonal: geom.Polygon{{
		{X: 10, Y: 59}, {X: 11, Y: 59}, {X: 11, Y: 60}, {X: 10, Y: 60}, {X: 10, Y: 59},
	}}}}, nil
}

func writeRawData(t *testing.T, layout pipeline.Layout) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.RawWastewater(2019)), 0o755))

	site := domain.Site{
		AnleggNr: "0301AL01", Year: 2019, Type: "Mekanisk",
		CurrentCapacity: 1000, DesignCapacity: math.NaN(), Lon: 10.5, Lat: 59.5,
	}
	for _, p := range domain.WWParameters {
		site.Loads[p] = domain.Load{In: math.NaN(), Out: math.NaN()}
	}
	site.Loads[domain.TotP] = domain.Load{In: 10, Out: 5}

	cols := []string{"anlegg_nr", "year", "type", "current_capacity", "lon", "lat", "totp_in_tonnes", "totp_out_tonnes"}
	wb := excel.Workbooks{}
	require.NoError(t, wb.WriteSites(layout.RawWastewater(2019), &domain.SiteTable{Columns: cols, Sites: []domain.Site{site}}))
	require.NoError(t, wb.WriteSites(layout.RawIndustry(2019), &domain.SiteTable{Columns: []string{"anlegg_nr", "year"}}))
	require.NoError(t, wb.WriteSites(layout.RawMetals(2019), &domain.SiteTable{
		Columns: []string{"anlegg_nr", "year", "type"},
		Sites:   []domain.Site{{AnleggNr: "0301AL01", Year: 2019, Type: "Mekanisk"}},
	}))
	require.NoError(t, os.WriteFile(layout.Baseline(2019), []byte("regine,large-wastewater_totp_kg\n001.10,1\n002.10,2\n"), 0o644))
}

// TestScenarioRunPublishes runs a scenario over real workbooks and checks
// the summary published to Kafka matches the written model input.
func TestScenarioRunPublishes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	dir := t.TempDir()
	layout := pipeline.Layout{
		BaseDir:     filepath.Join(dir, "teotil3"),
		ScenarioDir: filepath.Join(dir, "scenarios"),
		BaselineCSV: filepath.Join(dir, "baseline_{year}.csv"),
	}
	writeRawData(t, layout)

	pub := kafka.NewPublisher(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	runner := pipeline.New(layout, pipeline.Deps{
		Workbooks: excel.Workbooks{},
		Reference: staticReference{},
		Regines:   staticRegines{},
		Publisher: pub,
	}, discardLogger(), observability.NewMetricsForTesting())

	scen, err := domain.ParseScenario([]byte("name: Overløp\noverflow:\n  \"0-2000\": 10\n"))
	require.NoError(t, err)

	summary, err := runner.Run(ctx, scen, 2019)
	require.NoError(t, err)

	out, err := os.ReadFile(summary.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "regine,large-wastewater_totp_kg\n001.10,6000\n002.10,0\n", string(out))

	got := readSummary(ctx, t, broker)
	assert.Equal(t, summary.RunID, got.Key)
	assert.Equal(t, "Overløp", got.Headers["scenario"])
	assert.Equal(t, 1, got.Summary.SitesAssigned)
	assert.InDelta(t, 6000, got.Summary.Totals["large-wastewater_totp_kg"], 1e-9)
}
