package services

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"weather-etl/internal/accuweather"
	"weather-etl/internal/repository"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

type upsertCall struct {
	table   repository.Table
	records interface{}
}

type fakeConnector struct {
	existing  map[string]bool
	queryRows []repository.Row
	queryErr  error
	upsertErr error

	queries []string
	upserts []upsertCall
}

func newFakeConnector(existing ...string) *fakeConnector {
	f := &fakeConnector{existing: map[string]bool{}}
	for _, name := range existing {
		f.existing[name] = true
	}
	return f
}

func (f *fakeConnector) TableExists(ctx context.Context, name string) (bool, error) {
	return f.existing[name], nil
}

func (f *fakeConnector) EnsureTable(ctx context.Context, table repository.Table) error {
	f.existing[table.Name] = true
	return nil
}

func (f *fakeConnector) DropTable(ctx context.Context, table repository.Table) error {
	delete(f.existing, table.Name)
	return nil
}

func (f *fakeConnector) Upsert(ctx context.Context, table repository.Table, records interface{}) (int, error) {
	f.upserts = append(f.upserts, upsertCall{table: table, records: records})
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.existing[table.Name] = true
	return reflect.ValueOf(records).Len(), nil
}

func (f *fakeConnector) Query(ctx context.Context, query string, args ...interface{}) ([]repository.Row, error) {
	f.queries = append(f.queries, query)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRows, nil
}

type fakeSource struct {
	location    accuweather.Location
	searchErr   error
	current     accuweather.Payload
	currentErr  error
	forecast    []accuweather.Payload
	forecastErr error

	currentKey string
}

func (f *fakeSource) SearchCity(ctx context.Context, name string) (accuweather.Location, error) {
	return f.location, f.searchErr
}

func (f *fakeSource) GetCurrentConditions(ctx context.Context, locationKey string) (accuweather.Payload, error) {
	f.currentKey = locationKey
	return f.current, f.currentErr
}

func (f *fakeSource) GetForecast(ctx context.Context, locationKey int, days int) ([]accuweather.Payload, error) {
	return f.forecast, f.forecastErr
}

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.DebugLevel)
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func newTestCollector() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry())
}

func loadFixture(t *testing.T, name string) accuweather.Payload {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "transform", "testdata", name))
	require.NoError(t, err)

	var p accuweather.Payload
	require.NoError(t, json.Unmarshal(data, &p))
	return p
}

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}
