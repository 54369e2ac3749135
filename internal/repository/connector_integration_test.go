package repository

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-etl/internal/models"
	"weather-etl/pkg/database"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

// These tests need a disposable Postgres database, e.g.
// WEATHER_ETL_TEST_DSN="host=localhost user=postgres password=postgres dbname=weather_test sslmode=disable"
func newPostgresConnector(t *testing.T) Connector {
	t.Helper()
	dsn := os.Getenv("WEATHER_ETL_TEST_DSN")
	if dsn == "" {
		t.Skip("WEATHER_ETL_TEST_DSN not set")
	}

	sqlDB, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	logger := logging.NewStructuredLogger("test", "test", logging.InfoLevel)
	logger.SetOutput(&bytes.Buffer{})
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	return NewConnector(database.Wrap(sqlDB, logger, collector), logger, collector, 0)
}

func TestPostgres_ExistsAfterFirstUpsertAndLastWriteWins(t *testing.T) {
	conn := newPostgresConnector(t)
	ctx := context.Background()

	table := ForecastServingTable(fmt.Sprintf("it_forecast_serving_%d", time.Now().UnixNano()))
	t.Cleanup(func() { conn.DropTable(context.Background(), table) })

	exists, err := conn.TableExists(ctx, table.Name)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = conn.Upsert(ctx, table, []models.PrecipitationOutlook{{Date: testDay, CountPrecipitationsNextFiveDays: 1}})
	require.NoError(t, err)

	exists, err = conn.TableExists(ctx, table.Name)
	require.NoError(t, err)
	assert.True(t, exists)

	// Same key again with a new value, then the identical record twice.
	_, err = conn.Upsert(ctx, table, []models.PrecipitationOutlook{{Date: testDay, CountPrecipitationsNextFiveDays: 2}})
	require.NoError(t, err)
	_, err = conn.Upsert(ctx, table, []models.PrecipitationOutlook{
		{Date: testDay, CountPrecipitationsNextFiveDays: 3},
		{Date: testDay, CountPrecipitationsNextFiveDays: 3},
	})
	require.NoError(t, err)

	rows, err := conn.Query(ctx, "SELECT count_precipitations_next_five_days AS c FROM "+pq.QuoteIdentifier(table.Name))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 3, rows[0]["c"])
}
