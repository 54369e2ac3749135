package database

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	logger := logging.NewStructuredLogger("test", "test", logging.DebugLevel)
	logger.SetOutput(&bytes.Buffer{})
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	return Wrap(sqlx.NewDb(sqlDB, "postgres"), logger, collector), mock
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5432, User: "etl", Password: "secret", Database: "weather"}
	assert.Equal(t, "host=db port=5432 user=etl password=secret dbname=weather sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestInTx_Commits(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE things").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.InTx(context.Background(), "update_things", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE things SET x = 1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := db.InTx(context.Background(), "update_things", func(tx *sqlx.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecContext_Error(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("DROP TABLE").WillReturnError(errors.New("permission denied"))

	_, err := db.ExecContext(context.Background(), "drop_table", "DROP TABLE x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	logger := logging.NewStructuredLogger("test", "test", logging.InfoLevel)
	logger.SetOutput(&bytes.Buffer{})
	db := Wrap(sqlx.NewDb(sqlDB, "postgres"), logger, metrics.NewCollector("test", prometheus.NewRegistry()))

	mock.ExpectPing()
	assert.NoError(t, db.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, db.HealthCheck(context.Background()))
}
