package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-access-go/internal/config"
	"gym-access-go/pkg/logger"
)

func openTestSQLite(t *testing.T) config.DBConfig {
	t.Helper()
	return config.DBConfig{
		Driver:      config.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "data", "gym.db"),
		BusyTimeout: time.Second,
	}
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	cfg := openTestSQLite(t)
	log := logger.Discard()

	gormDB, err := Open(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gormDB) })

	require.NoError(t, Migrate(gormDB, config.DriverSQLite, log))
	require.NoError(t, Migrate(gormDB, config.DriverSQLite, log))
	require.NoError(t, Ping(context.Background(), gormDB))

	var mode string
	require.NoError(t, gormDB.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", strings.ToLower(mode))

	for _, table := range []string{"plans", "members", "access_events"} {
		assert.True(t, gormDB.Migrator().HasTable(table), table)
	}
}

func TestSQLiteConstraintsAreClassified(t *testing.T) {
	cfg := openTestSQLite(t)
	log := logger.Discard()

	gormDB, err := Open(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gormDB) })
	require.NoError(t, Migrate(gormDB, config.DriverSQLite, log))

	insert := `INSERT INTO members (first_name, last_name, dni, remaining_visits, expiration_date, registration_date)
		VALUES ('A', 'B', '123', ?, '2026-01-01', '2026-01-01')`

	require.NoError(t, gormDB.Exec(insert, 1).Error)

	err = gormDB.Exec(insert, 1).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsRetryable(err))

	err = gormDB.Exec(strings.Replace(insert, "'123'", "'456'", 1), -1).Error
	require.Error(t, err, "remaining_visits must not go negative")
	assert.False(t, IsUniqueViolation(err))
}

func TestPostgresErrorsAreClassified(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "mysql"}, logger.Discard())
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	dsn := sqliteDSN("gym.db", 2*time.Second)
	assert.True(t, strings.HasPrefix(dsn, "file:gym.db?"))
	assert.Contains(t, dsn, "busy_timeout%282000%29")
	assert.Contains(t, dsn, "_txlock=immediate")
}
