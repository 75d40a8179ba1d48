package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"gym-access-go/internal/config"
	"gym-access-go/pkg/logger"
)

const sqliteDriverName = "sqlite"

// NewSQLite opens the database file in WAL mode with a busy timeout so that
// concurrent writers wait for the lock instead of failing at once. Writes
// start with BEGIN IMMEDIATE.
func NewSQLite(cfg config.DBConfig, log logger.Logger) (*gorm.DB, error) {
	path := cfg.Path
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	log.Info("db: opening sqlite", "path", path)

	sqlDB, err := sql.Open(sqliteDriverName, sqliteDSN(path, cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	gormDB, err := gorm.Open(gormsqlite.New(gormsqlite.Config{
		DriverName: sqliteDriverName,
		Conn:       sqlDB,
	}), gormConfig(log))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := configurePool(gormDB, cfg); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("db: connected", "driver", config.DriverSQLite)
	return gormDB, nil
}

func sqliteDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_time_format", "sqlite")
	params.Set("_txlock", "immediate")

	return "file:" + path + "?" + params.Encode()
}
