package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"gym-access-go/internal/config"
	"gym-access-go/pkg/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate brings the schema up to date for the given driver. The migration
// instance is not closed because that would close the shared *sql.DB.
func Migrate(gormDB *gorm.DB, driver string, log logger.Logger) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}

	var (
		instance database.Driver
		dbName   string
	)
	switch driver {
	case config.DriverSQLite:
		instance, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
		dbName = "sqlite"
	case config.DriverPostgres:
		instance, err = pgxv5.WithInstance(sqlDB, &pgxv5.Config{})
		dbName = "pgx_v5"
	default:
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	defer func() { _ = source.Close() }()

	m, err := migrate.NewWithInstance("iofs", source, dbName, instance)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	log.Info("db: schema ready", "driver", driver, "version", version, "dirty", dirty)
	return nil
}
