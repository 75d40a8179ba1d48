package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gym-access-go/internal/config"
	"gym-access-go/pkg/logger"
)

func NewPostgres(cfg config.DBConfig, log logger.Logger) (*gorm.DB, error) {
	log.Info("db: connecting to postgres using DSN")

	gormDB, err := gorm.Open(postgres.Open(cfg.DSN), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := configurePool(gormDB, cfg); err != nil {
		return nil, err
	}

	log.Info("db: connected", "driver", config.DriverPostgres)
	return gormDB, nil
}
