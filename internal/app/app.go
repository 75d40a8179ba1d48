package app

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"gym-access-go/internal/config"
	"gym-access-go/internal/db"
	membershipdomain "gym-access-go/internal/domain/membership"
	reportsdomain "gym-access-go/internal/domain/reports"
	"gym-access-go/internal/metrics"
	membershiprepo "gym-access-go/internal/repository/membership"
	reportsrepo "gym-access-go/internal/repository/reports"
	"gym-access-go/internal/telemetry"
	"gym-access-go/internal/transport/httpserver"
	"gym-access-go/internal/transport/httpserver/handler"
	"gym-access-go/pkg/logger"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	members    *membershipdomain.Service
	shutdown   telemetry.ShutdownFunc
	log        logger.Logger
}

func New(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	log.Info("app: initializing telemetry")
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, err
	}

	log.Info("app: initializing database", "driver", db.Driver(cfg.DB))
	dbConn, err := db.Open(cfg.DB, log)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if err := db.Migrate(dbConn, db.Driver(cfg.DB), log); err != nil {
		_ = db.Close(dbConn)
		_ = shutdown(ctx)
		return nil, err
	}

	m := metrics.New()

	members := membershipdomain.NewServiceWithOptions(membershiprepo.NewSQL(dbConn), log, membershipdomain.Options{
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryInitial: cfg.Engine.RetryInitial,
		Location:     loc,
		Recorder:     m,
	})
	if err := members.SeedCatalog(ctx); err != nil {
		_ = db.Close(dbConn)
		_ = shutdown(ctx)
		return nil, err
	}
	reports := reportsdomain.NewService(reportsrepo.NewSQL(dbConn), log, loc)

	log.Info("app: initializing router")
	ping := func(ctx context.Context) error { return db.Ping(ctx, dbConn) }
	router := httpserver.NewRouter(cfg, handler.New(members, reports, ping, log), m, log)

	log.Info("app: initializing http server")
	srv := httpserver.New(cfg, router)

	return &App{
		cfg:        cfg,
		httpServer: srv,
		db:         dbConn,
		members:    members,
		shutdown:   shutdown,
		log:        log,
	}, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

// Members exposes the engine for embedding callers such as a desktop shell.
func (a *App) Members() *membershipdomain.Service {
	return a.members
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := db.Close(a.db); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
