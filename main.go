// Package main provides the workforce ledger command line entry point
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/amirphl/workforce-ledger/app/logger"
	"github.com/amirphl/workforce-ledger/app/metrics"
	"github.com/amirphl/workforce-ledger/app/services"
	businessflow "github.com/amirphl/workforce-ledger/business_flow"
	"github.com/amirphl/workforce-ledger/config"
	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application holds the wired flows and the resources they share
type Application struct {
	config  *config.Config
	logger  zerolog.Logger
	db      *gorm.DB
	cache   *redis.Client
	metrics *metrics.IngestionMetrics

	ingestion  businessflow.IngestionFlow
	files      businessflow.FileMaintenanceFlow
	agentState businessflow.AgentStateFlow
	directory  *businessflow.DirectorySync
	stopFuncs  []func()
	logCloser  io.Closer
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initializeApplication connects the store and cache and wires every flow
func initializeApplication(cfg *config.Config) (*Application, error) {
	log, closer := logger.New(cfg.Logging, "workforce-ledger")

	db, err := initializeDatabase(cfg.Database, log)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	var m *metrics.IngestionMetrics
	if cfg.Metrics.Enabled {
		m = metrics.NewIngestionMetrics()
	}

	app := &Application{
		config:    cfg,
		logger:    log,
		db:        db,
		cache:     rc,
		metrics:   m,
		logCloser: closer,
	}

	// Repositories
	callLogRepo := repository.NewCallLogRepository(db)
	teamLeaderRepo := repository.NewTeamLeaderRepository(db)
	teamManagerRepo := repository.NewTeamManagerRepository(db)
	directoryRepo := repository.NewAgentDirectoryRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	runRepo := repository.NewIngestionRunRepository(db)

	// Pipeline components
	labels := businessflow.LabelsFromConfig(cfg.Ingestion)
	history := businessflow.NewHistoryResolver(callLogRepo, labels, cfg.Ingestion.HistoryBatchSize, cfg.Ingestion.FallbackBatchSize, log, m)
	hierarchy := businessflow.NewHierarchyRegistry(db, teamLeaderRepo, teamManagerRepo, callLogRepo, log)
	reconciler := businessflow.NewRowReconciler(labels)
	loader := businessflow.NewBulkLoaderForDB(db, cfg.Ingestion, log)
	directory := businessflow.NewDirectorySync(callLogRepo, directoryRepo, cfg.Ingestion.FallbackBatchSize, log)
	activity := businessflow.NewRepositoryActivitySink(activityRepo)

	lockTTL := cfg.Cache.LockTTL
	if lockTTL <= 0 {
		lockTTL = utils.IngestLockTTL
	}
	lock := services.NewRunLock(rc, services.RedisKey(cfg.Cache.RedisPrefix, utils.IngestLockKey), lockTTL, log)

	app.ingestion = businessflow.NewIngestionFlow(
		db, runRepo, history, hierarchy, reconciler, loader, directory, activity, lock, m, cfg.Ingestion, log,
	)
	app.files = businessflow.NewFileMaintenanceFlow(callLogRepo, directory, activity, log)
	app.agentState = businessflow.NewAgentStateFlow(callLogRepo, history, hierarchy, log)
	app.directory = directory

	if rc != nil {
		app.stopFuncs = append(app.stopFuncs, func() { _ = rc.Close() })
	}
	if sqlDB, err := db.DB(); err == nil {
		app.stopFuncs = append(app.stopFuncs, func() { _ = sqlDB.Close() })
	}

	return app, nil
}

// Close pushes metrics and releases connections
func (a *Application) Close() {
	if a.metrics != nil {
		if err := a.metrics.Push(a.config.Metrics.PushgatewayURL, a.config.Metrics.JobName); err != nil {
			a.logger.Warn().Err(err).Msg("failed to push metrics")
		}
	}
	for _, fn := range a.stopFuncs {
		fn()
	}
	_ = a.logCloser.Close()
}

// migrate creates or updates every table
func (a *Application) migrate() error {
	if err := a.db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	a.logger.Info().Int("tables", len(models.AllModels())).Msg("database migrated")
	return nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.DSN(),
		})
	}

	dbLogger := gormlogger.Discard
	if cfg.SlowQueryLog {
		gormLog := log.With().Str("component", "gorm").Logger()
		dbLogger = gormlogger.New(&gormLog, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// one writer at a time; sqlite serializes writes anyway
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().
		Str("driver", cfg.Driver).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("database connection established")

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, nil
}
