// Package testing provides test utilities and database setup for store-backed tests
package testing

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB represents a migrated in-memory test database
type TestDB struct {
	DB   *gorm.DB
	Name string
}

// SetupTestDB opens a private in-memory sqlite database and migrates every table.
// The pool holds a single connection so the memory database lives as long as the TestDB.
func SetupTestDB() (*TestDB, error) {
	name := "ledger_test_" + uuid.NewString()

	logLevel := logger.Silent
	if verbose, _ := strconv.ParseBool(os.Getenv("TEST_DB_VERBOSE")); verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database %s: %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate test database %s: %w", name, err)
	}

	return &TestDB{DB: db, Name: name}, nil
}

// TeardownTestDB closes the connection, which drops the memory database
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ClearAllTables removes all rows while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	tables := []string{
		"ingestion_runs",
		"activity_logs",
		"agent_list",
		"agent_info",
		"updated_call_logs",
		"raw_call_logs",
		"team_leaders",
		"team_managers",
	}
	for _, table := range tables {
		if err := tdb.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// TestWithDB runs fn against a fresh database and tears it down afterwards
func TestWithDB(fn func(*TestDB) error) error {
	tdb, err := SetupTestDB()
	if err != nil {
		return err
	}
	defer tdb.TeardownTestDB()
	return fn(tdb)
}

// CreateTestContext returns a context, carrying tx as the active transaction when given
func CreateTestContext(tx *gorm.DB) context.Context {
	ctx := context.Background()
	if tx != nil {
		ctx = context.WithValue(ctx, repository.TxContextKey, tx)
	}
	return ctx
}
