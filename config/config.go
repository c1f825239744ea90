// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Blank canonical name policies
const (
	BlankNameReject = "reject"
	BlankNameSkip   = "skip"
)

// Config holds all configuration of the ledger
type Config struct {
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Ingestion IngestionConfig `json:"ingestion" yaml:"ingestion"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" yaml:"driver" validate:"oneof=postgres sqlite"`
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Name            string        `json:"name" yaml:"name"`
	User            string        `json:"user" yaml:"user"`
	Password        string        `json:"password" yaml:"-"`
	SSLMode         string        `json:"ssl_mode" yaml:"ssl_mode"`
	Path            string        `json:"path" yaml:"path"` // sqlite file
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log" yaml:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
}

// DSN returns the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type LoggingConfig struct {
	Level        string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format       string `json:"format" yaml:"format" validate:"oneof=json console"`
	Output       string `json:"output" yaml:"output" validate:"oneof=stdout file both"`
	FilePath     string `json:"file_path" yaml:"file_path"`
	MaxSize      int    `json:"max_size" yaml:"max_size"` // MB
	MaxBackups   int    `json:"max_backups" yaml:"max_backups"`
	MaxAge       int    `json:"max_age" yaml:"max_age"` // days
	Compress     bool   `json:"compress" yaml:"compress"`
	EnableCaller bool   `json:"enable_caller" yaml:"enable_caller"`
}

type MetricsConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url" validate:"omitempty,url"`
	JobName        string `json:"job_name" yaml:"job_name"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Provider    string        `json:"provider" yaml:"provider" validate:"oneof=redis memory"`
	RedisURL    string        `json:"redis_url" yaml:"redis_url"`
	RedisDB     int           `json:"redis_db" yaml:"redis_db"`
	RedisPrefix string        `json:"redis_prefix" yaml:"redis_prefix"`
	LockTTL     time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
}

// IngestionConfig holds the labels and tuning of the call-log ingestion pipeline
type IngestionConfig struct {
	DefaultDesignation string `json:"default_designation" yaml:"default_designation" validate:"required"`
	DefaultRole        string `json:"default_role" yaml:"default_role" validate:"required"`
	DefaultStatus      string `json:"default_status" yaml:"default_status" validate:"required"`
	HistoryBatchSize   int    `json:"history_batch_size" yaml:"history_batch_size" validate:"gte=1"`
	FallbackBatchSize  int    `json:"fallback_batch_size" yaml:"fallback_batch_size" validate:"gte=1"`
	InsertBatchSize    int    `json:"insert_batch_size" yaml:"insert_batch_size" validate:"gte=1"`
	Workers            int    `json:"workers" yaml:"workers" validate:"gte=1,lte=64"`
	BlankNamePolicy    string `json:"blank_name_policy" yaml:"blank_name_policy" validate:"oneof=reject skip"`
	SuspendTriggers    bool   `json:"suspend_triggers" yaml:"suspend_triggers"`
	UseCopy            bool   `json:"use_copy" yaml:"use_copy"`
}

// LoadConfig loads configuration from .env, the process environment and an optional YAML file named by CONFIG_FILE.
// Environment variables take precedence over the YAML file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Name:            "workforce",
			User:            "postgres",
			SSLMode:         "disable",
			Path:            "workforce.db",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 15 * time.Minute,
			SlowQueryLog:    true,
			SlowQueryTime:   1 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			FilePath:   "logs/ingest.log",
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			JobName: "workforce_ingest",
		},
		Cache: CacheConfig{
			Enabled:     false,
			Provider:    "memory",
			RedisPrefix: "workforce",
			LockTTL:     30 * time.Minute,
		},
		Ingestion: IngestionConfig{
			DefaultDesignation: "Agent",
			DefaultRole:        "Full-Timer",
			DefaultStatus:      "Employee",
			HistoryBatchSize:   500,
			FallbackBatchSize:  1000,
			InsertBatchSize:    1000,
			Workers:            4,
			BlankNamePolicy:    BlankNameReject,
			SuspendTriggers:    true,
			UseCopy:            true,
		},
	}
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	db := &cfg.Database
	db.Driver = getEnvString("DB_DRIVER", db.Driver)
	db.Host = getEnvString("DB_HOST", db.Host)
	db.Port = getEnvInt("DB_PORT", db.Port)
	db.Name = getEnvString("DB_NAME", db.Name)
	db.User = getEnvString("DB_USER", db.User)
	db.Password = getEnvString("DB_PASSWORD", db.Password)
	db.SSLMode = getEnvString("DB_SSL_MODE", db.SSLMode)
	db.Path = getEnvString("DB_PATH", db.Path)
	db.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", db.ConnMaxLifetime)
	db.ConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", db.ConnMaxIdleTime)
	db.SlowQueryLog = getEnvBool("DB_SLOW_QUERY_LOG", db.SlowQueryLog)
	db.SlowQueryTime = getEnvDuration("DB_SLOW_QUERY_TIME", db.SlowQueryTime)

	lg := &cfg.Logging
	lg.Level = getEnvString("LOG_LEVEL", lg.Level)
	lg.Format = getEnvString("LOG_FORMAT", lg.Format)
	lg.Output = getEnvString("LOG_OUTPUT", lg.Output)
	lg.FilePath = getEnvString("LOG_FILE_PATH", lg.FilePath)
	lg.MaxSize = getEnvInt("LOG_MAX_SIZE", lg.MaxSize)
	lg.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", lg.MaxBackups)
	lg.MaxAge = getEnvInt("LOG_MAX_AGE", lg.MaxAge)
	lg.Compress = getEnvBool("LOG_COMPRESS", lg.Compress)
	lg.EnableCaller = getEnvBool("LOG_ENABLE_CALLER", lg.EnableCaller)

	m := &cfg.Metrics
	m.Enabled = getEnvBool("METRICS_ENABLED", m.Enabled)
	m.PushgatewayURL = getEnvString("METRICS_PUSHGATEWAY_URL", m.PushgatewayURL)
	m.JobName = getEnvString("METRICS_JOB_NAME", m.JobName)

	c := &cfg.Cache
	c.Enabled = getEnvBool("CACHE_ENABLED", c.Enabled)
	c.Provider = getEnvString("CACHE_PROVIDER", c.Provider)
	c.RedisURL = getEnvString("CACHE_REDIS_URL", c.RedisURL)
	c.RedisDB = getEnvInt("CACHE_REDIS_DB", c.RedisDB)
	c.RedisPrefix = getEnvString("CACHE_REDIS_PREFIX", c.RedisPrefix)
	c.LockTTL = getEnvDuration("CACHE_LOCK_TTL", c.LockTTL)

	in := &cfg.Ingestion
	in.DefaultDesignation = getEnvString("INGEST_DEFAULT_DESIGNATION", in.DefaultDesignation)
	in.DefaultRole = getEnvString("INGEST_DEFAULT_ROLE", in.DefaultRole)
	in.DefaultStatus = getEnvString("INGEST_DEFAULT_STATUS", in.DefaultStatus)
	in.HistoryBatchSize = getEnvInt("INGEST_HISTORY_BATCH_SIZE", in.HistoryBatchSize)
	in.FallbackBatchSize = getEnvInt("INGEST_HISTORY_FALLBACK_BATCH_SIZE", in.FallbackBatchSize)
	in.InsertBatchSize = getEnvInt("INGEST_INSERT_BATCH_SIZE", in.InsertBatchSize)
	in.Workers = getEnvInt("INGEST_WORKERS", in.Workers)
	in.BlankNamePolicy = strings.ToLower(getEnvString("INGEST_BLANK_NAME_POLICY", in.BlankNamePolicy))
	in.SuspendTriggers = getEnvBool("INGEST_SUSPEND_TRIGGERS", in.SuspendTriggers)
	in.UseCopy = getEnvBool("INGEST_USE_COPY", in.UseCopy)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ValidateConfig validates the configuration
func ValidateConfig(cfg *Config) error {
	var errors []string

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !asValidationErrors(err, &verrs) {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		for _, fe := range verrs {
			errors = append(errors, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
		}
	}

	// Validate database configuration
	if cfg.Database.Driver == "postgres" {
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.Name == "" {
			errors = append(errors, "DB_NAME is required")
		}
		if cfg.Database.User == "" {
			errors = append(errors, "DB_USER is required")
		}
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		errors = append(errors, "DB_PATH is required for sqlite")
	}

	// Validate logging configuration
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
		if cfg.Cache.LockTTL <= 0 {
			errors = append(errors, "CACHE_LOCK_TTL must be positive")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
