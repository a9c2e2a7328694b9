package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/David-Botos/data-refinery/pkg/cleaner"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	// Warehouse connections, nil unless configured
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig

	// Result store
	StoreDriver string
	SQLitePath  string

	// Uploaded files, nil unless configured
	ObjectStore *ObjectStoreConfig

	// Worker settings
	WorkerPoolSize int
	RetryAttempts  int
	RetryDelay     time.Duration
	PollInterval   time.Duration
	ClaimBatchSize int
	JobTimeout     time.Duration

	// Read every saved snapshot back and compare it with the cleaned dataset
	VerifySnapshots bool

	// Error counts the worker pool tolerates before stopping
	ErrorThresholds ErrorThresholdConfig

	// Rule thresholds
	Rules RuleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RuleConfig holds the tunable thresholds of the cleaning rules
type RuleConfig struct {
	EmptyColumnNullRate   float64
	RepeatedHeaderRatio   float64
	MergedCellMinNullRate float64
	MergedCellMaxNullRate float64
	TypeMismatchLogPct    float64
	MixedTypeFlagPct      float64
	DefaultCountry        string
	IntegerBooleans       bool

	// Phase pipeline
	PhaseEmptyColumnRatio float64
	OutlierFactor         float64
	FillMissing           bool
	BucketAges            bool
}

// ErrorThresholdConfig overrides the error handler's tolerated count per
// category. A negative value keeps the handler's default.
type ErrorThresholdConfig struct {
	Input      int
	Storage    int
	Connection int
	System     int
	Critical   int
}

// LoadConfig loads configuration from environment variables. Values found
// in envFiles (default ".env") are loaded first and never override
// variables already set in the environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{
		StoreDriver:    getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:     getEnv("SQLITE_PATH", "refinery.db"),
		WorkerPoolSize: getEnvAsInt("WORKER_POOL_SIZE", 0), // 0 means use runtime.NumCPU()
		RetryAttempts:  getEnvAsInt("RETRY_ATTEMPTS", 3),
		RetryDelay:     time.Duration(getEnvAsInt("RETRY_DELAY_MS", 1000)) * time.Millisecond,
		PollInterval:   time.Duration(getEnvAsInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		ClaimBatchSize: getEnvAsInt("CLAIM_BATCH_SIZE", 10),
		JobTimeout:     time.Duration(getEnvAsInt("JOB_TIMEOUT_SECONDS", 600)) * time.Second,

		VerifySnapshots: getEnvAsBool("VERIFY_SNAPSHOTS", false),
		ErrorThresholds: ErrorThresholdConfig{
			Input:      getEnvAsInt("ERROR_THRESHOLD_INPUT", -1),
			Storage:    getEnvAsInt("ERROR_THRESHOLD_STORAGE", -1),
			Connection: getEnvAsInt("ERROR_THRESHOLD_CONNECTION", -1),
			System:     getEnvAsInt("ERROR_THRESHOLD_SYSTEM", -1),
			Critical:   getEnvAsInt("ERROR_THRESHOLD_CRITICAL", -1),
		},

		Rules:     loadRuleConfig(),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Warehouse sections are optional, but a partial one is an error
	if os.Getenv("SNOWFLAKE_ACCOUNT") != "" {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load Snowflake configuration: %w", err)
		}
		cfg.Snowflake = snowConfig
	}

	if os.Getenv("POSTGRES_DB") != "" {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load PostgreSQL configuration: %w", err)
		}
		cfg.Postgres = pgConfig
	}

	if os.Getenv("OBJECTSTORE_ENDPOINT") != "" {
		osConfig, err := LoadObjectStoreConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load object store configuration: %w", err)
		}
		cfg.ObjectStore = osConfig
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func loadRuleConfig() RuleConfig {
	g := pipeline.DefaultOptions().Global
	c := cleaner.DefaultOptions()
	return RuleConfig{
		EmptyColumnNullRate:   getEnvAsFloat("RULE_EMPTY_COLUMN_NULL_RATE", g.EmptyColumnNullRate),
		RepeatedHeaderRatio:   getEnvAsFloat("RULE_REPEATED_HEADER_RATIO", g.RepeatedHeaderRatio),
		MergedCellMinNullRate: getEnvAsFloat("RULE_MERGED_CELL_MIN_NULL_RATE", g.MergedCellMinNullRate),
		MergedCellMaxNullRate: getEnvAsFloat("RULE_MERGED_CELL_MAX_NULL_RATE", g.MergedCellMaxNullRate),
		TypeMismatchLogPct:    getEnvAsFloat("RULE_TYPE_MISMATCH_LOG_PCT", g.TypeMismatchLogPct),
		MixedTypeFlagPct:      getEnvAsFloat("RULE_MIXED_TYPE_FLAG_PCT", g.MixedTypeFlagPct),
		DefaultCountry:        getEnv("RULE_DEFAULT_COUNTRY", "US"),
		IntegerBooleans:       getEnvAsBool("RULE_INTEGER_BOOLEANS", false),
		PhaseEmptyColumnRatio: getEnvAsFloat("RULE_PHASE_EMPTY_COLUMN_RATIO", c.EmptyColumnRatio),
		OutlierFactor:         getEnvAsFloat("RULE_OUTLIER_FACTOR", c.OutlierFactor),
		FillMissing:           getEnvAsBool("RULE_FILL_MISSING", c.FillMissing),
		BucketAges:            getEnvAsBool("RULE_BUCKET_AGES", c.BucketAges),
	}
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required")
		}
	case DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.WorkerPoolSize < 0 {
		return errors.New("worker pool size cannot be negative")
	}

	if c.RetryAttempts < 0 {
		return errors.New("retry attempts cannot be negative")
	}

	if c.ClaimBatchSize <= 0 {
		return errors.New("claim batch size must be positive")
	}

	return c.Rules.Validate()
}

// Validate checks that every ratio is within [0, 1]
func (r RuleConfig) Validate() error {
	ratios := map[string]float64{
		"empty column null rate":    r.EmptyColumnNullRate,
		"repeated header ratio":     r.RepeatedHeaderRatio,
		"merged cell min null rate": r.MergedCellMinNullRate,
		"merged cell max null rate": r.MergedCellMaxNullRate,
		"phase empty column ratio":  r.PhaseEmptyColumnRatio,
	}
	for name, v := range ratios {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}
	if r.MergedCellMinNullRate > r.MergedCellMaxNullRate {
		return errors.New("merged cell null-rate band is inverted")
	}
	if r.OutlierFactor <= 0 {
		return errors.New("outlier factor must be positive")
	}
	return nil
}

// PipelineOptions applies the rule thresholds to the default pipeline options
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	r := c.Rules

	opts.Global.EmptyColumnNullRate = r.EmptyColumnNullRate
	opts.Global.RepeatedHeaderRatio = r.RepeatedHeaderRatio
	opts.Global.MergedCellMinNullRate = r.MergedCellMinNullRate
	opts.Global.MergedCellMaxNullRate = r.MergedCellMaxNullRate
	opts.Global.TypeMismatchLogPct = r.TypeMismatchLogPct
	opts.Global.MixedTypeFlagPct = r.MixedTypeFlagPct

	opts.Contact.DefaultCountry = r.DefaultCountry
	opts.Category.IntegerBooleans = r.IntegerBooleans

	opts.Cleaner.EmptyColumnRatio = r.PhaseEmptyColumnRatio
	opts.Cleaner.OutlierFactor = r.OutlierFactor
	opts.Cleaner.FillMissing = r.FillMissing
	opts.Cleaner.BucketAges = r.BucketAges
	return opts
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
