package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/converter"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// defaultBatchSize is the page size of batched table reads
const defaultBatchSize = 10000

// SnowflakeConnector implements the DatabaseConnector interface for Snowflake
type SnowflakeConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
	conv   *converter.TypeConverter
}

// NewSnowflakeConnector creates a new Snowflake connection
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig) (*SnowflakeConnector, error) {
	logger := zap.L().Named("snowflake-connector")

	// Create DSN using Snowflake's DSN builder
	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	// Open connection pool
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set query timeout if configured
	if cfg.QueryTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d",
				int(cfg.QueryTimeout.Seconds())),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	// Verify connection
	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	connector := &SnowflakeConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
		conv:   converter.NewTypeConverter(logger.Named("converter")),
	}

	LogConnectionStats(logger, cfg.Database, db)
	return connector, nil
}

// DB returns the underlying database connection
func (c *SnowflakeConnector) DB() *sql.DB {
	return c.db
}

// Validate verifies the Snowflake connection and access rights
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	// Check basic connectivity and permissions
	var role, database, warehouse string
	err := c.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	// Verify we're connected to the correct database
	if !strings.EqualFold(database, c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, c.cfg.Database)
	}

	// Verify schemas exist
	missingSchemas, err := c.verifySchemas(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify schemas: %w", err)
	}

	if len(missingSchemas) > 0 {
		c.logger.Warn("Some required schemas not found",
			zap.Strings("missing_schemas", missingSchemas))
	}

	return nil
}

// Close closes the database connection
func (c *SnowflakeConnector) Close() error {
	c.logger.Info("Closing Snowflake connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}

// verifySchemas checks that every configured schema exists in the database
func (c *SnowflakeConnector) verifySchemas(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT schema_name FROM information_schema.schemata WHERE catalog_name = ?",
		strings.ToUpper(c.cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to query schemas: %w", err)
	}
	defer rows.Close()

	schemas := make(map[string]bool)
	for rows.Next() {
		var schemaName string
		if err := rows.Scan(&schemaName); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		schemas[strings.ToUpper(schemaName)] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}

	// Check if required schemas exist
	var missingSchemas []string
	for _, schema := range c.cfg.Schemas {
		upperSchema := strings.ToUpper(schema)
		if !schemas[upperSchema] {
			missingSchemas = append(missingSchemas, upperSchema)
		}
	}

	return missingSchemas, nil
}

// ListTables retrieves all tables in a schema
func (c *SnowflakeConnector) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name",
		strings.ToUpper(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tables from schema %s: %w", schema, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, tableName)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return tables, nil
}

// LoadTable reads a table into a dataset, paging through it in batches.
// Unquoted Snowflake identifiers are upper case, so names are upper-cased
// before quoting.
func (c *SnowflakeConnector) LoadTable(ctx context.Context, schema, table string, limit int) (*model.Dataset, error) {
	if !config.AllowsSchema(c.cfg.Schemas, schema) {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotAllowed, schema)
	}

	qualified := converter.QualifiedName(strings.ToUpper(schema), strings.ToUpper(table))
	query := "SELECT * FROM " + qualified
	batchSize := defaultBatchSize
	if limit > 0 && limit < batchSize {
		batchSize = limit
	}

	start := time.Now()
	var scanner *rowScanner
	err := c.BatchQuery(ctx, query, batchSize, func(rows *sql.Rows) (bool, error) {
		if scanner == nil {
			var err error
			if scanner, err = newRowScanner(c.conv, rows); err != nil {
				return false, err
			}
		}
		if err := scanner.scan(rows); err != nil {
			return false, err
		}
		return limit <= 0 || len(scanner.rows) < limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s.%s: %w", schema, table, err)
	}
	if scanner == nil {
		// No rows: read the column names from an empty result
		rows, err := c.db.QueryContext(ctx, query+" LIMIT 0")
		if err != nil {
			return nil, fmt.Errorf("failed to query %s.%s: %w", schema, table, err)
		}
		defer rows.Close()
		return scanDataset(c.conv, rows)
	}

	ds := scanner.dataset()
	c.logger.Info("Loaded table",
		zap.String("table", qualified),
		zap.Int("rows", ds.NumRows()),
		zap.Int("columns", ds.NumCols()),
		zap.Duration("duration", time.Since(start)))
	return ds, nil
}

// BatchQuery fetches data in batches to handle large result sets. The
// processor returns false to stop reading.
func (c *SnowflakeConnector) BatchQuery(
	ctx context.Context,
	query string,
	batchSize int,
	processor func(*sql.Rows) (bool, error),
) error {
	// Set default batch size if not provided
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	timeout := c.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Execute query with LIMIT and OFFSET to fetch data in batches
	offset := 0
	for {
		more, rowCount, err := c.queryBatch(ctx, fmt.Sprintf("%s LIMIT %d OFFSET %d", query, batchSize, offset), timeout, processor)
		if err != nil {
			return fmt.Errorf("batch query failed at offset %d: %w", offset, err)
		}

		// If fewer rows than batch size were returned, we're done
		if !more || rowCount < batchSize {
			return nil
		}

		// Move to next batch
		offset += batchSize
	}
}

func (c *SnowflakeConnector) queryBatch(
	ctx context.Context,
	query string,
	timeout time.Duration,
	processor func(*sql.Rows) (bool, error),
) (bool, int, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := c.db.QueryContext(queryCtx, query)
	if err != nil {
		return false, 0, err
	}
	defer rows.Close()

	rowCount := 0
	for rows.Next() {
		rowCount++
		more, err := processor(rows)
		if err != nil {
			return false, rowCount, fmt.Errorf("row processing failed: %w", err)
		}
		if !more {
			return false, rowCount, nil
		}
	}
	return true, rowCount, rows.Err()
}
