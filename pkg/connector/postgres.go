package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/converter"
	"github.com/David-Botos/data-refinery/pkg/model"
)

const ddlTimeout = 30 * time.Second

// PostgresConnector implements the DatabaseConnector interface for PostgreSQL
type PostgresConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
	conv   *converter.TypeConverter
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig) (*PostgresConnector, error) {
	logger := zap.L().Named("postgres-connector")

	// Log connection attempt
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	// Open database connection
	db, err := sql.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	// Verify connection
	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	connector := &PostgresConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
		conv:   converter.NewTypeConverter(logger.Named("converter")),
	}

	LogConnectionStats(logger, cfg.Database, db)
	return connector, nil
}

// DB returns the underlying database connection
func (c *PostgresConnector) DB() *sql.DB {
	return c.db
}

// Validate verifies the PostgreSQL connection and that the configured
// schemas exist
func (c *PostgresConnector) Validate(ctx context.Context) error {
	// Check database version
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	for _, schema := range c.cfg.Schemas {
		var exists bool
		err := c.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT FROM information_schema.schemata WHERE schema_name = $1)`,
			schema).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to verify schema %s: %w", schema, err)
		}
		if !exists {
			c.logger.Warn("Configured schema not found", zap.String("schema", schema))
		}
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Database),
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port))

	return nil
}

// Close closes the database connection
func (c *PostgresConnector) Close() error {
	c.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}

// EnsureSchema creates a schema if it doesn't exist
func (c *PostgresConnector) EnsureSchema(ctx context.Context, schema string) error {
	if _, err := c.ExecWithTimeout(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(schema), ddlTimeout); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	c.logger.Debug("Schema ready", zap.String("schema", schema))
	return nil
}

// ExecWithTimeout executes a query with a timeout
func (c *PostgresConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.ExecContext(queryCtx, query, args...)
}

// ListTables returns the base tables of a schema
func (c *PostgresConnector) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tables from schema %s: %w", schema, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// LoadTable reads a table into a dataset
func (c *PostgresConnector) LoadTable(ctx context.Context, schema, table string, limit int) (*model.Dataset, error) {
	if !config.AllowsSchema(c.cfg.Schemas, schema) {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotAllowed, schema)
	}

	query := selectTableQuery(converter.QualifiedName(schema, table), limit, "$1")
	args := []interface{}{}
	if limit > 0 {
		args = append(args, limit)
	}

	queryCtx := ctx
	if c.cfg.StatementTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.cfg.StatementTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := c.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	ds, err := scanDataset(c.conv, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s.%s: %w", schema, table, err)
	}

	c.logger.Info("Loaded table",
		zap.String("table", schema+"."+table),
		zap.Int("rows", ds.NumRows()),
		zap.Int("columns", ds.NumCols()),
		zap.Duration("duration", time.Since(start)))
	return ds, nil
}

// selectTableQuery renders SELECT * with an optional bound LIMIT
func selectTableQuery(qualified string, limit int, placeholder string) string {
	query := "SELECT * FROM " + qualified
	if limit > 0 {
		query += " LIMIT " + placeholder
	}
	return query
}
