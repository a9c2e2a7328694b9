package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/converter"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// ErrSchemaNotAllowed is returned when a table outside the configured
// schemas is requested
var ErrSchemaNotAllowed = errors.New("schema not allowed")

// DatabaseConnector defines the interface for warehouse connectors
type DatabaseConnector interface {
	// DB returns the underlying database connection
	DB() *sql.DB

	// Validate verifies the connection and permissions
	Validate(ctx context.Context) error

	// Close closes the connection and releases resources
	Close() error

	// ListTables returns the tables of a schema
	ListTables(ctx context.Context, schema string) ([]string, error)

	// LoadTable reads up to limit rows of a table into a dataset. A limit
	// of zero or less reads every row.
	LoadTable(ctx context.Context, schema, table string, limit int) (*model.Dataset, error)
}

// ConnStats contains standardized connection statistics
type ConnStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// GetConnectionStats returns connection pool statistics for logging
func GetConnectionStats(db *sql.DB) ConnStats {
	stats := db.Stats()
	return ConnStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		MaxOpenConns:    stats.MaxOpenConnections,
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := GetConnectionStats(db)
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConns),
		zap.Int("max_idle", stats.MaxIdleConns),
		zap.Duration("max_lifetime", stats.ConnMaxLifetime),
		zap.Duration("max_idle_time", stats.ConnMaxIdleTime),
	)
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sql.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}

// rowScanner accumulates query rows into dataset cells, coercing each value
// to the dataset kind of its column's database type
type rowScanner struct {
	conv    *converter.TypeConverter
	columns []string
	kinds   []string
	rows    [][]interface{}
}

func newRowScanner(conv *converter.TypeConverter, rows *sql.Rows) (*rowScanner, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	s := &rowScanner{
		conv:    conv,
		columns: make([]string, len(types)),
		kinds:   make([]string, len(types)),
	}
	for i, t := range types {
		s.columns[i] = t.Name()
		_, scale, ok := t.DecimalSize()
		s.kinds[i] = conv.CellKind(t.DatabaseTypeName(), scale, ok)
	}
	return s, nil
}

// scan reads the current row
func (s *rowScanner) scan(rows *sql.Rows) error {
	raw := make([]interface{}, len(s.columns))
	ptrs := make([]interface{}, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return fmt.Errorf("failed to scan row: %w", err)
	}
	row := make([]interface{}, len(raw))
	for i, v := range raw {
		cell, err := s.conv.ToCell(v, s.kinds[i])
		if err != nil {
			return fmt.Errorf("failed to convert column %s: %w", s.columns[i], err)
		}
		row[i] = cell
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *rowScanner) dataset() *model.Dataset {
	return model.NewDataset(s.columns, s.rows)
}

// scanDataset drains rows into a dataset
func scanDataset(conv *converter.TypeConverter, rows *sql.Rows) (*model.Dataset, error) {
	s, err := newRowScanner(conv, rows)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		if err := s.scan(rows); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return s.dataset(), nil
}
