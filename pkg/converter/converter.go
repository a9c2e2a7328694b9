package converter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/model"
)

// Dialect selects the SQL flavour of generated types and statements
type Dialect string

// Supported dialects
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// TypeConverter handles mapping and conversion of data types and values
// between datasets and SQL tables
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Maximum VARCHAR length before falling back to TEXT
	MaxVarcharLength int
	// Whether to narrow snapshot column types from their values
	OptimizeStorage bool
	// Whether to treat empty strings read from a warehouse as NULL
	EmptyStringAsNull bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		MaxVarcharLength:  10000,
		OptimizeStorage:   true,
		EmptyStringAsNull: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// SnapshotMetadata describes ds as a table in dialect d. Column types come
// from the inferred dtype of each column, narrowed from the values and the
// column's HTYPE when storage optimization is on.
func (c *TypeConverter) SnapshotMetadata(schema, table string, ds *model.Dataset, htypes model.HtypeMap, d Dialect) *model.TableMetadata {
	meta := &model.TableMetadata{
		Schema:  schema,
		Table:   table,
		Columns: make([]model.Column, 0, ds.NumCols()),
	}
	for i, name := range ds.Columns() {
		values := ds.Column(i)
		dtype := model.InferDtype(values)
		col := model.Column{
			Name:     name,
			DataType: dtype,
			PgType:   c.SQLType(dtype, d),
			Nullable: true,
		}
		if c.config.OptimizeStorage {
			col = c.optimizeColumn(col, values, htypes[name], d)
		}
		meta.Columns = append(meta.Columns, col)
	}
	return meta
}

// GenerateColumnDefinitions creates column definitions for a CREATE TABLE
// statement
func (c *TypeConverter) GenerateColumnDefinitions(metadata *model.TableMetadata) ([]string, error) {
	definitions := make([]string, 0, len(metadata.Columns))
	seen := make(map[string]struct{}, len(metadata.Columns))

	for _, col := range metadata.Columns {
		if col.Name == "" {
			return nil, errors.New("column name cannot be empty")
		}
		// SQLite compares column names case-insensitively
		key := strings.ToLower(col.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[key] = struct{}{}

		if col.PgType == "" {
			return nil, fmt.Errorf("column %q has no SQL type", col.Name)
		}

		nullability := "NULL"
		if !col.Nullable {
			nullability = "NOT NULL"
		}

		definitions = append(definitions, fmt.Sprintf("%s %s %s",
			pq.QuoteIdentifier(col.Name),
			col.PgType,
			nullability))
	}

	return definitions, nil
}

// CreateTableStatement renders CREATE TABLE IF NOT EXISTS for metadata.
// extra definitions are placed before the dataset columns.
func (c *TypeConverter) CreateTableStatement(metadata *model.TableMetadata, extra ...string) (string, error) {
	defs, err := c.GenerateColumnDefinitions(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to generate column definitions: %w", err)
	}
	defs = append(append([]string(nil), extra...), defs...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		QualifiedName(metadata.Schema, metadata.Table), strings.Join(defs, ",\n  ")), nil
}

// QualifiedName quotes a table name and its optional schema
func QualifiedName(schema, table string) string {
	if schema == "" {
		return pq.QuoteIdentifier(table)
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}
