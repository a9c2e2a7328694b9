package converter

import (
	"strings"

	"go.uber.org/zap"
)

// Dataset dtypes, as reported by model.InferDtype
const (
	KindInt      = "int64"
	KindFloat    = "float64"
	KindBool     = "bool"
	KindDatetime = "datetime64"
	KindObject   = "object"
)

// getBaseType extracts the base type from a complex type definition
func getBaseType(fullType string) string {
	parts := strings.Split(strings.ToUpper(fullType), "(")
	return strings.TrimSpace(parts[0])
}

// SQLType maps a dataset dtype to a column type in dialect d
func (c *TypeConverter) SQLType(dtype string, d Dialect) string {
	if d == SQLite {
		switch dtype {
		case KindInt, KindBool:
			return "INTEGER"
		case KindFloat:
			return "REAL"
		default:
			return "TEXT"
		}
	}

	switch dtype {
	case KindInt:
		return "BIGINT"
	case KindFloat:
		return "DOUBLE PRECISION"
	case KindBool:
		return "BOOLEAN"
	case KindDatetime:
		return "TIMESTAMP WITH TIME ZONE"
	default:
		return "TEXT"
	}
}

// CellKind maps a driver-reported column type name to the dataset dtype its
// values are coerced to. scale is the decimal scale when the driver knows it.
func (c *TypeConverter) CellKind(typeName string, scale int64, scaleKnown bool) string {
	switch base := getBaseType(typeName); base {
	case "INT2", "INT4", "INT8", "SMALLINT", "INTEGER", "INT", "BIGINT", "TINYINT", "BYTEINT":
		return KindInt
	case "FIXED", "NUMBER", "NUMERIC", "DECIMAL":
		if scaleKnown && scale == 0 {
			return KindInt
		}
		return KindFloat
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION":
		return KindFloat
	case "BOOL", "BOOLEAN":
		return KindBool
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP_NTZ", "TIMESTAMP_TZ", "TIMESTAMP_LTZ", "DATETIME":
		return KindDatetime
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "STRING", "UUID", "":
		return KindObject
	default:
		c.logger.Debug("Unmapped database type read as text",
			zap.String("databaseType", base))
		return KindObject
	}
}

// handleVarcharType sizes a text column from its longest value
func (c *TypeConverter) handleVarcharType(maxLen int) string {
	if maxLen > c.config.MaxVarcharLength {
		c.logger.Debug("Keeping long text column as TEXT",
			zap.Int("length", maxLen))
		return "TEXT"
	}

	switch {
	case maxLen > 10000:
		return "TEXT"
	case maxLen > 1000:
		return "VARCHAR(10000)"
	case maxLen > 255:
		return "VARCHAR(1000)"
	case maxLen > 100:
		return "VARCHAR(255)"
	case maxLen > 50:
		return "VARCHAR(100)"
	default:
		return "VARCHAR(50)"
	}
}
