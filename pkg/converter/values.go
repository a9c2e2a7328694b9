package converter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToCell converts a value scanned from a database driver into a dataset
// cell of the given kind
func (c *TypeConverter) ToCell(value interface{}, kind string) (interface{}, error) {
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	if value == nil {
		return nil, nil
	}
	if s, ok := value.(string); ok && s == "" && c.config.EmptyStringAsNull {
		return nil, nil
	}

	switch kind {
	case KindInt:
		return c.convertToInt(value)
	case KindFloat:
		return c.convertToFloat(value)
	case KindBool:
		return c.convertToBoolean(value)
	case KindDatetime:
		return c.convertToTimestamp(value)
	default:
		return c.convertToText(value)
	}
}

// ConvertValue prepares a dataset cell for a column of sqlType in dialect d
func (c *TypeConverter) ConvertValue(value interface{}, sqlType string, d Dialect) (interface{}, error) {
	// Handle NULL values
	if value == nil {
		return nil, nil
	}
	if f, ok := value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil, nil
	}

	switch base := getBaseType(sqlType); base {
	case "TEXT", "VARCHAR":
		return c.convertToText(value)

	case "BIGINT", "INTEGER":
		if b, ok := value.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return c.convertToInt(value)

	case "DOUBLE PRECISION", "REAL":
		return c.convertToFloat(value)

	case "BOOLEAN":
		return c.convertToBoolean(value)

	case "DATE", "TIMESTAMP WITH TIME ZONE":
		return c.convertToTimestamp(value)

	case "UUID":
		return c.convertToText(value)

	default:
		// Default to string conversion for unknown types
		strVal, err := c.convertToText(value)
		if err != nil {
			return nil, fmt.Errorf("fallback string conversion failed for %s in %s: %w", base, d, err)
		}
		return strVal, nil
	}
}

// convertToText converts a value to text. Times keep RFC 3339 so they sort
// and parse back.
func (c *TypeConverter) convertToText(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// convertToInt converts a value to int64
func (c *TypeConverter) convertToInt(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt64 {
			return nil, fmt.Errorf("cannot convert %v to integer without loss", v)
		}
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		// 1e3 style and whole values written with a zero fraction
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return c.convertToInt(f)
		}
		return nil, fmt.Errorf("cannot convert string '%s' to integer", v)
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", value)
	}
}

// convertToFloat converts a value to float64
func (c *TypeConverter) convertToFloat(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert string '%s' to numeric", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to numeric", value)
	}
}

// convertToBoolean converts a value to boolean
func (c *TypeConverter) convertToBoolean(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int64:
		// 0 is false, anything else is true
		return v != 0, nil
	case float64:
		return v != 0.0, nil
	case string:
		v = strings.ToLower(strings.TrimSpace(v))
		switch v {
		case "true", "t", "yes", "y", "1", "on":
			return true, nil
		case "false", "f", "no", "n", "0", "off":
			return false, nil
		default:
			return nil, fmt.Errorf("cannot convert string '%s' to boolean", v)
		}
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

// convertToTimestamp converts a value to time.Time
func (c *TypeConverter) convertToTimestamp(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		if format := DetectTimeFormat(v); format != "" {
			if parsed, err := time.Parse(format, v); err == nil {
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("cannot parse '%s' as timestamp", v)
	case int64:
		// Assume Unix timestamp (seconds since epoch)
		return time.Unix(v, 0).UTC(), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to timestamp", value)
	}
}

// DetectTimeFormat analyzes a value to determine its timestamp format
func DetectTimeFormat(value string) string {
	// Common formats to check
	formats := []string{
		time.RFC3339Nano,                   // ISO8601 with fraction and timezone
		"2006-01-02T15:04:05",              // ISO8601 without timezone
		"2006-01-02 15:04:05",              // SQL timestamp
		"2006-01-02 15:04:05.999999-07",    // Postgres text output
		"2006-01-02",                       // Date only
		"20060102T150405Z",                 // Compact ISO8601
		"2006-01-02T15:04:05.999999-07:00", // ISO8601 with microseconds and TZ
	}

	for _, format := range formats {
		if _, err := time.Parse(format, value); err == nil {
			return format
		}
	}

	return ""
}
