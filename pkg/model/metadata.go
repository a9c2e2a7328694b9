package model

import (
	"strings"
	"time"
)

// TableMetadata contains the structure information for a warehouse table
// or for a cleaned dataset snapshot
type TableMetadata struct {
	Schema  string   // Schema name
	Table   string   // Table name
	Columns []Column // Column definitions
}

// Column represents metadata about a table column
type Column struct {
	Name     string // Column name
	DataType string // Source data type (warehouse type or inferred dtype)
	PgType   string // Mapped PostgreSQL type
	Nullable bool   // Whether column allows NULL values
}

// ColumnMetadata is the per-column profile produced after cleaning
type ColumnMetadata struct {
	Dtype       string        `json:"dtype" yaml:"dtype"`
	NullCount   int           `json:"null_count" yaml:"null_count"`
	UniqueCount int           `json:"unique_count" yaml:"unique_count"`
	Sample      []interface{} `json:"sample" yaml:"sample"`
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (tm *TableMetadata) GetColumnByName(name string) *Column {
	normalizedName := strings.ToLower(name)
	for i, col := range tm.Columns {
		if strings.ToLower(col.Name) == normalizedName {
			return &tm.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in order
func (tm *TableMetadata) ColumnNames() []string {
	names := make([]string, len(tm.Columns))
	for i, c := range tm.Columns {
		names[i] = c.Name
	}
	return names
}

// InferDtype reports the dominant storage kind of a column's values using
// the names pandas-style consumers expect: int64, float64, bool,
// datetime64, object. All-null columns report object.
func InferDtype(values []interface{}) string {
	var ints, floats, bools, times, other int
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int64, int:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case time.Time:
			times++
		default:
			other++
		}
	}
	switch {
	case other > 0:
		return "object"
	case ints > 0 && floats == 0 && bools == 0 && times == 0:
		return "int64"
	case floats > 0 && bools == 0 && times == 0:
		return "float64"
	case bools > 0 && ints == 0 && floats == 0 && times == 0:
		return "bool"
	case times > 0 && ints == 0 && floats == 0 && bools == 0:
		return "datetime64"
	}
	return "object"
}

// BuildColumnMetadata profiles every column of a dataset
func BuildColumnMetadata(ds *Dataset) map[string]ColumnMetadata {
	out := make(map[string]ColumnMetadata, ds.NumCols())
	for i, name := range ds.columns {
		values := ds.Column(i)
		sample := make([]interface{}, 0, 3)
		for _, v := range values {
			if IsNull(v) {
				continue
			}
			sample = append(sample, Stringify(v))
			if len(sample) == 3 {
				break
			}
		}
		out[name] = ColumnMetadata{
			Dtype:       InferDtype(values),
			NullCount:   ds.NullCount(i),
			UniqueCount: DistinctCount(values),
			Sample:      sample,
		}
	}
	return out
}
