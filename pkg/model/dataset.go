package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyDataset is returned when an operation needs at least one column
var ErrEmptyDataset = errors.New("dataset has no columns")

// ErrColumnNotFound is returned when a named column does not exist
var ErrColumnNotFound = errors.New("column not found")

// Dataset is an ordered, mutable table. Cells are nil (null), string, int64,
// float64, bool or time.Time. Row positions are the row indexes used in audit
// entries until an operation reindexes by removing rows.
type Dataset struct {
	columns []string
	rows    [][]interface{}
}

// NewDataset creates a dataset from column names and row-major cells.
// Short rows are padded with nulls and long rows are truncated.
func NewDataset(columns []string, rows [][]interface{}) *Dataset {
	ds := &Dataset{
		columns: append([]string(nil), columns...),
		rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		row := make([]interface{}, len(columns))
		copy(row, r)
		for i := range row {
			row[i] = normalizeCell(row[i])
		}
		ds.rows = append(ds.rows, row)
	}
	return ds
}

// FromColumns builds a dataset from named columns of equal length.
func FromColumns(names []string, values [][]interface{}) (*Dataset, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("column count mismatch: %d names, %d value slices", len(names), len(values))
	}
	n := 0
	if len(values) > 0 {
		n = len(values[0])
	}
	for i, v := range values {
		if len(v) != n {
			return nil, fmt.Errorf("column %q has %d values, expected %d", names[i], len(v), n)
		}
	}
	rows := make([][]interface{}, n)
	for r := 0; r < n; r++ {
		row := make([]interface{}, len(names))
		for c := range names {
			row[c] = values[c][r]
		}
		rows[r] = row
	}
	return NewDataset(names, rows), nil
}

// normalizeCell folds the numeric kinds callers commonly pass into the
// canonical int64/float64 cell types.
func normalizeCell(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	default:
		return v
	}
}

// Clone returns a deep copy of the dataset
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		columns: append([]string(nil), d.columns...),
		rows:    make([][]interface{}, len(d.rows)),
	}
	for i, r := range d.rows {
		out.rows[i] = append([]interface{}(nil), r...)
	}
	return out
}

// Columns returns a copy of the column names
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// NumRows returns the number of rows
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumCols returns the number of columns
func (d *Dataset) NumCols() int { return len(d.columns) }

// ColumnName returns the name of the column at idx
func (d *Dataset) ColumnName(idx int) string { return d.columns[idx] }

// ColumnIndex returns the position of the first column with the given name, or -1
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column with the given name exists
func (d *Dataset) HasColumn(name string) bool { return d.ColumnIndex(name) >= 0 }

// Column returns a copy of the values of the column at idx
func (d *Dataset) Column(idx int) []interface{} {
	out := make([]interface{}, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[idx]
	}
	return out
}

// ColumnByName returns a copy of the named column's values
func (d *Dataset) ColumnByName(name string) ([]interface{}, bool) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	return d.Column(idx), true
}

// Cell returns the value at (row, col)
func (d *Dataset) Cell(row, col int) interface{} { return d.rows[row][col] }

// SetCell sets the value at (row, col)
func (d *Dataset) SetCell(row, col int, v interface{}) { d.rows[row][col] = normalizeCell(v) }

// Row returns a copy of the row at idx
func (d *Dataset) Row(idx int) []interface{} { return append([]interface{}(nil), d.rows[idx]...) }

// SetColumnName renames the column at idx
func (d *Dataset) SetColumnName(idx int, name string) { d.columns[idx] = name }

// SetColumns replaces every column name at once
func (d *Dataset) SetColumns(names []string) error {
	if len(names) != len(d.columns) {
		return fmt.Errorf("expected %d column names, got %d", len(d.columns), len(names))
	}
	copy(d.columns, names)
	return nil
}

// DropRows removes the rows whose positions are in drop and reindexes.
func (d *Dataset) DropRows(drop map[int]struct{}) int {
	if len(drop) == 0 {
		return 0
	}
	kept := d.rows[:0]
	removed := 0
	for i, r := range d.rows {
		if _, ok := drop[i]; ok {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	d.rows = kept
	return removed
}

// Slice keeps rows in [from, len) and reindexes
func (d *Dataset) Slice(from int) {
	if from <= 0 {
		return
	}
	if from >= len(d.rows) {
		d.rows = d.rows[:0]
		return
	}
	d.rows = append([][]interface{}(nil), d.rows[from:]...)
}

// DropColumn removes the column at idx
func (d *Dataset) DropColumn(idx int) {
	d.columns = append(d.columns[:idx], d.columns[idx+1:]...)
	for i, r := range d.rows {
		d.rows[i] = append(r[:idx], r[idx+1:]...)
	}
}

// AddColumn appends a column. values may be nil for an all-null column.
func (d *Dataset) AddColumn(name string, values []interface{}) {
	d.InsertColumn(len(d.columns), name, values)
}

// InsertColumn inserts a column at position idx
func (d *Dataset) InsertColumn(idx int, name string, values []interface{}) {
	if idx < 0 || idx > len(d.columns) {
		idx = len(d.columns)
	}
	d.columns = append(d.columns, "")
	copy(d.columns[idx+1:], d.columns[idx:])
	d.columns[idx] = name
	for i, r := range d.rows {
		var v interface{}
		if i < len(values) {
			v = normalizeCell(values[i])
		}
		r = append(r, nil)
		copy(r[idx+1:], r[idx:])
		r[idx] = v
		d.rows[i] = r
	}
}

// SetColumn overwrites the values of the column at idx
func (d *Dataset) SetColumn(idx int, values []interface{}) {
	for i := range d.rows {
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		d.rows[i][idx] = normalizeCell(v)
	}
}

// NullCount returns the number of null cells in the column at idx
func (d *Dataset) NullCount(idx int) int {
	n := 0
	for _, r := range d.rows {
		if r[idx] == nil {
			n++
		}
	}
	return n
}

// IsNull reports whether v is a null cell
func IsNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

// NonNull returns the non-null values of a column slice
func NonNull(values []interface{}) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		if !IsNull(v) {
			out = append(out, v)
		}
	}
	return out
}

// Stringify renders a cell as text. Null renders as the empty string.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatFloat(x, 'f', 1, 64)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", x)
	}
}

// StringPtr stringifies a cell for an audit entry; null yields nil
func StringPtr(v interface{}) *string {
	if IsNull(v) {
		return nil
	}
	s := Stringify(v)
	return &s
}

// Equal compares two cells for value equality
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int64:
			return x == float64(y)
		}
		return false
	}
	return a == b
}

// Key returns a comparable key for a cell, used for distinct counting
func Key(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "\x00null"
	case string:
		return "s:" + x
	case int64:
		return "n:" + strconv.FormatFloat(float64(x), 'g', -1, 64)
	case float64:
		return "n:" + strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(x)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	default:
		return "o:" + fmt.Sprintf("%v", x)
	}
}

// RowKey returns a comparable key for a whole row
func RowKey(row []interface{}) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(Key(v))
		b.WriteByte('\x1f')
	}
	return b.String()
}

// DistinctCount returns the number of distinct non-null values
func DistinctCount(values []interface{}) int {
	seen := make(map[string]struct{})
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		seen[Key(v)] = struct{}{}
	}
	return len(seen)
}
