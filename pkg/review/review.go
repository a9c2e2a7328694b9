// Package review applies the decisions a person takes on a cleaned dataset
// after the pipeline ran: filling missing cells by hand and keeping or
// removing flagged outliers. Every change is written to the audit log.
package review

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Formula ids of manual review actions
const (
	ManualFillID      = "REVIEW-01"
	OutlierDecisionID = "REVIEW-02"
)

// outlierAction is the action CLEAN-07 logs for every flagged cell
const outlierAction = "flag_outlier"

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrLengthMismatch  = errors.New("rows and values must be the same length")
	ErrRowOutOfRange   = errors.New("row index out of range")
	ErrInvalidDecision = errors.New("decision must be keep or remove")
)

// MissingField is the null count of one column
type MissingField struct {
	Column     string  `json:"column" yaml:"column"`
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// MissingFields lists the columns that still hold nulls, in column order
func MissingFields(ds *model.Dataset) []MissingField {
	out := []MissingField{}
	if ds == nil || ds.NumRows() == 0 {
		return out
	}
	for i, col := range ds.Columns() {
		n := ds.NullCount(i)
		if n == 0 {
			continue
		}
		out = append(out, MissingField{
			Column:     col,
			Count:      n,
			Percentage: formula.Round(float64(n)/float64(ds.NumRows())*100, 2),
		})
	}
	return out
}

// Outlier is one cell CLEAN-07 flagged for review
type Outlier struct {
	Row           *int   `json:"row_index" yaml:"row_index"`
	Column        string `json:"column" yaml:"column"`
	Value         string `json:"value" yaml:"value"`
	ExpectedRange string `json:"expected_range" yaml:"expected_range"`
}

// Outliers collects the flagged outlier cells from a job's audit log
func Outliers(entries []model.CleaningLogEntry) []Outlier {
	out := []Outlier{}
	for _, e := range entries {
		if e.Action != outlierAction {
			continue
		}
		o := Outlier{Row: e.RowIndex}
		if e.ColumnName != nil {
			o.Column = *e.ColumnName
		}
		if e.OriginalValue != nil {
			o.Value = *e.OriginalValue
		}
		if i := strings.LastIndex(e.Reason, "range "); i >= 0 {
			o.ExpectedRange = e.Reason[i+len("range "):]
		}
		out = append(out, o)
	}
	return out
}

// Decision is the outcome of an outlier review
type Decision string

const (
	Keep   Decision = "keep"
	Remove Decision = "remove"
)

// ParseDecision accepts keep or remove, case-insensitively
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case Keep, Remove:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
}

// Reviewer applies manual changes to a copy of a cleaned dataset
type Reviewer struct {
	rec    *formula.Recorder
	ds     *model.Dataset
	logger *zap.Logger
}

// NewReviewer starts a review of ds for a job. ds itself is not modified.
func NewReviewer(jobID string, ds *model.Dataset, sink audit.Sink, logger *zap.Logger) (*Reviewer, error) {
	if ds == nil {
		return nil, fmt.Errorf("review: %w", model.ErrEmptyDataset)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{
		rec:    formula.NewRecorder(jobID, sink),
		ds:     ds.Clone(),
		logger: logger,
	}, nil
}

// Dataset returns the reviewed dataset
func (r *Reviewer) Dataset() *model.Dataset { return r.ds }

// Changes returns the number of audit entries written so far
func (r *Reviewer) Changes() int { return r.rec.LoggedCount() }

// Fill writes values into column at the given rows, one audit entry per
// cell. Rows outside the dataset are skipped. It returns the number of
// cells written.
func (r *Reviewer) Fill(column string, rows []int, values []interface{}) (int, error) {
	c := r.ds.ColumnIndex(column)
	if c < 0 {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	if len(rows) != len(values) {
		return 0, fmt.Errorf("%w: %d rows, %d values", ErrLengthMismatch, len(rows), len(values))
	}

	filled := 0
	for i, row := range rows {
		if row < 0 || row >= r.ds.NumRows() {
			r.logger.Warn("Skipping fill outside the dataset",
				zap.String("column", column), zap.Int("row", row))
			continue
		}
		original := r.ds.Cell(row, c)
		r.ds.SetCell(row, c, values[i])
		r.rec.Log(ManualFillID, "fill_missing", "Manual fill by user",
			model.AtRow(row), model.InColumn(column), model.WithValues(original, values[i]))
		filled++
	}
	if filled > 0 {
		r.rec.MarkApplied(ManualFillID)
	}
	r.logger.Info("Filled cells", zap.String("column", column), zap.Int("cells", filled))
	return filled, nil
}

// ResolveOutlier keeps or removes the row of a flagged outlier. Removal
// drops the row and shifts every later row up by one; keeping changes
// nothing and writes no entry.
func (r *Reviewer) ResolveOutlier(row int, d Decision) error {
	switch d {
	case Keep:
		r.logger.Info("Outlier kept", zap.Int("row", row))
		return nil
	case Remove:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDecision, d)
	}
	if row < 0 || row >= r.ds.NumRows() {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, row, r.ds.NumRows())
	}
	r.ds.DropRows(map[int]struct{}{row: {}})
	r.rec.Log(OutlierDecisionID, "remove_outlier",
		fmt.Sprintf("User chose to remove outlier at row %d", row),
		model.AtRow(row))
	r.rec.MarkApplied(OutlierDecisionID)
	r.logger.Info("Outlier row removed", zap.Int("row", row), zap.Int("rows_left", r.ds.NumRows()))
	return nil
}

// ParseCell converts raw text to a cell matching the dtype of the column
// it is written to. Text that does not fit the dtype stays a string.
func ParseCell(raw string, column []interface{}) interface{} {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	switch model.InferDtype(column) {
	case "int64":
		if n, ok := formula.ToInt(s); ok {
			return n
		}
	case "float64":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "bool":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case "datetime64":
		if t, ok := formula.ParseDate(s); ok {
			return t
		}
	}
	return raw
}
