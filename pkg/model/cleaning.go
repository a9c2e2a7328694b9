package model

import (
	"time"
)

// CleaningLogEntry is one append-only audit record of a formula firing
type CleaningLogEntry struct {
	JobID          string    `json:"job_id" db:"job_id"`
	RowIndex       *int      `json:"row_index,omitempty" db:"row_index"`         // Row position at the time the formula fired
	ColumnName     *string   `json:"column_name,omitempty" db:"column_name"`     // Column the formula touched
	Action         string    `json:"action" db:"action"`                         // e.g. "encoding_artifact_fixed"
	Reason         string    `json:"reason" db:"reason"`                         // Human readable explanation
	OriginalValue  *string   `json:"original_value,omitempty" db:"original_value"`
	NewValue       *string   `json:"new_value,omitempty" db:"new_value"`
	FormulaID      string    `json:"formula_id" db:"formula_id"`                 // e.g. "GLOBAL-11"
	WasAutoApplied bool      `json:"was_auto_applied" db:"was_auto_applied"`     // false means pending review
	Timestamp      time.Time `json:"timestamp" db:"logged_at"`
}

// PendingFlag is a proposed change surfaced for human review
type PendingFlag struct {
	FormulaID       string                 `json:"formula_id" yaml:"formula_id"`
	FlagType        string                 `json:"flag_type" yaml:"flag_type"`
	Description     string                 `json:"description" yaml:"description"`
	AffectedColumns []string               `json:"affected_columns" yaml:"affected_columns"`
	AffectedRows    []int                  `json:"affected_rows" yaml:"affected_rows"`
	AffectedCount   int                    `json:"affected_count" yaml:"affected_count"`
	SuggestedAction string                 `json:"suggested_action,omitempty" yaml:"suggested_action,omitempty"`
	Details         map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// LogEntryOption sets an optional field on a CleaningLogEntry
type LogEntryOption func(*CleaningLogEntry)

// AtRow records the row position
func AtRow(row int) LogEntryOption {
	return func(e *CleaningLogEntry) { e.RowIndex = &row }
}

// InColumn records the column name
func InColumn(col string) LogEntryOption {
	return func(e *CleaningLogEntry) { e.ColumnName = &col }
}

// WithValues records the stringified original and new cell values
func WithValues(original, updated interface{}) LogEntryOption {
	return func(e *CleaningLogEntry) {
		e.OriginalValue = StringPtr(original)
		e.NewValue = StringPtr(updated)
	}
}

// WithNewValue records only the new value
func WithNewValue(updated interface{}) LogEntryOption {
	return func(e *CleaningLogEntry) { e.NewValue = StringPtr(updated) }
}

// WithOriginalValue records only the original value
func WithOriginalValue(original interface{}) LogEntryOption {
	return func(e *CleaningLogEntry) { e.OriginalValue = StringPtr(original) }
}

// Pending marks the entry as not applied
func Pending() LogEntryOption {
	return func(e *CleaningLogEntry) { e.WasAutoApplied = false }
}

// NewLogEntry creates an auto-applied entry stamped with the current UTC time
func NewLogEntry(jobID, formulaID, action, reason string, opts ...LogEntryOption) CleaningLogEntry {
	e := CleaningLogEntry{
		JobID:          jobID,
		FormulaID:      formulaID,
		Action:         action,
		Reason:         reason,
		WasAutoApplied: true,
		Timestamp:      time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}
