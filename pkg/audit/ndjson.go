package audit

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/David-Botos/data-refinery/pkg/model"
)

// NDJSONExporter writes cleaning log entries as newline-delimited JSON.
type NDJSONExporter struct {
	enc *json.Encoder
}

func NewNDJSONExporter(w io.Writer) *NDJSONExporter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONExporter{enc: enc}
}

// Export writes one entry per line
func (e *NDJSONExporter) Export(entries []model.CleaningLogEntry) error {
	for i, entry := range entries {
		if err := e.enc.Encode(exportEntryFromModel(entry)); err != nil {
			return fmt.Errorf("failed to encode log entry %d: %w", i, err)
		}
	}
	return nil
}

type exportEntry struct {
	JobID          string  `json:"job_id"`
	FormulaID      string  `json:"formula_id"`
	Action         string  `json:"action"`
	Reason         string  `json:"reason"`
	RowIndex       *int    `json:"row_index,omitempty"`
	ColumnName     *string `json:"column_name,omitempty"`
	OriginalValue  *string `json:"original_value,omitempty"`
	NewValue       *string `json:"new_value,omitempty"`
	WasAutoApplied bool    `json:"was_auto_applied"`
	Timestamp      string  `json:"timestamp"`
}

func exportEntryFromModel(entry model.CleaningLogEntry) exportEntry {
	return exportEntry{
		JobID:          entry.JobID,
		FormulaID:      entry.FormulaID,
		Action:         entry.Action,
		Reason:         entry.Reason,
		RowIndex:       entry.RowIndex,
		ColumnName:     entry.ColumnName,
		OriginalValue:  entry.OriginalValue,
		NewValue:       entry.NewValue,
		WasAutoApplied: entry.WasAutoApplied,
		Timestamp:      entry.Timestamp.UTC().Format(timeFormatRFC3339Nano),
	}
}

const timeFormatRFC3339Nano = "2006-01-02T15:04:05.999999999Z07:00"
