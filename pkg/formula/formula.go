// Package formula holds the contract shared by every cleaning rule: a
// trigger is evaluated, a transform is applied or a review flag is raised,
// and every outcome is written to the audit sink.
package formula

import (
	"fmt"
	"sort"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Policy states whether a formula mutates data or only proposes a change
type Policy string

const (
	Auto     Policy = "auto"
	AskFirst Policy = "ask_first"
)

const (
	// MaxLoggedRows caps per-row log entries for one formula on one column
	MaxLoggedRows = 100
	// MaxFlaggedRows caps the row positions attached to a flag
	MaxFlaggedRows = 50
	// MaxValueLength caps stringified values stored in a log entry
	MaxValueLength = 200
)

// Result is returned by every formula, fired or not
type Result struct {
	FormulaID string `json:"formula_id"`
	Column    string `json:"column,omitempty"`
	Policy    Policy `json:"policy"`
	Changes   int    `json:"changes"`
	Flagged   int    `json:"flagged"`
}

// Fired reports whether the formula changed data or raised a flag
func (r Result) Fired() bool { return r.Changes > 0 || r.Flagged > 0 }

// Output is the immutable record returned by an engine run
type Output[S any] struct {
	Dataset *model.Dataset      `json:"-"`
	Summary S                   `json:"summary"`
	Flags   []model.PendingFlag `json:"flags"`
}

// Recorder accumulates one engine run's audit trail and review flags.
// A Recorder is owned by a single engine run and is not safe for
// concurrent use.
type Recorder struct {
	jobID   string
	sink    audit.Sink
	flags   []model.PendingFlag
	applied map[string]struct{}
	logged  int
}

// NewRecorder creates a recorder writing to sink. A nil sink discards entries.
func NewRecorder(jobID string, sink audit.Sink) *Recorder {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &Recorder{
		jobID:   jobID,
		sink:    sink,
		applied: make(map[string]struct{}),
	}
}

// JobID returns the job the recorder logs against
func (r *Recorder) JobID() string { return r.jobID }

// Log appends an auto-applied entry unless opts mark it pending
func (r *Recorder) Log(formulaID, action, reason string, opts ...model.LogEntryOption) {
	entry := model.NewLogEntry(r.jobID, formulaID, action, reason, opts...)
	entry.OriginalValue = truncate(entry.OriginalValue)
	entry.NewValue = truncate(entry.NewValue)
	r.sink.Append(entry)
	r.logged++
}

// Flag records a pending-review item and writes the matching audit entry
// with WasAutoApplied=false. The two are always written together.
func (r *Recorder) Flag(flag model.PendingFlag) {
	if flag.AffectedColumns == nil {
		flag.AffectedColumns = []string{}
	}
	if flag.AffectedRows == nil {
		flag.AffectedRows = []int{}
	}
	if flag.AffectedCount == 0 {
		flag.AffectedCount = len(flag.AffectedRows)
	}
	if len(flag.AffectedRows) > MaxFlaggedRows {
		flag.AffectedRows = append([]int(nil), flag.AffectedRows[:MaxFlaggedRows]...)
	}
	r.flags = append(r.flags, flag)

	opts := []model.LogEntryOption{model.Pending()}
	if len(flag.AffectedColumns) > 0 {
		opts = append(opts, model.InColumn(flag.AffectedColumns[0]))
	}
	r.Log(flag.FormulaID, "pending_review_"+flag.FlagType, flag.Description, opts...)
}

// MarkApplied records that a formula fired during this run
func (r *Recorder) MarkApplied(formulaID string) {
	r.applied[formulaID] = struct{}{}
}

// Applied returns the sorted ids of formulas that fired
func (r *Recorder) Applied() []string {
	ids := make([]string, 0, len(r.applied))
	for id := range r.applied {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Flags returns a copy of the recorded flags
func (r *Recorder) Flags() []model.PendingFlag {
	return append([]model.PendingFlag{}, r.flags...)
}

// LoggedCount returns the number of audit entries written
func (r *Recorder) LoggedCount() int { return r.logged }

func truncate(s *string) *string {
	if s == nil {
		return nil
	}
	runes := []rune(*s)
	if len(runes) <= MaxValueLength {
		return s
	}
	out := string(runes[:MaxValueLength])
	return &out
}

// Describe renders a short preview of a value list for flag descriptions
func Describe(values []string, limit int) string {
	if len(values) > limit {
		return fmt.Sprintf("%v (+%d more)", values[:limit], len(values)-limit)
	}
	return fmt.Sprintf("%v", values)
}
