// Package datetime cleans date, time, timestamp, duration and fiscal
// period columns. Parsing is permissive: anything a person would read as a
// date is parsed rather than rejected.
package datetime

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Output is the result of one date and time run
type Output = formula.Output[formula.TypeSummary]

// Options configures the engine
type Options struct {
	// ReferenceDate anchors relative phrases and the future/DOB checks.
	// The zero value means the wall clock at the start of each run.
	ReferenceDate time.Time
}

// Engine runs the DATE, TIME, DTM, DUR and FISC formula sets
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates a date and time engine
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, logger: logger}
}

// run carries per-call state: the reference date and the raw values each
// column held before parsing, which later checks compare against
type run struct {
	ref       time.Time
	originals map[string][]interface{}
}

func (r *run) capture(c *formula.Column) {
	r.originals[c.Name] = c.Values()
}

func (r *run) original(c *formula.Column, row int) interface{} {
	values := r.originals[c.Name]
	if row < len(values) {
		return values[row]
	}
	return nil
}

func (r *run) battery() formula.Battery {
	return formula.Battery{
		"DATE": {
			{ID: "DATE-03", Policy: formula.AskFirst, Apply: r.invalidDates},
			{ID: "DATE-10", Policy: formula.Auto, Apply: datePlaceholderNulls},
			{ID: "DATE-09", Policy: formula.Auto, Apply: excelSerials},
			{ID: "DATE-14", Policy: formula.Auto, Apply: r.relativeDates},
			{ID: "DATE-08", Policy: formula.Auto, Apply: partialDates},
			{ID: "DATE-01", Policy: formula.Auto, Apply: r.parseDates},
			{ID: "DATE-07", Policy: formula.Auto, Apply: lockType("DATE-07", "Date type enforcement")},
			{ID: "DATE-12", Policy: formula.Auto, Apply: weekdays},
			{ID: "DATE-02", Policy: formula.AskFirst, Apply: r.ambiguousDates},
			{ID: "DATE-04", Policy: formula.AskFirst, Apply: r.futureDates},
			{ID: "DATE-05", Policy: formula.AskFirst, Apply: r.birthDates},
		},
		"TIME": {
			{ID: "TIME-04", Policy: formula.Auto, Apply: timezones},
			{ID: "TIME-01", Policy: formula.Auto, Apply: twentyFourHour},
			{ID: "TIME-02", Policy: formula.Auto, Apply: clockFormat},
			{ID: "TIME-05", Policy: formula.Auto, Apply: timeBuckets},
			{ID: "TIME-03", Policy: formula.AskFirst, Apply: invalidTimes},
		},
		"DTM": {
			{ID: "DTM-01", Policy: formula.Auto, Apply: r.parseTimestamps},
			{ID: "DTM-05", Policy: formula.Auto, Apply: lockType("DTM-05", "Datetime type enforcement")},
			{ID: "DTM-02", Policy: formula.Auto, Apply: splitTimestamps},
			{ID: "DTM-03", Policy: formula.Auto, Apply: r.isoTimestamps},
			{ID: "DTM-06", Policy: formula.AskFirst, Apply: duplicateTimestamps},
		},
		"DUR": {
			{ID: "DUR-01", Policy: formula.Auto, Apply: r.durationWords},
			{ID: "DUR-02", Policy: formula.Auto, Apply: r.durationUnits},
			{ID: "DUR-03", Policy: formula.Auto, Apply: durationFormat},
			{ID: "DUR-04", Policy: formula.AskFirst, Apply: negativeDurations},
			{ID: "DUR-06", Policy: formula.AskFirst, Apply: durationOutliers},
			{ID: "DUR-07", Policy: formula.AskFirst, Apply: r.unitlessDurations},
		},
		"FISC": {
			{ID: "FISC-01", Policy: formula.Auto, Apply: fiscalYears},
			{ID: "FISC-02", Policy: formula.Auto, Apply: fiscalQuarters},
			{ID: "FISC-03", Policy: formula.Auto, Apply: academicYears},
			{ID: "FISC-04", Policy: formula.Auto, Apply: terms},
			{ID: "FISC-05", Policy: formula.Auto, Apply: fiscalSortKeys},
			{ID: "FISC-07", Policy: formula.AskFirst, Apply: missingPeriods},
		},
	}
}

// Run applies the date and time formulas to a copy of ds
func (e *Engine) Run(jobID string, ds *model.Dataset, sink audit.Sink, htypes model.HtypeMap) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("date time rules: %w", model.ErrEmptyDataset)
	}
	ref := e.opts.ReferenceDate
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	r := &run{ref: ref, originals: make(map[string][]interface{})}
	rec := formula.NewRecorder(jobID, sink)
	out := ds.Clone()
	summary := formula.RunBattery(rec, out, htypes, r.battery())

	e.logger.Info("Date time rules completed",
		zap.String("job_id", jobID),
		zap.Time("reference_date", ref),
		zap.Strings("columns", summary.ColumnsProcessed),
		zap.Int("changes", summary.TotalChanges),
		zap.Int("flags", summary.TotalFlags))

	return &Output{Dataset: out, Summary: summary, Flags: rec.Flags()}, nil
}
