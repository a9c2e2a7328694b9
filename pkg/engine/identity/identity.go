// Package identity cleans personal and identity columns: full names, name
// parts, record identifiers, ages and gender.
package identity

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Output is the result of one identity run
type Output = formula.Output[formula.TypeSummary]

// battery lists the formulas per formula set in execution order. Auto
// transforms run before the ask-first checks so flags see cleaned values.
var battery = formula.Battery{
	"FNAME": {
		{ID: "FNAME-02", Policy: formula.Auto, Apply: whitespace("FNAME-02")},
		{ID: "FNAME-06", Policy: formula.Auto, Apply: placeholders("FNAME-06")},
		{ID: "FNAME-03", Policy: formula.Auto, Apply: salutations("FNAME-03")},
		{ID: "FNAME-10", Policy: formula.Auto, Apply: nameSwap},
		{ID: "FNAME-04", Policy: formula.Auto, Apply: specialChars},
		{ID: "FNAME-01", Policy: formula.Auto, Apply: titleCase("FNAME-01")},
		{ID: "FNAME-14", Policy: formula.Auto, Apply: suffixes("FNAME-14")},
		{ID: "FNAME-05", Policy: formula.AskFirst, Apply: numericNames},
		{ID: "FNAME-08", Policy: formula.AskFirst, Apply: singleWord},
		{ID: "FNAME-09", Policy: formula.AskFirst, Apply: initialsOnly},
		{ID: "FNAME-07", Policy: formula.AskFirst, Apply: duplicateNames},
		{ID: "FNAME-11", Policy: formula.AskFirst, Apply: fuzzyDuplicates},
	},
	"SNAME": {
		{ID: "SNAME-02", Policy: formula.Auto, Apply: whitespace("SNAME-02")},
		{ID: "SNAME-08", Policy: formula.Auto, Apply: placeholders("SNAME-08")},
		{ID: "SNAME-03", Policy: formula.Auto, Apply: salutations("SNAME-03")},
		{ID: "SNAME-01", Policy: formula.Auto, Apply: titleCase("SNAME-01")},
		{ID: "SNAME-05", Policy: formula.Auto, Apply: suffixes("SNAME-05")},
	},
	"UID": {
		{ID: "UID-04", Policy: formula.Auto, Apply: lockIDType},
		{ID: "UID-08", Policy: formula.Auto, Apply: stripIDSymbols},
		{ID: "UID-02", Policy: formula.Auto, Apply: zeroPadIDs},
		{ID: "UID-01", Policy: formula.AskFirst, Apply: duplicateIDs},
		{ID: "UID-05", Policy: formula.AskFirst, Apply: nullIDs},
		{ID: "UID-03", Policy: formula.AskFirst, Apply: mixedPrefixes},
	},
	"AGE": {
		{ID: "AGE-01", Policy: formula.Auto, Apply: ageWords},
		{ID: "AGE-10", Policy: formula.Auto, Apply: ageStrings},
		{ID: "AGE-05", Policy: formula.Auto, Apply: ageRounding},
		{ID: "AGE-09", Policy: formula.AskFirst, Apply: negativeAges},
		{ID: "AGE-04", Policy: formula.AskFirst, Apply: ageRange},
		{ID: "AGE-03", Policy: formula.AskFirst, Apply: nonNumericAges},
	},
	"GEN": {
		{ID: "GEN-04", Policy: formula.Auto, Apply: genderCodes},
		{ID: "GEN-01", Policy: formula.Auto, Apply: binaryGender},
		{ID: "GEN-02", Policy: formula.Auto, Apply: nonBinaryGender},
		{ID: "GEN-03", Policy: formula.Auto, Apply: genderRefusals},
		{ID: "GEN-05", Policy: formula.AskFirst, Apply: unknownGender},
	},
}

// Engine runs the identity formula sets
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an identity engine
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Run applies the identity formulas to a copy of ds for every column whose
// type falls in this engine's formula sets
func (e *Engine) Run(jobID string, ds *model.Dataset, sink audit.Sink, htypes model.HtypeMap) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("identity rules: %w", model.ErrEmptyDataset)
	}
	rec := formula.NewRecorder(jobID, sink)
	out := ds.Clone()
	summary := formula.RunBattery(rec, out, htypes, battery)

	e.logger.Info("Identity rules completed",
		zap.String("job_id", jobID),
		zap.Strings("columns", summary.ColumnsProcessed),
		zap.Int("changes", summary.TotalChanges),
		zap.Int("flags", summary.TotalFlags))

	return &Output{Dataset: out, Summary: summary, Flags: rec.Flags()}, nil
}
