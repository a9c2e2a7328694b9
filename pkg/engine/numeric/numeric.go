// Package numeric cleans amounts, quantities, percentages, scores,
// currency codes, ranks and calculated columns.
package numeric

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Output is the result of one numeric and financial run
type Output = formula.Output[formula.TypeSummary]

// Engine runs the AMT, QTY, PCT, SCORE, CUR, RANK and CALC formula sets
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a numeric and financial engine
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// run carries what earlier formulas of a column learn for later ones:
// the currency each amount carried, the detected score scale and the
// derivation of a calculated column
type run struct {
	currencies  map[string][]string
	scales      map[string]Scale
	derivations map[string]Derivation
}

func (r *run) battery() formula.Battery {
	return formula.Battery{
		"AMT": {
			{ID: "AMT-01", Policy: formula.Auto, Apply: r.stripCurrency},
			{ID: "AMT-02", Policy: formula.Auto, Apply: thousandSeparators},
			{ID: "AMT-03", Policy: formula.Auto, Apply: europeanNotation},
			{ID: "AMT-13", Policy: formula.Auto, Apply: amountWords},
			{ID: "AMT-12", Policy: formula.Auto, Apply: scientificNotation},
			{ID: "AMT-08", Policy: formula.Auto, Apply: amountCoercion},
			{ID: "AMT-04", Policy: formula.Auto, Apply: amountDecimals},
			{ID: "AMT-09", Policy: formula.AskFirst, Apply: r.mixedCurrencies},
			{ID: "AMT-05", Policy: formula.AskFirst, Apply: negativeAmounts},
			{ID: "AMT-06", Policy: formula.AskFirst, Apply: amountOutliers},
			{ID: "AMT-07", Policy: formula.AskFirst, Apply: zeroAmounts},
		},
		"QTY": {
			{ID: "QTY-01", Policy: formula.Auto, Apply: quantityWords},
			{ID: "QTY-02", Policy: formula.Auto, Apply: quantityTypos},
			{ID: "QTY-03", Policy: formula.Auto, Apply: approximateQuantities},
			{ID: "QTY-09", Policy: formula.Auto, Apply: quantityUnits},
			{ID: "QTY-04", Policy: formula.AskFirst, Apply: integerQuantities},
			{ID: "QTY-05", Policy: formula.AskFirst, Apply: negativeQuantities},
			{ID: "QTY-06", Policy: formula.AskFirst, Apply: quantityOutliers},
			{ID: "QTY-07", Policy: formula.AskFirst, Apply: zeroQuantities},
		},
		"PCT": {
			{ID: "PCT-01", Policy: formula.Auto, Apply: percentSymbols},
			{ID: "PCT-06", Policy: formula.Auto, Apply: percentWords},
			{ID: "PCT-03", Policy: formula.Auto, Apply: decimalPercentages},
			{ID: "PCT-02", Policy: formula.AskFirst, Apply: percentRange},
			{ID: "PCT-04", Policy: formula.AskFirst, Apply: percentSpikes},
		},
		"SCORE": {
			{ID: "SCORE-01", Policy: formula.Auto, Apply: r.detectScale},
			{ID: "SCORE-13", Policy: formula.Auto, Apply: gradeDescriptors},
			{ID: "SCORE-12", Policy: formula.Auto, Apply: ratings},
			{ID: "SCORE-03", Policy: formula.Auto, Apply: r.letterGPA},
			{ID: "SCORE-05", Policy: formula.Auto, Apply: r.letterPercent},
			{ID: "SCORE-10", Policy: formula.Auto, Apply: scoreDecimals},
			{ID: "SCORE-02", Policy: formula.AskFirst, Apply: r.scoreRange},
		},
		"CUR": {
			{ID: "CUR-03", Policy: formula.Auto, Apply: currencySymbolsToCodes},
			{ID: "CUR-02", Policy: formula.Auto, Apply: currencyUppercase},
			{ID: "CUR-01", Policy: formula.AskFirst, Apply: currencyCodes},
		},
		"RANK": {
			{ID: "RANK-01", Policy: formula.Auto, Apply: ordinalsToIntegers},
			{ID: "RANK-04", Policy: formula.AskFirst, Apply: nonPositiveRanks},
			{ID: "RANK-02", Policy: formula.AskFirst, Apply: duplicateRanks},
			{ID: "RANK-03", Policy: formula.AskFirst, Apply: rankGaps},
		},
		"CALC": {
			{ID: "CALC-01", Policy: formula.Auto, Apply: r.discoverDerivation},
			{ID: "CALC-02", Policy: formula.AskFirst, Apply: r.verifyDerivation},
			{ID: "CALC-03", Policy: formula.Auto, Apply: r.fillDerived},
		},
	}
}

// Run applies the numeric and financial formulas to a copy of ds
func (e *Engine) Run(jobID string, ds *model.Dataset, sink audit.Sink, htypes model.HtypeMap) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("numeric financial rules: %w", model.ErrEmptyDataset)
	}
	r := &run{
		currencies:  make(map[string][]string),
		scales:      make(map[string]Scale),
		derivations: make(map[string]Derivation),
	}
	rec := formula.NewRecorder(jobID, sink)
	out := ds.Clone()
	summary := formula.RunBattery(rec, out, htypes, r.battery())

	e.logger.Info("Numeric financial rules completed",
		zap.String("job_id", jobID),
		zap.Strings("columns", summary.ColumnsProcessed),
		zap.Int("changes", summary.TotalChanges),
		zap.Int("flags", summary.TotalFlags),
		zap.Any("scales", r.scales),
		zap.Any("derivations", r.derivations))

	return &Output{Dataset: out, Summary: summary, Flags: rec.Flags()}, nil
}
