// Package category cleans boolean flags, category labels, status fields,
// survey responses and multi-value tag columns.
package category

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Output is the result of one boolean and category run
type Output = formula.Output[formula.TypeSummary]

// Options configures the engine
type Options struct {
	// IntegerBooleans re-encodes standardized booleans as 1 and 0
	IntegerBooleans bool
}

// Engine runs the BOOL, CAT, STAT, SURV and MULTI formula sets
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates a boolean and category engine
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, logger: logger}
}

type run struct {
	opts        Options
	scales      map[string]LikertScale
	delimiters  map[string]string
	frequencies map[string]map[string]int
	registry    map[string][]string
}

func (r *run) battery() formula.Battery {
	boolean := []formula.Formula{
		{ID: "BOOL-01", Policy: formula.Auto, Apply: standardizeBooleans},
		{ID: "BOOL-02", Policy: formula.AskFirst, Apply: nonBinaryValues},
		{ID: "BOOL-03", Policy: formula.AskFirst, Apply: nullBooleans},
	}
	if r.opts.IntegerBooleans {
		boolean = append(boolean, formula.Formula{ID: "BOOL-04", Policy: formula.Auto, Apply: integerBooleans})
	}
	return formula.Battery{
		"BOOL": boolean,
		"CAT": {
			{ID: "CAT-07", Policy: formula.Auto, Apply: labelWhitespace},
			{ID: "CAT-08", Policy: formula.Auto, Apply: encodingArtifacts},
			{ID: "CAT-01", Policy: formula.Auto, Apply: labelCase},
			{ID: "CAT-02", Policy: formula.Auto, Apply: consolidateVariants},
			{ID: "CAT-03", Policy: formula.Auto, Apply: mergeTypos},
			{ID: "CAT-04", Policy: formula.AskFirst, Apply: rareCategories},
			{ID: "CAT-05", Policy: formula.AskFirst, Apply: r.categoryFrequencies},
			{ID: "CAT-06", Policy: formula.AskFirst, Apply: nullCategories},
		},
		"STAT": {
			{ID: "STAT-03", Policy: formula.Auto, Apply: statusCase},
			{ID: "STAT-01", Policy: formula.Auto, Apply: canonicalStatuses},
			{ID: "STAT-02", Policy: formula.AskFirst, Apply: workflowStates},
			{ID: "STAT-04", Policy: formula.AskFirst, Apply: nullStatuses},
			{ID: "STAT-05", Policy: formula.AskFirst, Apply: retiredStatuses},
		},
		"SURV": {
			{ID: "SURV-01", Policy: formula.Auto, Apply: r.detectScale},
			{ID: "SURV-03", Policy: formula.Auto, Apply: likertTypos},
			{ID: "SURV-02", Policy: formula.Auto, Apply: r.verbalToNumeric},
			{ID: "SURV-04", Policy: formula.Auto, Apply: frequencyResponses},
			{ID: "SURV-05", Policy: formula.AskFirst, Apply: r.outOfScale},
			{ID: "SURV-06", Policy: formula.AskFirst, Apply: straightLining},
			{ID: "SURV-07", Policy: formula.AskFirst, Apply: missingResponses},
		},
		"MULTI": {
			{ID: "MULTI-01", Policy: formula.Auto, Apply: r.detectDelimiter},
			{ID: "MULTI-02", Policy: formula.Auto, Apply: r.standardizeDelimiters},
			{ID: "MULTI-03", Policy: formula.Auto, Apply: r.cleanItems},
			{ID: "MULTI-04", Policy: formula.Auto, Apply: r.normalizeItems},
			{ID: "MULTI-06", Policy: formula.AskFirst, Apply: r.itemFrequencies},
			{ID: "MULTI-07", Policy: formula.AskFirst, Apply: r.itemRegistry},
			{ID: "MULTI-05", Policy: formula.AskFirst, Apply: r.explodeOffer},
		},
	}
}

// Run applies the boolean, category, status, survey and multi-value
// formulas to a copy of ds
func (e *Engine) Run(jobID string, ds *model.Dataset, sink audit.Sink, htypes model.HtypeMap) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("boolean category rules: %w", model.ErrEmptyDataset)
	}
	r := &run{
		opts:        e.opts,
		scales:      make(map[string]LikertScale),
		delimiters:  make(map[string]string),
		frequencies: make(map[string]map[string]int),
		registry:    make(map[string][]string),
	}
	rec := formula.NewRecorder(jobID, sink)
	out := ds.Clone()
	summary := formula.RunBattery(rec, out, htypes, r.battery())

	scales := make(map[string]string, len(r.scales))
	for col, s := range r.scales {
		scales[col] = s.Name
	}
	e.logger.Info("Boolean category rules completed",
		zap.String("job_id", jobID),
		zap.Strings("columns", summary.ColumnsProcessed),
		zap.Int("changes", summary.TotalChanges),
		zap.Int("flags", summary.TotalFlags),
		zap.Any("survey_scales", scales),
		zap.Any("delimiters", r.delimiters))

	return &Output{Dataset: out, Summary: summary, Flags: rec.Flags()}, nil
}

// report writes an informational entry that asks nothing of the data but
// stays out of the auto-applied trail
func report(c *formula.Column, id, action, reason string, value interface{}) formula.Result {
	c.Rec.Log(id, action, reason, model.InColumn(c.Name), model.WithNewValue(value), model.Pending())
	c.Rec.MarkApplied(id)
	return c.Result(id, formula.AskFirst)
}

// nullFlag flags the null cells of a column with the given options attached
func nullFlag(c *formula.Column, id, flagType, description, suggested string, options []string) formula.Result {
	rows := c.NullRows()
	return c.Flag(id, flagType, fmt.Sprintf("%d %s", len(rows), description), suggested, rows,
		map[string]interface{}{"null_count": len(rows), "options": options})
}
