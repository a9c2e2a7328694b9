// Package structural detects and repairs layout problems that sit above
// the cell level: misplaced header rows, pivoted tables, merged group
// labels, mixed date granularity, stackable sheets and transposition.
package structural

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// FileSource carries the raw upload for the checks that need more than
// the first sheet
type FileSource struct {
	Bytes []byte
	Type  string // csv, txt, xlsx, xls
}

// WideCandidate is a group of columns sharing a root with temporal suffixes
type WideCandidate struct {
	Root           string   `json:"root" yaml:"root"`
	Columns        []string `json:"columns" yaml:"columns"`
	TemporalTokens []string `json:"temporal_tokens" yaml:"temporal_tokens"`
}

// GranularityColumn is a column holding dates at more than one granularity
type GranularityColumn struct {
	Column    string             `json:"column" yaml:"column"`
	Breakdown map[string]float64 `json:"breakdown" yaml:"breakdown"`
}

// Summary records what the structural checks found
type Summary struct {
	RulesApplied            []string            `json:"struct_rules_applied" yaml:"struct_rules_applied"`
	WideToLongCandidates    []WideCandidate     `json:"wide_to_long_candidates" yaml:"wide_to_long_candidates"`
	GroupLabelColumnsFilled []string            `json:"group_label_cols_filled" yaml:"group_label_cols_filled"`
	MixedGranularityColumns []GranularityColumn `json:"mixed_granularity_columns" yaml:"mixed_granularity_columns"`
	HeaderOffsetCorrected   *int                `json:"header_offset_corrected" yaml:"header_offset_corrected"`
	CompatibleSheets        []string            `json:"compatible_sheets" yaml:"compatible_sheets"`
	TransposedLikely        bool                `json:"transposed_likely" yaml:"transposed_likely"`
}

// Output is the result of one structural run
type Output = formula.Output[Summary]

// Engine runs the STRUCT rules
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a structural engine
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

type run struct {
	rec     *formula.Recorder
	ds      *model.Dataset
	src     *FileSource
	logger  *zap.Logger
	summary Summary
}

// Run applies the structural rules to a copy of ds. src may be nil, in
// which case the multi-sheet check is skipped.
func (e *Engine) Run(jobID string, ds *model.Dataset, sink audit.Sink, src *FileSource) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("structural rules: %w", model.ErrEmptyDataset)
	}
	r := &run{
		rec:    formula.NewRecorder(jobID, sink),
		ds:     ds.Clone(),
		src:    src,
		logger: e.logger,
		summary: Summary{
			WideToLongCandidates:    []WideCandidate{},
			GroupLabelColumnsFilled: []string{},
			MixedGranularityColumns: []GranularityColumn{},
			CompatibleSheets:        []string{},
		},
	}

	// Header realignment first so every later check sees real column names
	if err := r.headerOffset(); err != nil { // STRUCT-04
		return nil, fmt.Errorf("structural rules: %w", err)
	}
	r.wideToLong()       // STRUCT-01
	r.groupLabelFill()   // STRUCT-02
	r.mixedGranularity() // STRUCT-03
	r.multiSheet()       // STRUCT-05
	r.transposed()       // STRUCT-06

	r.summary.RulesApplied = r.rec.Applied()

	e.logger.Info("Structural rules completed",
		zap.String("job_id", jobID),
		zap.Strings("rules_applied", r.summary.RulesApplied),
		zap.Int("flags", len(r.rec.Flags())))

	return &Output{Dataset: r.ds, Summary: r.summary, Flags: r.rec.Flags()}, nil
}
