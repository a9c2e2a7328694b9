// Package pipeline chains the rule engines into one deterministic run over
// a dataset and assembles the result handed to persistence.
package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/cleaner"
	"github.com/David-Botos/data-refinery/pkg/engine/category"
	"github.com/David-Botos/data-refinery/pkg/engine/contact"
	"github.com/David-Botos/data-refinery/pkg/engine/datetime"
	"github.com/David-Botos/data-refinery/pkg/engine/global"
	"github.com/David-Botos/data-refinery/pkg/engine/identity"
	"github.com/David-Botos/data-refinery/pkg/engine/numeric"
	"github.com/David-Botos/data-refinery/pkg/engine/structural"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/htype"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/quality"
)

// Options configures every stage of a run
type Options struct {
	Global   global.Options
	Datetime datetime.Options
	Contact  contact.Options
	Category category.Options
	Cleaner  cleaner.Options
}

// DefaultOptions returns the standard configuration of every stage
func DefaultOptions() Options {
	return Options{
		Global:  global.DefaultOptions(),
		Contact: contact.Options{DefaultCountry: "US"},
		Cleaner: cleaner.DefaultOptions(),
	}
}

// Summary merges the run summaries of every stage
type Summary struct {
	Global     global.Summary      `json:"global" yaml:"global"`
	Structural structural.Summary  `json:"structural" yaml:"structural"`
	Identity   formula.TypeSummary `json:"identity" yaml:"identity"`
	Datetime   formula.TypeSummary `json:"datetime" yaml:"datetime"`
	Contact    formula.TypeSummary `json:"contact" yaml:"contact"`
	Numeric    formula.TypeSummary `json:"numeric" yaml:"numeric"`
	Category   formula.TypeSummary `json:"category" yaml:"category"`
	Phases     cleaner.Summary     `json:"phases" yaml:"phases"`
}

// Flags holds the pending-review flags raised by each stage
type Flags struct {
	Global     []model.PendingFlag `json:"global" yaml:"global"`
	Structural []model.PendingFlag `json:"structural" yaml:"structural"`
	Identity   []model.PendingFlag `json:"identity" yaml:"identity"`
	Datetime   []model.PendingFlag `json:"datetime" yaml:"datetime"`
	Contact    []model.PendingFlag `json:"contact" yaml:"contact"`
	Numeric    []model.PendingFlag `json:"numeric" yaml:"numeric"`
	Category   []model.PendingFlag `json:"category" yaml:"category"`
	Phases     []model.PendingFlag `json:"phases" yaml:"phases"`
}

// StageFlags pairs a stage name with the flags it raised
type StageFlags struct {
	Stage string
	Flags []model.PendingFlag
}

// Stages returns the flags of every stage, in stage order
func (f Flags) Stages() []StageFlags {
	return []StageFlags{
		{"global", f.Global},
		{"structural", f.Structural},
		{"identity", f.Identity},
		{"datetime", f.Datetime},
		{"contact", f.Contact},
		{"numeric", f.Numeric},
		{"category", f.Category},
		{"phases", f.Phases},
	}
}

// All returns every flag in stage order
func (f Flags) All() []model.PendingFlag {
	var all []model.PendingFlag
	for _, stage := range f.Stages() {
		all = append(all, stage.Flags...)
	}
	return all
}

// Result is everything a run produces. The dataset is exclusively owned by
// the caller once Run returns.
type Result struct {
	JobID            string                          `json:"job_id" yaml:"job_id"`
	Dataset          *model.Dataset                  `json:"-" yaml:"-"`
	ColumnMetadata   map[string]model.ColumnMetadata `json:"column_metadata" yaml:"column_metadata"`
	QualityScore     float64                         `json:"quality_score" yaml:"quality_score"`
	Quality          quality.Breakdown               `json:"quality" yaml:"quality"`
	Summary          Summary                         `json:"summary" yaml:"summary"`
	HtypeReport      htype.Report                    `json:"htype_report" yaml:"htype_report"`
	HtypeMap         model.HtypeMap                  `json:"htype_map" yaml:"htype_map"`
	PIITags          map[string]global.PIITag        `json:"pii_tags" yaml:"pii_tags"`
	Flags            Flags                           `json:"flags" yaml:"flags"`
	OriginalRowCount int                             `json:"original_row_count" yaml:"original_row_count"`
	CleanedRowCount  int                             `json:"cleaned_row_count" yaml:"cleaned_row_count"`
	Duration         time.Duration                   `json:"duration_ns" yaml:"duration_ns"`
}

// Runner executes the stages in a fixed order. A Runner holds no per-run
// state and may be shared by concurrent workers as long as each one passes
// its own dataset and sink.
type Runner struct {
	logger     *zap.Logger
	global     *global.Engine
	structural *structural.Engine
	detector   *htype.Detector
	identity   *identity.Engine
	datetime   *datetime.Engine
	contact    *contact.Engine
	numeric    *numeric.Engine
	category   *category.Engine
	cleaner    *cleaner.DataCleaner
}

// NewRunner wires every stage with opts
func NewRunner(opts Options, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dc, err := cleaner.NewDataCleaner(opts.Cleaner, logger.Named("phases"))
	if err != nil {
		return nil, fmt.Errorf("failed to create phase pipeline: %w", err)
	}
	return &Runner{
		logger:     logger,
		global:     global.NewEngine(opts.Global, logger.Named("global")),
		structural: structural.NewEngine(logger.Named("structural")),
		detector:   htype.NewDetector(logger.Named("htype")),
		identity:   identity.NewEngine(logger.Named("identity")),
		datetime:   datetime.NewEngine(opts.Datetime, logger.Named("datetime")),
		contact:    contact.NewEngine(opts.Contact, logger.Named("contact")),
		numeric:    numeric.NewEngine(logger.Named("numeric")),
		category:   category.NewEngine(opts.Category, logger.Named("category")),
		cleaner:    dc,
	}, nil
}

// Run takes ds through global hygiene, structural repair, HTYPE detection,
// the five type engines, the phase pipeline and quality scoring. file is
// optional and only used for multi-sheet detection. Any stage failure
// aborts the run; no partial result is returned.
func (r *Runner) Run(jobID string, ds *model.Dataset, sink audit.Sink, file *structural.FileSource) (*Result, error) {
	if ds == nil {
		return nil, fmt.Errorf("global stage: %w", model.ErrEmptyDataset)
	}
	start := time.Now()
	res := &Result{JobID: jobID, OriginalRowCount: ds.NumRows()}

	g, err := r.global.Run(jobID, ds, sink)
	if err != nil {
		return nil, fmt.Errorf("global stage: %w", err)
	}
	res.Summary.Global, res.Flags.Global = g.Summary, g.Flags

	s, err := r.structural.Run(jobID, g.Dataset, sink, file)
	if err != nil {
		return nil, fmt.Errorf("structural stage: %w", err)
	}
	res.Summary.Structural, res.Flags.Structural = s.Summary, s.Flags

	report, htypes, err := r.detector.Report(s.Dataset)
	if err != nil {
		return nil, fmt.Errorf("htype stage: %w", err)
	}
	res.HtypeReport, res.HtypeMap = report, htypes

	current := s.Dataset
	typeStages := []struct {
		name    string
		run     func(*model.Dataset) (*formula.Output[formula.TypeSummary], error)
		summary *formula.TypeSummary
		flags   *[]model.PendingFlag
	}{
		{"identity", func(d *model.Dataset) (*identity.Output, error) {
			return r.identity.Run(jobID, d, sink, htypes)
		}, &res.Summary.Identity, &res.Flags.Identity},
		{"datetime", func(d *model.Dataset) (*datetime.Output, error) {
			return r.datetime.Run(jobID, d, sink, htypes)
		}, &res.Summary.Datetime, &res.Flags.Datetime},
		{"contact", func(d *model.Dataset) (*contact.Output, error) {
			return r.contact.Run(jobID, d, sink, htypes)
		}, &res.Summary.Contact, &res.Flags.Contact},
		{"numeric", func(d *model.Dataset) (*numeric.Output, error) {
			return r.numeric.Run(jobID, d, sink, htypes)
		}, &res.Summary.Numeric, &res.Flags.Numeric},
		{"category", func(d *model.Dataset) (*category.Output, error) {
			return r.category.Run(jobID, d, sink, htypes)
		}, &res.Summary.Category, &res.Flags.Category},
	}
	for _, stage := range typeStages {
		out, err := stage.run(current)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage.name, err)
		}
		current = out.Dataset
		*stage.summary, *stage.flags = out.Summary, out.Flags
	}

	p, err := r.cleaner.Run(jobID, current, sink, htypes)
	if err != nil {
		return nil, fmt.Errorf("phase stage: %w", err)
	}
	res.Summary.Phases, res.Flags.Phases = p.Summary, p.Flags

	res.Dataset = p.Dataset
	res.CleanedRowCount = p.Dataset.NumRows()
	res.ColumnMetadata = model.BuildColumnMetadata(p.Dataset)
	res.Quality = quality.Evaluate(p.Dataset, res.OriginalRowCount)
	res.QualityScore = res.Quality.Score
	res.PIITags = g.Summary.PIITags
	res.Duration = time.Since(start)

	r.logger.Info("Pipeline completed",
		zap.String("job_id", jobID),
		zap.Int("original_rows", res.OriginalRowCount),
		zap.Int("cleaned_rows", res.CleanedRowCount),
		zap.Int("columns", p.Dataset.NumCols()),
		zap.Float64("quality_score", res.QualityScore),
		zap.Int("flags", len(res.Flags.All())),
		zap.Duration("duration", res.Duration))

	return res, nil
}
