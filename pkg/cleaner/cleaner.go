package cleaner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Options switches the cleaning phases on and off and holds their thresholds
type Options struct {
	RemoveDuplicates   bool
	NormalizeNames     bool
	RemoveEmptyColumns bool
	ConvertDates       bool
	BucketAges         bool
	FillMissing        bool
	FlagOutliers       bool

	EmptyColumnRatio float64 // columns above this null rate are dropped
	DateSampleSize   int     // non-null values sampled per column for date detection
	DateHitRate      float64 // share of the sample that must parse as dates
	AgeShare         float64 // share of values that must fall within 0-120
	OutlierFactor    float64 // IQR multiplier for the outlier fences
}

// DefaultOptions enables every phase with the standard thresholds
func DefaultOptions() Options {
	return Options{
		RemoveDuplicates:   true,
		NormalizeNames:     true,
		RemoveEmptyColumns: true,
		ConvertDates:       true,
		BucketAges:         true,
		FillMissing:        true,
		FlagOutliers:       true,
		EmptyColumnRatio:   0.8,
		DateSampleSize:     20,
		DateHitRate:        0.8,
		AgeShare:           0.9,
		OutlierFactor:      1.5,
	}
}

// Summary records what the phase pipeline did
type Summary struct {
	RulesApplied      []string `json:"rules_applied" yaml:"rules_applied"`
	DuplicatesRemoved int      `json:"duplicates_removed" yaml:"duplicates_removed"`
	ColumnsRenamed    int      `json:"columns_renamed" yaml:"columns_renamed"`
	ColumnsDropped    int      `json:"columns_dropped" yaml:"columns_dropped"`
	DatesConverted    int      `json:"dates_converted" yaml:"dates_converted"`
	AgesBucketed      int      `json:"ages_bucketed" yaml:"ages_bucketed"`
	MissingFilled     int      `json:"missing_filled" yaml:"missing_filled"`
	OutliersFlagged   int      `json:"outliers_flagged" yaml:"outliers_flagged"`
	RowCountOriginal  int      `json:"row_count_original" yaml:"row_count_original"`
	RowCountCleaned   int      `json:"row_count_cleaned" yaml:"row_count_cleaned"`
}

// Output is the result of one phase pipeline run
type Output = formula.Output[Summary]

// DataCleaner runs the HTYPE-agnostic cleanup phases that follow the
// type-specific engines
type DataCleaner struct {
	opts   Options
	logger *zap.Logger
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(opts Options, logger *zap.Logger) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.EmptyColumnRatio < 0 || opts.EmptyColumnRatio > 1 {
		return nil, fmt.Errorf("empty column ratio must be within [0, 1], got %v", opts.EmptyColumnRatio)
	}
	if opts.ConvertDates && opts.DateSampleSize <= 0 {
		return nil, errors.New("date sample size must be positive")
	}

	return &DataCleaner{
		opts:   opts,
		logger: logger,
	}, nil
}

type run struct {
	opts    Options
	rec     *formula.Recorder
	ds      *model.Dataset
	htypes  model.HtypeMap
	summary Summary
}

// Run applies the enabled phases, in order, to a copy of ds. Phase 1 is
// structural cleanup, phase 2 value standardization, phase 3 missing data
// and phase 4 outlier review.
func (c *DataCleaner) Run(jobID string, ds *model.Dataset, sink audit.Sink, htypes model.HtypeMap) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("phase pipeline: %w", model.ErrEmptyDataset)
	}
	r := &run{
		opts:   c.opts,
		rec:    formula.NewRecorder(jobID, sink),
		ds:     ds.Clone(),
		htypes: make(model.HtypeMap, len(htypes)),
	}
	for col, match := range htypes {
		r.htypes[col] = match
	}
	r.summary.RowCountOriginal = r.ds.NumRows()

	phases := []struct {
		enabled bool
		apply   func()
	}{
		{c.opts.RemoveDuplicates, r.removeDuplicates},     // CLEAN-01
		{c.opts.NormalizeNames, r.normalizeNames},         // CLEAN-02
		{c.opts.RemoveEmptyColumns, r.removeEmptyColumns}, // CLEAN-03
		{c.opts.ConvertDates, r.convertDates},             // CLEAN-04
		{c.opts.BucketAges, r.bucketAges},                 // CLEAN-05
		{c.opts.FillMissing, r.fillMissing},               // CLEAN-06
		{c.opts.FlagOutliers, r.flagOutliers},             // CLEAN-07
	}
	for _, p := range phases {
		if p.enabled {
			p.apply()
		}
	}

	r.summary.RowCountCleaned = r.ds.NumRows()
	r.summary.RulesApplied = r.rec.Applied()

	c.logger.Info("Phase pipeline completed",
		zap.String("job_id", jobID),
		zap.Int("row_count_original", r.summary.RowCountOriginal),
		zap.Int("row_count_cleaned", r.summary.RowCountCleaned),
		zap.Int("duplicates_removed", r.summary.DuplicatesRemoved),
		zap.Int("columns_dropped", r.summary.ColumnsDropped),
		zap.Int("missing_filled", r.summary.MissingFilled),
		zap.Int("outliers_flagged", r.summary.OutliersFlagged))

	return &Output{Dataset: r.ds, Summary: r.summary, Flags: r.rec.Flags()}, nil
}

func (r *run) removeDuplicates() {
	seen := make(map[string]struct{}, r.ds.NumRows())
	drop := make(map[int]struct{})
	for i := 0; i < r.ds.NumRows(); i++ {
		k := model.RowKey(r.ds.Row(i))
		if _, dup := seen[k]; dup {
			drop[i] = struct{}{}
			r.rec.Log("CLEAN-01", "remove_duplicate", "Row is an exact duplicate of a previous row",
				model.AtRow(i))
			continue
		}
		seen[k] = struct{}{}
	}
	if len(drop) == 0 {
		return
	}
	r.summary.DuplicatesRemoved = r.ds.DropRows(drop)
	r.rec.MarkApplied("CLEAN-01")
}

func (r *run) normalizeNames() {
	taken := formula.NewSet(r.ds.Columns()...)
	for i, old := range r.ds.Columns() {
		clean := NormalizeName(old)
		if clean == "" || clean == old || taken.Has(clean) {
			continue
		}
		r.ds.SetColumnName(i, clean)
		delete(taken, old)
		taken[clean] = struct{}{}
		if match, ok := r.htypes[old]; ok {
			delete(r.htypes, old)
			r.htypes[clean] = match
		}
		r.rec.Log("CLEAN-02", "normalize_column_name",
			"Column name normalised to lowercase with underscores",
			model.InColumn(old), model.WithValues(old, clean))
		r.summary.ColumnsRenamed++
		r.rec.MarkApplied("CLEAN-02")
	}
}

func (r *run) removeEmptyColumns() {
	rows := r.ds.NumRows()
	if rows == 0 {
		return
	}
	for _, name := range r.ds.Columns() {
		i := r.ds.ColumnIndex(name)
		nullRate := float64(r.ds.NullCount(i)) / float64(rows)
		if nullRate <= r.opts.EmptyColumnRatio {
			continue
		}
		r.ds.DropColumn(i)
		r.rec.Log("CLEAN-03", "remove_empty_column",
			fmt.Sprintf("Column is %.1f%% null (threshold %.0f%%)", nullRate*100, r.opts.EmptyColumnRatio*100),
			model.InColumn(name))
		r.summary.ColumnsDropped++
		r.rec.MarkApplied("CLEAN-03")
	}
}

func (r *run) convertDates() {
	for i, name := range r.ds.Columns() {
		values := r.ds.Column(i)
		if model.InferDtype(values) != "object" {
			continue
		}
		hitRate, ok := DateHitRate(values, r.opts.DateSampleSize)
		if !ok || hitRate < r.opts.DateHitRate {
			continue
		}
		converted := make([]interface{}, len(values))
		for row, v := range values {
			converted[row] = v
			if month, ok := YearMonth(v); ok {
				converted[row] = month
			}
		}
		r.ds.SetColumn(i, converted)
		r.rec.Log("CLEAN-04", "convert_date",
			fmt.Sprintf("Column detected as date (%.0f%% match), converted to YYYY-MM", hitRate*100),
			model.InColumn(name))
		r.summary.DatesConverted++
		r.rec.MarkApplied("CLEAN-04")
	}
}

func (r *run) bucketAges() {
	for _, name := range r.htypes.ColumnsWithSet(r.ds.Columns(), "AGE") {
		i := r.ds.ColumnIndex(name)
		values := r.ds.Column(i)
		if !isNumericColumn(values) || !looksLikeAges(formula.Numbers(values), r.opts.AgeShare) {
			continue
		}
		bucketed := make([]interface{}, len(values))
		for row, v := range values {
			bucketed[row] = BucketAge(v)
		}
		r.ds.SetColumn(i, bucketed)
		r.rec.Log("CLEAN-05", "bucket_age",
			"Numeric column detected as age (values 0-120), converted to age buckets",
			model.InColumn(name))
		r.summary.AgesBucketed++
		r.rec.MarkApplied("CLEAN-05")
	}
}

func (r *run) fillMissing() {
	for i, name := range r.ds.Columns() {
		values := r.ds.Column(i)
		if len(model.NonNull(values)) == len(values) {
			continue
		}
		fill, method, ok := FillValue(values)
		if !ok {
			continue
		}
		reason := fmt.Sprintf("Null filled with mode value '%s'", model.Stringify(fill))
		if method == "mean" {
			mean, _ := formula.ToFloat(fill)
			reason = fmt.Sprintf("Null filled with mean (%.4g)", mean)
		}
		filled := 0
		for row, v := range values {
			if !model.IsNull(v) {
				continue
			}
			r.ds.SetCell(row, i, fill)
			if filled < formula.MaxLoggedRows {
				r.rec.Log("CLEAN-06", "fill_missing", reason,
					model.AtRow(row), model.InColumn(name), model.WithNewValue(fill))
			}
			filled++
		}
		r.summary.MissingFilled += filled
		r.rec.MarkApplied("CLEAN-06")
	}
}

func (r *run) flagOutliers() {
	for i, name := range r.ds.Columns() {
		values := r.ds.Column(i)
		if !isNumericColumn(values) {
			continue
		}
		lower, upper, ok := IQRFences(formula.Numbers(values), r.opts.OutlierFactor)
		if !ok {
			continue
		}
		col := &formula.Column{Rec: r.rec, Data: r.ds, Name: name, Htypes: r.htypes}
		rows := col.Rows(func(v interface{}) bool {
			f, ok := formula.ToFloat(v)
			return ok && (f < lower || f > upper)
		})
		expected := fmt.Sprintf("%.4g - %.4g", lower, upper)
		for n, row := range rows {
			if n == formula.MaxLoggedRows {
				break
			}
			v := values[row]
			r.rec.Log("CLEAN-07", "flag_outlier",
				fmt.Sprintf("Value %s is outside IQR range [%.4g, %.4g]", model.Stringify(v), lower, upper),
				model.AtRow(row), model.InColumn(name), model.WithOriginalValue(v), model.Pending())
		}
		res := col.Flag("CLEAN-07", "outlier",
			fmt.Sprintf("%d values fall outside the IQR range %s", len(rows), expected),
			"Review outliers before analysis; they are not removed", rows,
			map[string]interface{}{
				"lower_bound":    formula.Round(lower, 4),
				"upper_bound":    formula.Round(upper, 4),
				"expected_range": expected,
				"sample_values":  col.Sample(rows, 5),
			})
		r.summary.OutliersFlagged += res.Flagged
	}
}
