// Package global implements the dataset-wide hygiene rules that run before
// any column semantics are known.
package global

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Options holds the tunable thresholds of the hygiene rules
type Options struct {
	EmptyColumnNullRate     float64 // GLOBAL-01 flags columns above this null rate
	RepeatedHeaderRatio     float64 // GLOBAL-08 header overlap ratio
	MergedCellMinNullRate   float64 // GLOBAL-13 lower bound of the null-rate band
	MergedCellMaxNullRate   float64 // GLOBAL-13 upper bound of the null-rate band
	MergedCellMinAvgGap     float64 // GLOBAL-13 average gap between non-null cells
	MalformedRowNullRate    float64 // GLOBAL-06 row null rate
	MalformedRowMaxNonNull  int     // GLOBAL-06 max non-null cells in a malformed row
	MalformedRowMinColumns  int     // GLOBAL-06 only evaluated from this width
	TypeMismatchLogPct      float64 // GLOBAL-09 informational log threshold
	MixedTypeFlagPct        float64 // GLOBAL-16 flag threshold
}

// DefaultOptions returns the standard thresholds
func DefaultOptions() Options {
	return Options{
		EmptyColumnNullRate:    0.95,
		RepeatedHeaderRatio:    0.8,
		MergedCellMinNullRate:  0.20,
		MergedCellMaxNullRate:  0.90,
		MergedCellMinAvgGap:    2.0,
		MalformedRowNullRate:   0.80,
		MalformedRowMaxNonNull: 2,
		MalformedRowMinColumns: 4,
		TypeMismatchLogPct:     10,
		MixedTypeFlagPct:       20,
	}
}

// TypeInfo is the GLOBAL-09 result for one column
type TypeInfo struct {
	DominantType string         `json:"dominant_type" yaml:"dominant_type"`
	MismatchPct  float64        `json:"mismatch_pct" yaml:"mismatch_pct"`
	TypeCounts   map[string]int `json:"type_counts,omitempty" yaml:"type_counts,omitempty"`
}

// PIITag is the GLOBAL-10 result for one column
type PIITag struct {
	Level      string `json:"level" yaml:"level"`
	Label      string `json:"label" yaml:"label"`
	Governance string `json:"governance" yaml:"governance"`
}

// Summary records what the hygiene rules did
type Summary struct {
	RulesApplied              []string            `json:"global_rules_applied" yaml:"global_rules_applied"`
	ColumnsRemoved            []string            `json:"columns_removed" yaml:"columns_removed"`
	ConstantColumns           []string            `json:"constant_columns" yaml:"constant_columns"`
	ColumnsRenamed            map[string]string   `json:"columns_renamed" yaml:"columns_renamed"`
	DuplicateHeaders          []string            `json:"duplicate_headers" yaml:"duplicate_headers"`
	AllNullRowsRemoved        int                 `json:"all_null_rows_removed" yaml:"all_null_rows_removed"`
	MalformedRows             int                 `json:"malformed_rows" yaml:"malformed_rows"`
	SummaryRowsRemoved        int                 `json:"summary_rows_removed" yaml:"summary_rows_removed"`
	RepeatedHeaderRowsRemoved int                 `json:"repeated_header_rows_removed" yaml:"repeated_header_rows_removed"`
	TypeInference             map[string]TypeInfo `json:"type_inference" yaml:"type_inference"`
	PIITags                   map[string]PIITag   `json:"pii_tags" yaml:"pii_tags"`
	EncodingFixes             int                 `json:"encoding_fixes" yaml:"encoding_fixes"`
	BOMRemovals               int                 `json:"bom_removals" yaml:"bom_removals"`
	ForwardFillColumns        []string            `json:"forward_fill_columns" yaml:"forward_fill_columns"`
	ApostropheStrips          int                 `json:"apostrophe_strips" yaml:"apostrophe_strips"`
	WhitespaceNulls           int                 `json:"whitespace_nulls" yaml:"whitespace_nulls"`
	MixedTypeColumns          []string            `json:"mixed_type_columns" yaml:"mixed_type_columns"`
}

// Output is the result of one hygiene run
type Output = formula.Output[Summary]

// Engine runs the GLOBAL rules
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates a hygiene engine
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, logger: logger}
}

// run holds the per-call state so the Engine itself stays immutable
type run struct {
	opts    Options
	rec     *formula.Recorder
	ds      *model.Dataset
	summary Summary
}

// Run applies every GLOBAL rule to a copy of ds
func (e *Engine) Run(jobID string, ds *model.Dataset, sink audit.Sink) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("global rules: %w", model.ErrEmptyDataset)
	}
	r := &run{
		opts: e.opts,
		rec:  formula.NewRecorder(jobID, sink),
		ds:   ds.Clone(),
		summary: Summary{
			ColumnsRemoved:   []string{},
			ConstantColumns:  []string{},
			ColumnsRenamed:   map[string]string{},
			DuplicateHeaders: []string{},
			TypeInference:    map[string]TypeInfo{},
			PIITags:          map[string]PIITag{},
		},
	}

	// Cell-level pass first, then the dataset passes in dependency order
	r.cellLevel()
	r.allNullRows()        // GLOBAL-05
	r.summaryRows()        // GLOBAL-07
	r.repeatedHeaderRows() // GLOBAL-08
	r.normalizeNames()     // GLOBAL-03
	r.duplicateHeaders()   // GLOBAL-04
	r.mergedCellFill()     // GLOBAL-13
	r.emptyColumns()       // GLOBAL-01
	r.constantColumns()    // GLOBAL-02
	r.malformedRows()      // GLOBAL-06
	r.inferTypes()         // GLOBAL-09
	r.tagPII()             // GLOBAL-10
	r.mixedTypes()         // GLOBAL-16

	r.summary.RulesApplied = r.rec.Applied()

	e.logger.Info("Global rules completed",
		zap.String("job_id", jobID),
		zap.Int("rows", r.ds.NumRows()),
		zap.Int("columns", r.ds.NumCols()),
		zap.Strings("rules_applied", r.summary.RulesApplied),
		zap.Int("flags", len(r.rec.Flags())))

	return &Output{Dataset: r.ds, Summary: r.summary, Flags: r.rec.Flags()}, nil
}

// FixEncoding applies GLOBAL-11 to one string
func FixEncoding(s string) (string, bool) {
	out := s
	for _, f := range encodingFixes {
		out = strings.ReplaceAll(out, f.bad, f.good)
	}
	return out, out != s
}

// RemoveBOM applies GLOBAL-12 to one string
func RemoveBOM(s string) (string, bool) {
	if !strings.ContainsRune(s, '\ufeff') {
		return s, false
	}
	return strings.ReplaceAll(s, "\ufeff", ""), true
}

// StripLeadingApostrophe applies GLOBAL-14 to one string. The whole run of
// leading apostrophes goes, unless the remaining text starts with a
// lowercase letter.
func StripLeadingApostrophe(s string) (string, bool) {
	if !strings.HasPrefix(s, "'") {
		return s, false
	}
	rest := strings.TrimLeft(s, "'")
	if rest == "" {
		return s, false
	}
	if unicode.IsLower([]rune(rest)[0]) {
		return s, false
	}
	return rest, true
}

// IsWhitespaceOnly applies the GLOBAL-15 trigger to one string
func IsWhitespaceOnly(s string) bool {
	return len(s) > 0 && strings.TrimSpace(s) == ""
}

func (r *run) cellLevel() {
	for i, name := range r.ds.Columns() {
		cleaned := name
		if fixed, ok := FixEncoding(cleaned); ok {
			cleaned = fixed
			r.summary.EncodingFixes++
			r.rec.MarkApplied("GLOBAL-11")
		}
		if fixed, ok := RemoveBOM(cleaned); ok {
			cleaned = fixed
			r.summary.BOMRemovals++
			r.rec.MarkApplied("GLOBAL-12")
		}
		if cleaned != name {
			r.ds.SetColumnName(i, cleaned)
		}
	}

	for c := 0; c < r.ds.NumCols(); c++ {
		col := r.ds.ColumnName(c)
		for row := 0; row < r.ds.NumRows(); row++ {
			s, ok := r.ds.Cell(row, c).(string)
			if !ok {
				continue
			}
			value := s
			if fixed, ok := FixEncoding(value); ok {
				r.rec.Log("GLOBAL-11", "encoding_artifact_fixed", "encoding_artifact_fixed",
					model.InColumn(col), model.AtRow(row), model.WithValues(value, fixed))
				r.rec.MarkApplied("GLOBAL-11")
				r.summary.EncodingFixes++
				value = fixed
			}
			if fixed, ok := RemoveBOM(value); ok {
				r.rec.Log("GLOBAL-12", "bom_character_removed", `BOM character (\ufeff) removed from cell value`,
					model.InColumn(col), model.AtRow(row), model.WithValues(value, fixed))
				r.rec.MarkApplied("GLOBAL-12")
				r.summary.BOMRemovals++
				value = fixed
			}
			if fixed, ok := StripLeadingApostrophe(value); ok {
				r.rec.Log("GLOBAL-14", "leading_apostrophe_stripped", "Excel text-force leading apostrophe removed",
					model.InColumn(col), model.AtRow(row), model.WithValues(value, fixed))
				r.rec.MarkApplied("GLOBAL-14")
				r.summary.ApostropheStrips++
				value = fixed
			}
			if IsWhitespaceOnly(value) {
				r.rec.Log("GLOBAL-15", "whitespace_only_treated_as_null", "Cell contained only whitespace, treated as null",
					model.InColumn(col), model.AtRow(row), model.WithOriginalValue(strconv.Quote(value)))
				r.rec.MarkApplied("GLOBAL-15")
				r.summary.WhitespaceNulls++
				r.ds.SetCell(row, c, nil)
				continue
			}
			if value != s {
				r.ds.SetCell(row, c, value)
			}
		}
	}
}

func (r *run) allNullRows() {
	drop := make(map[int]struct{})
	for row := 0; row < r.ds.NumRows(); row++ {
		allNull := true
		for c := 0; c < r.ds.NumCols(); c++ {
			if !model.IsNull(r.ds.Cell(row, c)) {
				allNull = false
				break
			}
		}
		if allNull {
			drop[row] = struct{}{}
			r.rec.Log("GLOBAL-05", "all_null_row_removed", "Row where every cell is null, removed from dataset",
				model.AtRow(row))
		}
	}
	if n := r.ds.DropRows(drop); n > 0 {
		r.summary.AllNullRowsRemoved = n
		r.rec.MarkApplied("GLOBAL-05")
	}
}

func (r *run) summaryRows() {
	drop := make(map[int]struct{})
	for row := 0; row < r.ds.NumRows(); row++ {
		for c := 0; c < r.ds.NumCols(); c++ {
			s, ok := r.ds.Cell(row, c).(string)
			if !ok {
				continue
			}
			if _, hit := summaryRowKeywords[strings.ToLower(strings.TrimSpace(s))]; hit {
				drop[row] = struct{}{}
				r.rec.Log("GLOBAL-07", "summary_row_separated",
					fmt.Sprintf("Row contains summary-level label '%s', separated from data body", s),
					model.AtRow(row), model.WithOriginalValue(s))
				break
			}
		}
	}
	if n := r.ds.DropRows(drop); n > 0 {
		r.summary.SummaryRowsRemoved = n
		r.rec.MarkApplied("GLOBAL-07")
	}
}

func (r *run) repeatedHeaderRows() {
	headers := make(map[string]struct{})
	for _, c := range r.ds.Columns() {
		headers[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	if len(headers) == 0 {
		return
	}
	drop := make(map[int]struct{})
	for row := 0; row < r.ds.NumRows(); row++ {
		values := make(map[string]struct{})
		for c := 0; c < r.ds.NumCols(); c++ {
			v := r.ds.Cell(row, c)
			if model.IsNull(v) {
				continue
			}
			values[strings.ToLower(strings.TrimSpace(model.Stringify(v)))] = struct{}{}
		}
		if len(values) == 0 {
			continue
		}
		overlap := 0
		for v := range values {
			if _, ok := headers[v]; ok {
				overlap++
			}
		}
		if float64(overlap)/float64(len(headers)) >= r.opts.RepeatedHeaderRatio {
			drop[row] = struct{}{}
			r.rec.Log("GLOBAL-08", "repeated_header_row_removed",
				"Row inside data body matches column header names, removed", model.AtRow(row))
		}
	}
	if n := r.ds.DropRows(drop); n > 0 {
		r.summary.RepeatedHeaderRowsRemoved = n
		r.rec.MarkApplied("GLOBAL-08")
	}
}

var (
	spaceOrHyphen = regexp.MustCompile(`[\s\-]+`)
	notSnake      = regexp.MustCompile(`[^a-z0-9_]`)
	underscores   = regexp.MustCompile(`_+`)
)

// NormalizeColumnName applies the GLOBAL-03 snake_case pipeline
func NormalizeColumnName(name string) string {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	cleaned = spaceOrHyphen.ReplaceAllString(cleaned, "_")
	cleaned = notSnake.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(underscores.ReplaceAllString(cleaned, "_"), "_")
	tokens := strings.Split(cleaned, "_")
	for i, tok := range tokens {
		if fixed, ok := columnWordCorrections[tok]; ok {
			tokens[i] = fixed
		}
	}
	return strings.Join(tokens, "_")
}

func (r *run) normalizeNames() {
	for i, old := range r.ds.Columns() {
		cleaned := NormalizeColumnName(old)
		if cleaned == "" || cleaned == old {
			continue
		}
		r.ds.SetColumnName(i, cleaned)
		r.summary.ColumnsRenamed[old] = cleaned
		r.rec.Log("GLOBAL-03", "column_name_normalized",
			fmt.Sprintf("Column name '%s' normalized to snake_case '%s'", old, cleaned),
			model.InColumn(cleaned), model.WithValues(old, cleaned))
		r.rec.MarkApplied("GLOBAL-03")
	}
}

// DuplicateName is a column name that occurs more than once
type DuplicateName struct {
	Name      string
	Positions []int
}

// UniqueNames renames every repeat of a name after its first occurrence to
// name_N. N skips suffixes that are already taken, so the result never holds
// the same name twice.
func UniqueNames(names []string) ([]string, []DuplicateName) {
	positions := make(map[string][]int)
	var order []string
	taken := make(map[string]bool, len(names))
	for i, c := range names {
		if _, seen := positions[c]; !seen {
			order = append(order, c)
		}
		positions[c] = append(positions[c], i)
		taken[c] = true
	}

	out := append([]string(nil), names...)
	var dups []DuplicateName
	for _, name := range order {
		pos := positions[name]
		if len(pos) < 2 {
			continue
		}
		n := 1
		for _, p := range pos[1:] {
			candidate := fmt.Sprintf("%s_%d", name, n)
			for taken[candidate] {
				n++
				candidate = fmt.Sprintf("%s_%d", name, n)
			}
			taken[candidate] = true
			out[p] = candidate
			n++
		}
		dups = append(dups, DuplicateName{Name: name, Positions: pos})
	}
	return out, dups
}

// NormalizeHeaders runs a header row through the GLOBAL-03 snake_case
// pipeline and the GLOBAL-04 dedup. Names that normalise to nothing are kept.
func NormalizeHeaders(names []string) ([]string, []DuplicateName) {
	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = name
		if cleaned := NormalizeColumnName(name); cleaned != "" {
			normalized[i] = cleaned
		}
	}
	return UniqueNames(normalized)
}

func (r *run) duplicateHeaders() {
	renamed, dups := UniqueNames(r.ds.Columns())
	for _, d := range dups {
		r.rec.Flag(model.PendingFlag{
			FormulaID:       "GLOBAL-04",
			FlagType:        "duplicate_header",
			Description:     fmt.Sprintf("Column name '%s' appears %d times at positions %v. Rename or merge required.", d.Name, len(d.Positions), d.Positions),
			AffectedColumns: []string{d.Name},
			SuggestedAction: "rename_or_merge_duplicate_column",
			Details:         map[string]interface{}{"positions": d.Positions},
		})
		for _, p := range d.Positions[1:] {
			r.ds.SetColumnName(p, renamed[p])
		}
		r.summary.DuplicateHeaders = append(r.summary.DuplicateHeaders, d.Name)
		r.rec.MarkApplied("GLOBAL-04")
	}
}

func (r *run) mergedCellFill() {
	total := r.ds.NumRows()
	if total < 4 {
		return
	}
	for c := 0; c < r.ds.NumCols(); c++ {
		values := r.ds.Column(c)
		var nonNull []int
		for i, v := range values {
			if !model.IsNull(v) {
				nonNull = append(nonNull, i)
			}
		}
		nullRate := float64(total-len(nonNull)) / float64(total)
		if nullRate < r.opts.MergedCellMinNullRate || nullRate > r.opts.MergedCellMaxNullRate {
			continue
		}
		if len(nonNull) < 2 {
			continue
		}
		gapSum := 0
		for i := 0; i+1 < len(nonNull); i++ {
			gapSum += nonNull[i+1] - nonNull[i]
		}
		avgGap := float64(gapSum) / float64(len(nonNull)-1)
		if avgGap < r.opts.MergedCellMinAvgGap {
			continue
		}
		filled := forwardFill(r.ds, c)
		if filled == 0 {
			continue
		}
		col := r.ds.ColumnName(c)
		r.summary.ForwardFillColumns = append(r.summary.ForwardFillColumns, col)
		r.rec.Log("GLOBAL-13", "merged_cell_forward_fill",
			fmt.Sprintf("Column '%s' pattern suggests merged Excel cells (avg gap %.1f rows). Forward-filled %d nulls.", col, avgGap, filled),
			model.InColumn(col), model.WithNewValue(fmt.Sprintf("forward_filled_%d_nulls", filled)))
		r.rec.MarkApplied("GLOBAL-13")
	}
}

// forwardFill propagates the last non-null value into following nulls and
// returns the number of cells filled
func forwardFill(ds *model.Dataset, c int) int {
	var last interface{}
	filled := 0
	for row := 0; row < ds.NumRows(); row++ {
		v := ds.Cell(row, c)
		if !model.IsNull(v) {
			last = v
			continue
		}
		if last != nil {
			ds.SetCell(row, c, last)
			filled++
		}
	}
	return filled
}

func (r *run) emptyColumns() {
	total := r.ds.NumRows()
	if total == 0 {
		return
	}
	for c, col := range r.ds.Columns() {
		nullRate := float64(r.ds.NullCount(c)) / float64(total)
		if nullRate <= r.opts.EmptyColumnNullRate {
			continue
		}
		r.rec.Flag(model.PendingFlag{
			FormulaID:       "GLOBAL-01",
			FlagType:        "empty_column",
			Description:     fmt.Sprintf("Column '%s' is %.1f%% null (threshold: %.0f%%). Recommended for removal.", col, nullRate*100, r.opts.EmptyColumnNullRate*100),
			AffectedColumns: []string{col},
			SuggestedAction: "remove_column",
		})
		r.summary.ColumnsRemoved = append(r.summary.ColumnsRemoved, col)
		r.rec.MarkApplied("GLOBAL-01")
	}
}

func (r *run) constantColumns() {
	for c, col := range r.ds.Columns() {
		values := model.NonNull(r.ds.Column(c))
		if len(values) == 0 || model.DistinctCount(values) != 1 {
			continue
		}
		r.rec.Flag(model.PendingFlag{
			FormulaID:       "GLOBAL-02",
			FlagType:        "constant_column",
			Description:     fmt.Sprintf("Column '%s' has zero variance, all non-null values are '%s'. This may be a metadata or template column.", col, model.Stringify(values[0])),
			AffectedColumns: []string{col},
			SuggestedAction: "review_constant_column",
		})
		r.summary.ConstantColumns = append(r.summary.ConstantColumns, col)
		r.rec.MarkApplied("GLOBAL-02")
	}
}

func (r *run) malformedRows() {
	ncols := r.ds.NumCols()
	if ncols < r.opts.MalformedRowMinColumns {
		return
	}
	var malformed []int
	for row := 0; row < r.ds.NumRows(); row++ {
		nonNull := 0
		for c := 0; c < ncols; c++ {
			if !model.IsNull(r.ds.Cell(row, c)) {
				nonNull++
			}
		}
		nullRate := 1 - float64(nonNull)/float64(ncols)
		if nullRate > r.opts.MalformedRowNullRate && nonNull <= r.opts.MalformedRowMaxNonNull {
			malformed = append(malformed, row)
		}
	}
	if len(malformed) == 0 {
		return
	}
	preview := malformed
	if len(preview) > 20 {
		preview = preview[:20]
	}
	r.rec.Flag(model.PendingFlag{
		FormulaID:       "GLOBAL-06",
		FlagType:        "malformed_rows",
		Description:     fmt.Sprintf("%d row(s) appear structurally malformed (>80%% null with ≤2 non-null values). Rows: %v", len(malformed), preview),
		AffectedRows:    malformed,
		SuggestedAction: "review_or_drop_malformed_rows",
	})
	r.summary.MalformedRows = len(malformed)
	r.rec.MarkApplied("GLOBAL-06")
}

// ClassifyValue returns the GLOBAL-09 type of one non-null value
func ClassifyValue(v interface{}) string {
	switch x := v.(type) {
	case bool:
		return "boolean"
	case int64, int:
		return "integer"
	case float64:
		return "float"
	case time.Time:
		return "date"
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return "integer"
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return "float"
		}
		if _, ok := booleanWords[strings.ToLower(x)]; ok {
			return "boolean"
		}
		if _, ok := formula.ParseDate(x); ok {
			return "date"
		}
	}
	return "string"
}

// InferType computes the dominant type of a column
func InferType(values []interface{}) TypeInfo {
	nonNull := model.NonNull(values)
	if len(nonNull) == 0 {
		return TypeInfo{DominantType: "empty"}
	}
	counts := map[string]int{"integer": 0, "float": 0, "date": 0, "boolean": 0, "string": 0}
	for _, v := range nonNull {
		counts[ClassifyValue(v)]++
	}
	dominant := typeOrder[0]
	for _, t := range typeOrder[1:] {
		if counts[t] > counts[dominant] {
			dominant = t
		}
	}
	mismatch := float64(len(nonNull)-counts[dominant]) / float64(len(nonNull)) * 100
	return TypeInfo{
		DominantType: dominant,
		MismatchPct:  math.Round(mismatch*100) / 100,
		TypeCounts:   counts,
	}
}

func (r *run) inferTypes() {
	for c, col := range r.ds.Columns() {
		info := InferType(r.ds.Column(c))
		r.summary.TypeInference[col] = info
		if info.MismatchPct > r.opts.TypeMismatchLogPct {
			r.rec.Log("GLOBAL-09", "data_type_mismatch_flagged",
				fmt.Sprintf("Column '%s': dominant type is '%s' but %.1f%% of values differ (threshold %.0f%%)", col, info.DominantType, info.MismatchPct, r.opts.TypeMismatchLogPct),
				model.InColumn(col))
		}
	}
	if len(r.summary.TypeInference) > 0 {
		r.rec.MarkApplied("GLOBAL-09")
	}
}

// MatchPII returns the PII tag for a column name using token-aware
// matching, so that "ethnicity" never matches through "city"
func MatchPII(column string) (PIITag, bool) {
	lower := strings.ToLower(column)
	tokens := strings.Split(lower, "_")
	for _, level := range piiLevels {
		for _, kw := range level.Keywords {
			if kw == lower || containsString(tokens, kw) || containsString(strings.Split(kw, "_"), lower) {
				return PIITag{Level: level.Level, Label: level.Label, Governance: level.Governance}, true
			}
		}
	}
	return PIITag{}, false
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func (r *run) tagPII() {
	for _, col := range r.ds.Columns() {
		tag, ok := MatchPII(col)
		if !ok {
			continue
		}
		r.summary.PIITags[col] = tag
		r.rec.Log("GLOBAL-10", "pii_column_tagged",
			fmt.Sprintf("Column '%s' tagged as PII level '%s' (%s)", col, tag.Level, tag.Label),
			model.InColumn(col), model.WithNewValue(tag.Level))
		r.rec.MarkApplied("GLOBAL-10")
	}
}

func (r *run) mixedTypes() {
	for _, col := range r.ds.Columns() {
		info, ok := r.summary.TypeInference[col]
		if !ok || info.MismatchPct <= r.opts.MixedTypeFlagPct {
			continue
		}
		breakdown := make([]string, 0, len(typeOrder))
		for _, t := range typeOrder {
			breakdown = append(breakdown, fmt.Sprintf("%s=%d", t, info.TypeCounts[t]))
		}
		r.rec.Flag(model.PendingFlag{
			FormulaID:       "GLOBAL-16",
			FlagType:        "mixed_data_type",
			Description:     fmt.Sprintf("Column '%s' has %.1f%% type mismatch. Dominant type: '%s'. Type breakdown: %s", col, info.MismatchPct, info.DominantType, strings.Join(breakdown, ", ")),
			AffectedColumns: []string{col},
			SuggestedAction: "review_mixed_type_column",
			Details:         map[string]interface{}{"type_counts": info.TypeCounts},
		})
		r.summary.MixedTypeColumns = append(r.summary.MixedTypeColumns, col)
		r.rec.MarkApplied("GLOBAL-16")
	}
}
