package structural

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/engine/global"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/loader"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var monthTokens = map[string]struct{}{
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "may": {}, "jun": {},
	"jul": {}, "aug": {}, "sep": {}, "oct": {}, "nov": {}, "dec": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "june": {},
	"july": {}, "august": {}, "september": {}, "october": {}, "november": {},
	"december": {},
}

var (
	yearRe     = regexp.MustCompile(`^(19|20)\d{2}$`)
	fiscalRe   = regexp.MustCompile(`(?i)^(fy|cy|ay)\d{2,4}$`)
	monthNumRe = regexp.MustCompile(`^\d{1,2}$`)

	dailyRe     = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}$|^\d{1,2}[-/]\d{1,2}[-/]\d{2,4}$`)
	monthlyRe   = regexp.MustCompile(`(?i)^\d{4}[-/]\d{2}$|^(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{4}$|^\d{4}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*$`)
	quarterlyRe = regexp.MustCompile(`^[Qq][1-4][-\s]\d{4}$|^\d{4}[-\s][Qq][1-4]$`)
	yearlyRe    = regexp.MustCompile(`^\d{4}$|^[Ff][Yy]\d{2,4}$`)

	identifierRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	dateNameRe   = regexp.MustCompile(`^\d{4}[-/]\d{2}([-/]\d{2})?$`)
	ordinalRe    = regexp.MustCompile(`(?i)^(row|item|record|entry)[\s_]?\d+$`)
)

// granularities in reporting order
var granularities = []string{"daily", "monthly", "quarterly", "yearly"}

func isTemporalToken(token string) bool {
	t := strings.ToLower(token)
	if _, ok := monthTokens[t]; ok {
		return true
	}
	switch t {
	case "q1", "q2", "q3", "q4":
		return true
	}
	if yearRe.MatchString(t) || fiscalRe.MatchString(t) {
		return true
	}
	if monthNumRe.MatchString(t) {
		n, _ := strconv.Atoi(t)
		return n >= 1 && n <= 12
	}
	return false
}

// SplitTemporal splits a column name into its root and temporal token,
// checking the last underscore-separated token before the first
func SplitTemporal(name string) (root, token string, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return "", "", false
	}
	if last := parts[len(parts)-1]; isTemporalToken(last) {
		return strings.Join(parts[:len(parts)-1], "_"), last, true
	}
	if isTemporalToken(parts[0]) {
		return strings.Join(parts[1:], "_"), parts[0], true
	}
	return "", "", false
}

// ClassifyGranularity returns daily, monthly, quarterly, yearly or unknown
func ClassifyGranularity(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case dailyRe.MatchString(s):
		return "daily"
	case quarterlyRe.MatchString(s):
		return "quarterly"
	case monthlyRe.MatchString(s):
		return "monthly"
	case yearlyRe.MatchString(s):
		return "yearly"
	}
	if _, ok := formula.ParseDate(s); ok {
		return "daily"
	}
	return "unknown"
}

// isNumericText mirrors str.isnumeric: non-empty and every rune numeric
func isNumericText(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

func stripAll(s string, chars ...string) string {
	for _, c := range chars {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}

// unnamedHeader matches loader placeholders before and after GLOBAL-03
var unnamedHeader = regexp.MustCompile(`^(Unnamed: ?|unnamed_)\d+$`)

func (r *run) headerOffset() error {
	nrows, ncols := r.ds.NumRows(), r.ds.NumCols()
	if nrows == 0 || ncols == 0 {
		return nil
	}
	cols := r.ds.Columns()

	unnamed, ugly := 0, 0
	for _, c := range cols {
		isUnnamed := unnamedHeader.MatchString(c)
		if isUnnamed {
			unnamed++
		}
		if isUnnamed || isNumericText(stripAll(c, ".", "-")) {
			ugly++
		}
	}
	unnamedFrac := float64(unnamed) / float64(ncols)
	uglyFrac := float64(ugly) / float64(ncols)

	limit := nrows
	if limit > 10 {
		limit = 10
	}

	candidate := -1
	for row := 0; row < limit && candidate < 0; row++ {
		var vals []string
		for c := 0; c < ncols; c++ {
			if v := r.ds.Cell(row, c); !model.IsNull(v) {
				vals = append(vals, strings.TrimSpace(model.Stringify(v)))
			}
		}
		if float64(len(vals))/float64(ncols) < 0.60 || len(vals) == 0 {
			continue
		}
		good := 0
		for _, v := range vals {
			if v == "" || isNumericText(stripAll(v, " ", "_", "-", ".")) {
				continue
			}
			if unicode.IsDigit([]rune(v)[0]) || len([]rune(v)) > 60 {
				continue
			}
			good++
		}
		if float64(good)/float64(len(vals)) >= 0.75 && (unnamedFrac > 0.40 || uglyFrac > 0.30) {
			candidate = row
		}
	}

	if candidate < 0 && unnamedFrac > 0.50 {
		for row := 0; row < limit; row++ {
			n := 0
			for c := 0; c < ncols; c++ {
				if s, ok := r.ds.Cell(row, c).(string); ok && strings.TrimSpace(s) != "" {
					n++
				}
			}
			if float64(n) >= float64(ncols)*0.60 {
				candidate = row
				break
			}
		}
	}
	if candidate < 0 {
		return nil
	}

	headers := make([]string, ncols)
	for c := 0; c < ncols; c++ {
		v := r.ds.Cell(candidate, c)
		if model.IsNull(v) {
			headers[c] = fmt.Sprintf("col_%d", c)
			continue
		}
		headers[c] = strings.TrimSpace(model.Stringify(v))
	}
	headers, dups := global.NormalizeHeaders(headers)
	if err := r.ds.SetColumns(headers); err != nil {
		return fmt.Errorf("promote header row %d: %w", candidate, err)
	}
	r.ds.Slice(candidate + 1)
	for _, d := range dups {
		r.logger.Debug("Renamed repeated promoted header",
			zap.String("column", d.Name),
			zap.Ints("positions", d.Positions))
	}

	preview := headers
	more := ""
	if len(preview) > 6 {
		preview = preview[:6]
		more = "..."
	}
	r.rec.Log("STRUCT-04", "header_row_offset_corrected",
		fmt.Sprintf("True header detected at original row index %d. Rows 0-%d were title/metadata and have been removed. New columns: %v%s",
			candidate, candidate, preview, more),
		model.WithNewValue(fmt.Sprintf("%v", preview)))
	r.rec.MarkApplied("STRUCT-04")
	offset := candidate
	r.summary.HeaderOffsetCorrected = &offset
	return nil
}

func (r *run) wideToLong() {
	var roots []string
	groups := make(map[string]*WideCandidate)
	for _, col := range r.ds.Columns() {
		root, token, ok := SplitTemporal(col)
		if !ok || root == "" {
			continue
		}
		g, seen := groups[root]
		if !seen {
			g = &WideCandidate{Root: root}
			groups[root] = g
			roots = append(roots, root)
		}
		g.Columns = append(g.Columns, col)
		g.TemporalTokens = append(g.TemporalTokens, token)
	}

	for _, root := range roots {
		g := groups[root]
		if len(g.Columns) < 3 {
			continue
		}
		r.rec.Flag(model.PendingFlag{
			FormulaID: "STRUCT-01",
			FlagType:  "wide_format_detected",
			Description: fmt.Sprintf("Detected %d columns sharing root '%s' with temporal suffixes %v. "+
				"Dataset is in wide (pivot) format. Reshaping to long (one row per period) enables proper time-series analysis.",
				len(g.Columns), g.Root, g.TemporalTokens),
			AffectedColumns: g.Columns,
			SuggestedAction: "reshape_wide_to_long",
			Details:         map[string]interface{}{"root": g.Root, "temporal_tokens": g.TemporalTokens},
		})
		r.rec.MarkApplied("STRUCT-01")
		r.summary.WideToLongCandidates = append(r.summary.WideToLongCandidates, *g)
	}
}

func (r *run) groupLabelFill() {
	for c := 0; c < r.ds.NumCols(); c++ {
		name := r.ds.ColumnName(c)
		values := r.ds.Column(c)
		nonNull := model.NonNull(values)
		if len(nonNull) == 0 || len(nonNull) == len(values) {
			continue
		}

		strs := 0
		for _, v := range nonNull {
			if _, ok := v.(string); ok {
				strs++
			}
		}
		if float64(strs)/float64(len(nonNull)) < 0.80 {
			continue
		}

		unique := model.DistinctCount(nonNull)
		limit := float64(len(nonNull)) * 0.20
		if limit < 10 {
			limit = 10
		}
		if unique < 2 || float64(unique) > limit {
			continue
		}

		// Every null must sit below a non-null; a leading null disqualifies
		if model.IsNull(values[0]) {
			continue
		}

		filled := 0
		var last interface{}
		for row, v := range values {
			if !model.IsNull(v) {
				last = v
				continue
			}
			r.ds.SetCell(row, c, last)
			filled++
		}
		if filled == 0 {
			continue
		}
		r.rec.Log("STRUCT-02", "group_label_forward_filled",
			fmt.Sprintf("Column '%s' identified as hierarchical group label (%d unique values, block-null pattern). Forward-filled %d null cells.",
				name, unique, filled),
			model.InColumn(name), model.WithNewValue(fmt.Sprintf("forward_filled_%d_nulls", filled)))
		r.rec.MarkApplied("STRUCT-02")
		r.summary.GroupLabelColumnsFilled = append(r.summary.GroupLabelColumnsFilled, name)
	}
}

func (r *run) mixedGranularity() {
	for c := 0; c < r.ds.NumCols(); c++ {
		name := r.ds.ColumnName(c)
		nonNull := model.NonNull(r.ds.Column(c))
		if len(nonNull) < 4 {
			continue
		}

		sample := nonNull
		if len(sample) > 20 {
			sample = sample[:20]
		}
		dateLike := 0
		for _, v := range sample {
			if ClassifyGranularity(model.Stringify(v)) != "unknown" {
				dateLike++
			}
		}
		if float64(dateLike)/float64(len(sample)) < 0.30 {
			continue
		}

		counts := make(map[string]int)
		for _, v := range nonNull {
			counts[ClassifyGranularity(model.Stringify(v))]++
		}
		total := float64(len(nonNull))
		breakdown := make(map[string]float64)
		for _, g := range granularities {
			if float64(counts[g])/total > 0.10 {
				breakdown[g] = formula.Round(float64(counts[g])/total*100, 1)
			}
		}
		if len(breakdown) < 2 {
			continue
		}

		r.rec.Flag(model.PendingFlag{
			FormulaID: "STRUCT-03",
			FlagType:  "mixed_date_granularity",
			Description: fmt.Sprintf("Column '%s' contains date values at mixed granularities: %s. "+
				"Standardise to a single granularity for reliable analysis.", name, formatBreakdown(breakdown)),
			AffectedColumns: []string{name},
			SuggestedAction: "standardize_date_granularity",
			Details:         map[string]interface{}{"breakdown": breakdown},
		})
		r.rec.MarkApplied("STRUCT-03")
		r.summary.MixedGranularityColumns = append(r.summary.MixedGranularityColumns,
			GranularityColumn{Column: name, Breakdown: breakdown})
	}
}

func formatBreakdown(b map[string]float64) string {
	parts := make([]string, 0, len(b))
	for _, g := range granularities {
		if pct, ok := b[g]; ok {
			parts = append(parts, fmt.Sprintf("%s: %.1f%%", g, pct))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (r *run) multiSheet() {
	if r.src == nil || len(r.src.Bytes) == 0 {
		return
	}
	switch loader.NormalizeType(r.src.Type) {
	case "xlsx", "xls":
	default:
		return
	}

	sheets, err := loader.ReadSheets(r.src.Bytes)
	if err != nil {
		r.logger.Debug("Skipping multi-sheet check", zap.Error(err))
		return
	}
	if len(sheets) <= 1 {
		return
	}

	type schema struct {
		name string
		cols map[string]struct{}
	}
	var schemas []schema
	for _, s := range sheets {
		if s.Err != nil {
			r.logger.Debug("Skipping unreadable sheet", zap.String("sheet", s.Name), zap.Error(s.Err))
			continue
		}
		set := make(map[string]struct{}, len(s.Columns))
		for _, c := range s.Columns {
			set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
		}
		schemas = append(schemas, schema{name: s.Name, cols: set})
	}
	if len(schemas) < 2 {
		return
	}

	ref := schemas[0]
	compatible := []string{ref.name}
	for _, other := range schemas[1:] {
		if jaccard(ref.cols, other.cols) >= 0.80 {
			compatible = append(compatible, other.name)
		}
	}
	if len(compatible) < 2 {
		return
	}

	r.rec.Flag(model.PendingFlag{
		FormulaID: "STRUCT-05",
		FlagType:  "multi_sheet_aggregation",
		Description: fmt.Sprintf("Excel file has %d sheets with compatible column structure: %v. "+
			"Stacking them would create one unified dataset (with a 'source_sheet' column for row traceability).",
			len(compatible), compatible),
		SuggestedAction: "stack_compatible_sheets",
		Details:         map[string]interface{}{"sheets": compatible},
	})
	r.rec.MarkApplied("STRUCT-05")
	r.summary.CompatibleSheets = compatible
}

func jaccard(a, b map[string]struct{}) float64 {
	union := len(a)
	inter := 0
	for k := range b {
		if _, ok := a[k]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func (r *run) transposed() {
	nrows, ncols := r.ds.NumRows(), r.ds.NumCols()
	if nrows == 0 || ncols < 3 {
		return
	}
	var signals []string

	if ncols > 5*nrows && nrows < 20 {
		signals = append(signals, fmt.Sprintf("Extreme shape %d cols x %d rows (ratio %.1fx)",
			ncols, nrows, float64(ncols)/float64(nrows)))
	}

	first := model.NonNull(r.ds.Column(0))
	if len(first) >= 2 {
		var strs []string
		for _, v := range first {
			if s, ok := v.(string); ok {
				strs = append(strs, s)
			}
		}
		if float64(len(strs)) >= float64(len(first))*0.80 {
			short, idLike := true, 0
			seen := make(map[string]struct{}, len(strs))
			for _, s := range strs {
				if len([]rune(s)) > 60 {
					short = false
				}
				seen[s] = struct{}{}
				if identifierRe.MatchString(s) {
					idLike++
				}
			}
			if short && len(seen) == len(strs) && float64(idLike) >= float64(len(strs))*0.50 {
				signals = append(signals, fmt.Sprintf(
					"First column '%s' values look like column names (unique, short, identifier-like)", r.ds.ColumnName(0)))
			}
		}
	}

	numeric, dates, ordinals := 0, 0, 0
	for _, c := range r.ds.Columns() {
		if isNumericText(stripAll(c, ".", "-", ",")) {
			numeric++
		}
		if dateNameRe.MatchString(c) {
			dates++
		}
		if ordinalRe.MatchString(c) {
			ordinals++
		}
	}
	if dataNames := numeric + dates + ordinals; float64(dataNames) > float64(ncols)*0.50 {
		signals = append(signals, fmt.Sprintf("%d/%d column names appear to be data values (%d numeric, %d date-like, %d ordinal)",
			dataNames, ncols, numeric, dates, ordinals))
	}

	if len(signals) < 2 {
		return
	}
	r.rec.Flag(model.PendingFlag{
		FormulaID: "STRUCT-06",
		FlagType:  "transposed_table",
		Description: fmt.Sprintf("Dataset may be transposed (rows/columns swapped). Current shape: %d rows x %d columns. "+
			"After transpose: %d rows x %d columns. Signals: %s",
			nrows, ncols, ncols, nrows, strings.Join(signals, "; ")),
		SuggestedAction: "transpose_dataset",
	})
	r.rec.MarkApplied("STRUCT-06")
	r.summary.TransposedLikely = true
}
