// Package compare lines up two versions of a dataset, for example two
// reporting periods, and reports how the numeric columns moved.
package compare

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// ErrNoCommonColumns is returned when a mapping leaves nothing to compare
var ErrNoCommonColumns = errors.New("no mapped columns are present in both datasets")

// Options holds the comparison thresholds
type Options struct {
	MatchThreshold       float64 // minimum header similarity, 0-100
	SignificantChangePct float64 // absolute change that counts as significant
}

// DefaultOptions returns the standard thresholds
func DefaultOptions() Options {
	return Options{MatchThreshold: 75, SignificantChangePct: 20}
}

// HeaderMatch pairs a column of the first dataset with one of the second
type HeaderMatch struct {
	Column     string  `json:"column" yaml:"column"`
	MatchedTo  string  `json:"matched_to" yaml:"matched_to"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// Delta is the change of one column's total between the two datasets.
// ChangePct is nil when the first total is zero.
type Delta struct {
	Column    string   `json:"column" yaml:"column"`
	Period1   float64  `json:"period1_value" yaml:"period1_value"`
	Period2   float64  `json:"period2_value" yaml:"period2_value"`
	ChangePct *float64 `json:"change_pct" yaml:"change_pct"`
}

// Result is a finished comparison
type Result struct {
	Mapping     []HeaderMatch `json:"mapping" yaml:"mapping"`
	Deltas      []Delta       `json:"deltas" yaml:"deltas"`
	Significant []Delta       `json:"significant_changes" yaml:"significant_changes"`
}

// Comparer compares pairs of datasets
type Comparer struct {
	opts   Options
	logger *zap.Logger
}

// NewComparer creates a comparer
func NewComparer(opts Options, logger *zap.Logger) *Comparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparer{opts: opts, logger: logger}
}

// Similarity scores two header names from 0 to 100, ignoring case
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return formula.Round((1-float64(dist)/float64(longest))*100, 2)
}

// MatchHeaders pairs each column of left with its most similar unused
// column of right. Pairs below the match threshold are left out.
func (c *Comparer) MatchHeaders(left, right *model.Dataset) []HeaderMatch {
	matches := []HeaderMatch{}
	used := make(map[string]bool)
	for _, col := range left.Columns() {
		best, bestScore := "", 0.0
		for _, cand := range right.Columns() {
			if used[cand] {
				continue
			}
			if score := Similarity(col, cand); score > bestScore {
				best, bestScore = cand, score
			}
		}
		if best == "" || bestScore < c.opts.MatchThreshold {
			continue
		}
		used[best] = true
		matches = append(matches, HeaderMatch{Column: col, MatchedTo: best, Similarity: bestScore})
	}
	c.logger.Debug("Matched headers",
		zap.Int("left_columns", left.NumCols()),
		zap.Int("right_columns", right.NumCols()),
		zap.Int("matches", len(matches)))
	return matches
}

// Align returns the columns named in mapping (left name to right name)
// from both datasets, with the right columns renamed to their left names.
// Columns come out in the order of left.
func Align(left, right *model.Dataset, mapping map[string]string) (*model.Dataset, *model.Dataset, error) {
	var names []string
	var lcols, rcols [][]interface{}
	for i, col := range left.Columns() {
		target, ok := mapping[col]
		if !ok {
			continue
		}
		values, found := right.ColumnByName(target)
		if !found {
			continue
		}
		names = append(names, col)
		lcols = append(lcols, left.Column(i))
		rcols = append(rcols, values)
	}
	if len(names) == 0 {
		return nil, nil, ErrNoCommonColumns
	}
	l, err := model.FromColumns(names, lcols)
	if err != nil {
		return nil, nil, fmt.Errorf("align first dataset: %w", err)
	}
	r, err := model.FromColumns(names, rcols)
	if err != nil {
		return nil, nil, fmt.Errorf("align second dataset: %w", err)
	}
	return l, r, nil
}

// Deltas compares the column totals of two aligned datasets. Columns
// without a numeric value on either side are skipped.
func Deltas(left, right *model.Dataset) []Delta {
	deltas := []Delta{}
	for i, col := range left.Columns() {
		values, ok := right.ColumnByName(col)
		if !ok {
			continue
		}
		n1, n2 := formula.Numbers(left.Column(i)), formula.Numbers(values)
		if len(n1) == 0 || len(n2) == 0 {
			continue
		}
		p1, p2 := sum(n1), sum(n2)
		d := Delta{Column: col, Period1: formula.Round(p1, 4), Period2: formula.Round(p2, 4)}
		if p1 != 0 {
			pct := formula.Round((p2-p1)/math.Abs(p1)*100, 2)
			d.ChangePct = &pct
		}
		deltas = append(deltas, d)
	}
	return deltas
}

// Significant keeps the deltas whose absolute change reaches thresholdPct
func Significant(deltas []Delta, thresholdPct float64) []Delta {
	out := []Delta{}
	for _, d := range deltas {
		if d.ChangePct != nil && math.Abs(*d.ChangePct) >= thresholdPct {
			out = append(out, d)
		}
	}
	return out
}

// Compare aligns two datasets and computes their deltas. A nil mapping
// uses the fuzzy header matches.
func (c *Comparer) Compare(left, right *model.Dataset, mapping map[string]string) (*Result, error) {
	if left == nil || right == nil {
		return nil, fmt.Errorf("compare: %w", model.ErrEmptyDataset)
	}
	matches := c.MatchHeaders(left, right)
	if mapping == nil {
		mapping = make(map[string]string, len(matches))
		for _, m := range matches {
			mapping[m.Column] = m.MatchedTo
		}
	} else {
		matches = confirmed(mapping, left)
	}

	l, r, err := Align(left, right, mapping)
	if err != nil {
		return nil, err
	}
	deltas := Deltas(l, r)
	res := &Result{
		Mapping:     matches,
		Deltas:      deltas,
		Significant: Significant(deltas, c.opts.SignificantChangePct),
	}
	c.logger.Info("Datasets compared",
		zap.Int("columns", l.NumCols()),
		zap.Int("deltas", len(res.Deltas)),
		zap.Int("significant", len(res.Significant)))
	return res, nil
}

// confirmed lists a hand-written mapping in the column order of left
func confirmed(mapping map[string]string, left *model.Dataset) []HeaderMatch {
	out := []HeaderMatch{}
	for _, col := range left.Columns() {
		if target, ok := mapping[col]; ok {
			out = append(out, HeaderMatch{Column: col, MatchedTo: target, Similarity: Similarity(col, target)})
		}
	}
	return out
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}
