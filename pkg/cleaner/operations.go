package cleaner

import (
	"regexp"
	"sort"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	notNameChar   = regexp.MustCompile(`[^a-z0-9_]`)
)

// NormalizeName lowercases a column name, replaces whitespace runs with
// underscores and drops every other character outside [a-z0-9_]
func NormalizeName(name string) string {
	clean := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return notNameChar.ReplaceAllString(clean, "")
}

// DateHitRate returns the share of the first sampleSize non-null values
// that parse as dates. It reports false when the column has no values.
func DateHitRate(values []interface{}, sampleSize int) (float64, bool) {
	sample := model.NonNull(values)
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	if len(sample) == 0 {
		return 0, false
	}
	hits := 0
	for _, v := range sample {
		if _, ok := formula.CellTime(v); ok {
			hits++
		}
	}
	return float64(hits) / float64(len(sample)), true
}

// YearMonth formats a date cell as YYYY-MM
func YearMonth(v interface{}) (string, bool) {
	t, ok := formula.CellTime(v)
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}

// Age buckets, closed on the right
const (
	bucketChild  = "0-18"
	bucketYoung  = "19-35"
	bucketMiddle = "36-60"
	bucketSenior = "60+"
)

// BucketAge maps an age to its bucket label. Values that are not numbers
// or fall outside 0-120 are returned unchanged.
func BucketAge(v interface{}) interface{} {
	age, ok := formula.ToFloat(v)
	if !ok || age < 0 || age > 120 {
		return v
	}
	switch {
	case age <= 18:
		return bucketChild
	case age <= 35:
		return bucketYoung
	case age <= 60:
		return bucketMiddle
	default:
		return bucketSenior
	}
}

func looksLikeAges(xs []float64, share float64) bool {
	if len(xs) == 0 {
		return false
	}
	in := 0
	top := xs[0]
	for _, x := range xs {
		if x >= 0 && x <= 120 {
			in++
		}
		if x > top {
			top = x
		}
	}
	return float64(in)/float64(len(xs)) >= share && top <= 120
}

// isNumericColumn reports whether every non-null cell is an int64 or float64
func isNumericColumn(values []interface{}) bool {
	switch model.InferDtype(values) {
	case "int64", "float64":
		return true
	}
	return false
}

// FillValue picks the replacement for a column's nulls: the mean, rounded
// to four decimals, for numeric columns and the most frequent value for
// everything else. Mode ties go to the value that sorts first.
func FillValue(values []interface{}) (interface{}, string, bool) {
	if isNumericColumn(values) {
		xs := formula.Numbers(values)
		if len(xs) == 0 {
			return nil, "", false
		}
		return formula.NumberCell(formula.Round(formula.Mean(xs), 4)), "mean", true
	}

	counts := make(map[string]int)
	cells := make(map[string]interface{})
	for _, v := range values {
		if model.IsNull(v) {
			continue
		}
		k := model.Key(v)
		counts[k]++
		cells[k] = v
	}
	if len(counts) == 0 {
		return nil, "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return model.Stringify(cells[keys[i]]) < model.Stringify(cells[keys[j]])
	})
	return cells[keys[0]], "mode", true
}

// IQRFences returns the outlier fences q1 - factor*iqr and q3 + factor*iqr.
// At least four values are needed.
func IQRFences(xs []float64, factor float64) (lower, upper float64, ok bool) {
	if len(xs) < 4 {
		return 0, 0, false
	}
	q1 := formula.Quantile(xs, 0.25)
	q3 := formula.Quantile(xs, 0.75)
	iqr := q3 - q1
	return q1 - factor*iqr, q3 + factor*iqr, true
}
