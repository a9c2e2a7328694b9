package numeric

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
)

var (
	plainNumberRe     = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)
	thousandsRe       = regexp.MustCompile(`(\d),(\d{3})\b`)
	europeanDecimalRe = regexp.MustCompile(`^[+-]?[\d.]+,\d{1,2}$`)
	scientificRe      = regexp.MustCompile(`^[+-]?\d+\.?\d*[eE][+-]?\d+$`)
	numericLookingRe  = regexp.MustCompile(`^[\d,.\-+]+$`)
	currencyWordRe    = regexp.MustCompile(`(?i)\s+(?:dollars?|euros?|pounds?|rupees?|yen|bucks)$`)

	approxPrefixRe = regexp.MustCompile(`(?i)^(?:approximately|approx\.?|about|around|roughly|circa|nearly|almost|~)\s*`)
	approxSuffixRe = regexp.MustCompile(`(?i)\s*(?:approximately|approx\.?|or so|-?ish)$`)

	numberUnitRe = regexp.MustCompile(`^([\d,.\-+]+)\s*([a-zA-Z%]+)$`)
	unitNumberRe = regexp.MustCompile(`^([a-zA-Z$€£¥₹]+)\s*([\d,.\-+]+)$`)
)

// ordinalSuffixes are never treated as units
var ordinalSuffixes = formula.NewSet("st", "nd", "rd", "th")

// RemoveThousands drops comma thousand separators: 1,234,567.89 → 1234567.89
func RemoveThousands(s string) string {
	for {
		next := thousandsRe.ReplaceAllString(s, "$1$2")
		if next == s {
			return s
		}
		s = next
	}
}

// IsEuropean reports whether s uses a comma as its decimal separator,
// as in 1.234,56 or 12,5
func IsEuropean(s string) bool {
	if strings.Contains(s, ".") && strings.Contains(s, ",") {
		return strings.LastIndex(s, ",") > strings.LastIndex(s, ".")
	}
	return europeanDecimalRe.MatchString(s)
}

// FromEuropean rewrites European notation with a decimal point
func FromEuropean(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
}

// ParseNumber reads an amount the way a spreadsheet user writes it:
// currency symbols or codes, thousand separators, European decimals and
// accounting parentheses for negatives are all accepted.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if len(s) > 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	_, s, _ = ExtractCurrency(s)
	if IsEuropean(s) {
		s = FromEuropean(s)
	} else {
		s = RemoveThousands(s)
	}
	s = strings.ReplaceAll(s, " ", "")
	if !plainNumberRe.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// cellNumber returns the numeric value of a cell, parsing strings leniently.
// Booleans are not numbers.
func cellNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case string:
		return ParseNumber(x)
	case bool:
		return 0, false
	}
	return formula.ToFloat(v)
}

// numbers returns the numeric cells of values with their row positions
func numbers(values []interface{}) (rows []int, xs []float64) {
	for i, v := range values {
		if f, ok := cellNumber(v); ok {
			rows = append(rows, i)
			xs = append(xs, f)
		}
	}
	return rows, xs
}

// spelledNumber parses written numbers and reports whether any word had to
// be corrected first
func spelledNumber(s string) (n int64, corrected, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return r == ' ' || r == '-' }) {
		if _, fixed := formula.CorrectNumberWord(w); fixed {
			corrected = true
		}
	}
	n, ok = formula.WordsToNumber(lower)
	return n, corrected, ok
}

// Approximate strips markers such as "approx", "~" or "-ish" and returns
// the number they qualify
func Approximate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	stripped := approxSuffixRe.ReplaceAllString(approxPrefixRe.ReplaceAllString(s, ""), "")
	if stripped == s {
		return 0, false
	}
	if f, ok := ParseNumber(stripped); ok {
		return f, true
	}
	if n, _, ok := spelledNumber(stripped); ok {
		return float64(n), true
	}
	return 0, false
}

// SplitUnit separates "50 kg" or "kg 50" into its number and unit
func SplitUnit(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	if m := numberUnitRe.FindStringSubmatch(s); m != nil && !ordinalSuffixes.Has(strings.ToLower(m[2])) {
		if f, ok := ParseNumber(m[1]); ok {
			return f, m[2], true
		}
	}
	if m := unitNumberRe.FindStringSubmatch(s); m != nil {
		if f, ok := ParseNumber(m[2]); ok {
			return f, m[1], true
		}
	}
	return 0, "", false
}

// deviants returns the rows lying more than k sample standard deviations
// from center
func deviants(values []interface{}, center func([]float64) float64, k float64) []int {
	rows, xs := numbers(values)
	if len(xs) < 3 {
		return nil
	}
	sd := formula.StdDev(xs)
	if sd == 0 {
		return nil
	}
	mid := center(xs)
	var out []int
	for i, x := range xs {
		if math.Abs(x-mid) > k*sd {
			out = append(out, rows[i])
		}
	}
	return out
}

// iqrOutliers returns the rows outside Q1-1.5·IQR..Q3+1.5·IQR
func iqrOutliers(values []interface{}) []int {
	rows, xs := numbers(values)
	if len(xs) < 4 {
		return nil
	}
	q1, q3 := formula.Quantile(xs, 0.25), formula.Quantile(xs, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		return nil
	}
	var out []int
	for i, x := range xs {
		if x < q1-1.5*iqr || x > q3+1.5*iqr {
			out = append(out, rows[i])
		}
	}
	return out
}

// rareZeros returns the rows holding zero when zeros make up less than 5%
// of the numeric values, which usually means they stand in for missing data
func rareZeros(values []interface{}) ([]int, float64) {
	rows, xs := numbers(values)
	var zeros []int
	for i, x := range xs {
		if x == 0 {
			zeros = append(zeros, rows[i])
		}
	}
	if len(zeros) == 0 {
		return nil, 0
	}
	share := float64(len(zeros)) / float64(len(xs))
	if share >= 0.05 {
		return nil, share
	}
	return zeros, share
}
