package formula

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ToFloat converts a numeric cell or numeric-looking string to float64
func ToFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case bool:
		return 0, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ToInt converts a cell to int64 when it holds an integral number
func ToInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err == nil {
			return n, true
		}
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// IsNumeric reports whether a cell is numeric or parses as a number
func IsNumeric(v interface{}) bool {
	_, ok := ToFloat(v)
	return ok
}

// Numbers returns the numeric values of a column, skipping everything else
func Numbers(values []interface{}) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Round rounds f to the given number of decimals, halves away from zero
func Round(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}

// NumberCell returns an int64 cell for integral values and float64 otherwise
func NumberCell(f float64) interface{} {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

var allDigits = regexp.MustCompile(`^\d+$`)

// ParseDate parses a date or datetime string permissively. Bare digit
// strings are only accepted as YYYY or YYYYMMDD so that plain numbers are
// not read as epoch timestamps.
func ParseDate(s string) (time.Time, bool) {
	return parseDate(s, true)
}

// ParseDateDayFirst parses ambiguous numeric dates as day/month/year
func ParseDateDayFirst(s string) (time.Time, bool) {
	return parseDate(s, false)
}

func parseDate(s string, monthFirst bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 64 {
		return time.Time{}, false
	}
	if allDigits.MatchString(s) {
		switch len(s) {
		case 4:
			y, _ := strconv.Atoi(s)
			if y < 1000 {
				return time.Time{}, false
			}
			return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), true
		case 8:
			t, err := time.Parse("20060102", s)
			return t, err == nil
		default:
			return time.Time{}, false
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(monthFirst))
	if err != nil {
		// 03/15/2024 under a day-first preference is only valid swapped
		t, err = dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(!monthFirst))
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

// CellTime returns the time held by a cell, parsing strings permissively
func CellTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return ParseDate(x)
	}
	return time.Time{}, false
}

// Mean returns the arithmetic mean of xs
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation of xs
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// Quantile returns the q-quantile of xs using linear interpolation
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Median returns the median of xs
func Median(xs []float64) float64 { return Quantile(xs, 0.5) }
