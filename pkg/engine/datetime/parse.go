package datetime

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var datePlaceholders = map[string]struct{}{
	"01/01/1900": {}, "1900-01-01": {}, "1/1/1900": {},
	"00/00/0000": {}, "0000-00-00": {},
	"01/01/1970": {}, "1970-01-01": {}, "1/1/1970": {},
	"01-01-1900": {}, "01.01.1900": {},
	"n/a": {}, "na": {}, "n.a.": {}, "none": {}, "null": {}, "unknown": {}, "tbd": {}, "pending": {},
	"not available": {}, "not applicable": {}, "empty": {}, "---": {}, "--": {}, "-": {},
}

// IsDatePlaceholder reports sentinel dates and missing-value tokens
func IsDatePlaceholder(v interface{}) bool {
	if model.IsNull(v) {
		return true
	}
	if _, ok := v.(string); !ok {
		return false
	}
	_, ok := datePlaceholders[strings.ToLower(strings.TrimSpace(model.Stringify(v)))]
	return ok
}

var (
	ordinalRe   = regexp.MustCompile(`(?i)(\d{1,2})(st|nd|rd|th)\b`)
	daysAgoRe   = regexp.MustCompile(`^(\d+)\s+days?\s+ago`)
	weeksAgoRe  = regexp.MustCompile(`^(\d+)\s+weeks?\s+ago`)
	monthsAgoRe = regexp.MustCompile(`^(\d+)\s+months?\s+ago`)
	numericDate = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})$`)
)

var relativeDays = map[string]int{"today": 0, "yesterday": -1, "tomorrow": 1}

// excelEpoch is day zero of the spreadsheet serial date system
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ExcelSerial converts a spreadsheet serial day number to a date. Only
// numeric cells between 30000 and 60000 (1982 to 2064) are treated as serials.
func ExcelSerial(v interface{}) (time.Time, bool) {
	var serial float64
	switch x := v.(type) {
	case int64:
		serial = float64(x)
	case float64:
		serial = x
	default:
		return time.Time{}, false
	}
	if serial < 30000 || serial > 60000 {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	frac := serial - days
	t := excelEpoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(frac * float64(24*time.Hour)).Round(time.Second)), true
}

// Relative resolves phrases like "yesterday" or "3 weeks ago" against ref
func Relative(s string, ref time.Time) (time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if offset, ok := relativeDays[s]; ok {
		return day.AddDate(0, 0, offset), true
	}
	if m := daysAgoRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return day.AddDate(0, 0, -n), true
	}
	if m := weeksAgoRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return day.AddDate(0, 0, -7*n), true
	}
	if m := monthsAgoRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return day.AddDate(0, -n, 0), true
	}
	return time.Time{}, false
}

// DayFirst reports whether the numeric dates among the first 100 non-null
// values lean day/month/year. Ties resolve to day-first.
func DayFirst(values []interface{}) bool {
	var dmy, mdy, seen int
	for _, v := range values {
		if model.IsNull(v) {
			continue
		}
		if seen++; seen > 100 {
			break
		}
		m := numericDate.FindStringSubmatch(model.Stringify(v))
		if m == nil {
			continue
		}
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		switch {
		case first > 12 && second <= 12:
			dmy++
		case second > 12 && first <= 12:
			mdy++
		}
	}
	return dmy >= mdy
}

// ParseDate parses a date cell permissively: time values pass through,
// spreadsheet serials and relative phrases are resolved, ordinal suffixes
// are dropped and the rest is handed to the free-form parser.
func ParseDate(v interface{}, dayFirst bool, ref time.Time) (time.Time, bool) {
	if model.IsNull(v) {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	if t, ok := ExcelSerial(v); ok {
		return t, true
	}
	s := strings.TrimSpace(model.Stringify(v))
	if s == "" || IsDatePlaceholder(s) {
		return time.Time{}, false
	}
	s = ordinalRe.ReplaceAllString(s, "$1")
	if t, ok := Relative(s, ref); ok {
		return t, true
	}
	if dayFirst {
		return formula.ParseDateDayFirst(s)
	}
	return formula.ParseDate(s)
}

// validYear bounds the years a parsed date column accepts
func validYear(t time.Time) bool {
	return t.Year() >= 1900 && t.Year() <= 2100
}

var (
	clockRe    = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)
	hourOnlyRe = regexp.MustCompile(`^(\d{1,2})$`)
	// checked in order so "p.m." wins over "m"
	pmSuffixes = []string{"p.m.", "p.m", "pm", "p"}
	amSuffixes = []string{"a.m.", "a.m", "am", "a"}
)

// Clock is a time of day
type Clock struct {
	Hour, Minute, Second int
}

// String renders HH:MM, or HH:MM:SS when seconds are set
func (c Clock) String() string {
	if c.Second > 0 {
		return c.Long()
	}
	return twoDigits(c.Hour) + ":" + twoDigits(c.Minute)
}

// Long renders HH:MM:SS
func (c Clock) Long() string {
	return twoDigits(c.Hour) + ":" + twoDigits(c.Minute) + ":" + twoDigits(c.Second)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Meridiem splits a trailing AM/PM marker off s. marker is 0 when absent,
// 'a' for AM and 'p' for PM.
func Meridiem(s string) (string, byte) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range pmSuffixes {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(s, suffix)), 'p'
		}
	}
	for _, suffix := range amSuffixes {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(s, suffix)), 'a'
		}
	}
	return s, 0
}

// ParseClock parses "3:00 PM", "3pm", "15:00" or "9:5". Time cells yield
// their time of day.
func ParseClock(v interface{}) (Clock, bool) {
	if t, ok := v.(time.Time); ok {
		return Clock{t.Hour(), t.Minute(), t.Second()}, true
	}
	if model.IsNull(v) {
		return Clock{}, false
	}
	s, marker := Meridiem(model.Stringify(v))
	if s == "" {
		return Clock{}, false
	}
	var c Clock
	if m := clockRe.FindStringSubmatch(s); m != nil {
		c.Hour, _ = strconv.Atoi(m[1])
		c.Minute, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			c.Second, _ = strconv.Atoi(m[3])
		}
	} else if m := hourOnlyRe.FindStringSubmatch(s); m != nil && marker != 0 {
		c.Hour, _ = strconv.Atoi(m[1])
	} else {
		return Clock{}, false
	}
	switch {
	case marker == 'p' && c.Hour < 12:
		c.Hour += 12
	case marker == 'a' && c.Hour == 12:
		c.Hour = 0
	}
	if c.Hour > 23 || c.Minute > 59 || c.Second > 59 {
		return Clock{}, false
	}
	return c, true
}

// Bucket names the part of the day a clock time falls in
func Bucket(c Clock) string {
	switch {
	case c.Hour >= 6 && c.Hour < 12:
		return "Morning"
	case c.Hour >= 12 && c.Hour < 17:
		return "Afternoon"
	case c.Hour >= 17 && c.Hour < 21:
		return "Evening"
	}
	return "Night"
}

var timezoneRe = regexp.MustCompile(`(?i)(UTC|GMT)?([+-])(\d{1,2}):?(\d{2})?`)

// SplitTimezone separates a trailing UTC offset such as "+05:30" or "GMT-5"
func SplitTimezone(s string) (clock, zone string, ok bool) {
	loc := timezoneRe.FindStringIndex(s)
	if loc == nil {
		return s, "", false
	}
	return strings.TrimSpace(s[:loc[0]]), s[loc[0]:loc[1]], true
}

// secondsPerUnit converts duration units to seconds
var secondsPerUnit = map[string]float64{
	"second": 1, "seconds": 1, "sec": 1, "secs": 1, "s": 1,
	"minute": 60, "minutes": 60, "min": 60, "mins": 60, "m": 60,
	"hour": 3600, "hours": 3600, "hr": 3600, "hrs": 3600, "h": 3600,
	"day": 86400, "days": 86400, "d": 86400,
	"week": 604800, "weeks": 604800, "wk": 604800, "wks": 604800, "w": 604800,
	"month": 2629746, "months": 2629746, "mo": 2629746,
	"year": 31556952, "years": 31556952, "yr": 31556952, "yrs": 31556952, "y": 31556952,
}

var (
	durationClockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	durationPartRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?|\w+)\s*(second|seconds|sec|secs|s|minute|minutes|min|mins|m|hour|hours|hr|hrs|h|day|days|d|week|weeks|wk|wks|w|month|months|mo|year|years|yr|yrs|y)\b`)
)

// ParseDuration converts "2h 30m", "1:30", "two weeks" or "90 min" to days.
// A bare number returns unitless=true because its unit cannot be known.
func ParseDuration(v interface{}) (days float64, unitless bool, ok bool) {
	if model.IsNull(v) {
		return 0, false, false
	}
	s := strings.ToLower(strings.TrimSpace(model.Stringify(v)))
	if s == "" {
		return 0, false, false
	}
	if m := durationClockRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		return float64(h*3600+mins*60+sec) / 86400, false, true
	}
	total := 0.0
	for _, m := range durationPartRe.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			w, ok := formula.WordsToNumber(m[1])
			if !ok {
				continue
			}
			n = float64(w)
		}
		total += n * secondsPerUnit[strings.ToLower(m[2])]
	}
	if total > 0 {
		return total / 86400, false, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true, true
	}
	return 0, false, false
}
