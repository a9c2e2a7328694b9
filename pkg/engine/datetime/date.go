package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var (
	yearOnlyRe  = regexp.MustCompile(`^(\d{4})$`)
	yearMonthRe = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})$`)
)

var dobTokens = []string{"dob", "birth", "born"}

// invalidDates runs before any parsing and flags strings that cannot be a
// date at all, such as 32/13/2024 or free text
func (r *run) invalidDates(c *formula.Column) formula.Result {
	r.capture(c)
	return c.FlagWhere("DATE-03", "invalid_date", "Logically impossible dates detected",
		"Correct or remove invalid dates", func(v interface{}) bool {
			s, ok := v.(string)
			if !ok || IsDatePlaceholder(s) {
				return false
			}
			if m := numericDate.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
				d1, _ := strconv.Atoi(m[1])
				d2, _ := strconv.Atoi(m[2])
				if (d1 > 12 && d2 > 12) || d1 > 31 || d2 > 31 {
					return true
				}
			}
			_, parsed := ParseDate(s, true, r.ref)
			return !parsed
		})
}

func datePlaceholderNulls(c *formula.Column) formula.Result {
	return c.TransformStrings("DATE-10", "Placeholder to null conversion", func(s string) (interface{}, bool) {
		return nil, IsDatePlaceholder(s)
	})
}

func excelSerials(c *formula.Column) formula.Result {
	return c.Transform("DATE-09", "Excel serial number conversion", func(v interface{}) (interface{}, bool) {
		t, ok := ExcelSerial(v)
		return t, ok
	})
}

func (r *run) relativeDates(c *formula.Column) formula.Result {
	return c.TransformStrings("DATE-14", "Relative date conversion", func(s string) (interface{}, bool) {
		t, ok := Relative(s, r.ref)
		return t, ok
	})
}

func partialDates(c *formula.Column) formula.Result {
	return c.Transform("DATE-08", "Partial date handling", func(v interface{}) (interface{}, bool) {
		if _, ok := v.(time.Time); ok {
			return v, false
		}
		s := strings.TrimSpace(model.Stringify(v))
		if m := yearOnlyRe.FindStringSubmatch(s); m != nil {
			year, _ := strconv.Atoi(m[1])
			if year < 1900 || year > 2100 {
				return v, false
			}
			return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), true
		}
		if m := yearMonthRe.FindStringSubmatch(s); m != nil {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			if year < 1900 || year > 2100 || month < 1 || month > 12 {
				return v, false
			}
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
		}
		return v, false
	})
}

func (r *run) parseDates(c *formula.Column) formula.Result {
	dayFirst := DayFirst(c.Values())
	return c.Transform("DATE-01", "Permissive date parsing", func(v interface{}) (interface{}, bool) {
		if _, ok := v.(time.Time); ok {
			return v, false
		}
		t, ok := ParseDate(v, dayFirst, r.ref)
		if !ok || !validYear(t) {
			return v, false
		}
		return t, true
	})
}

// lockType coerces whatever is still not a time value to null so the column
// holds a single type. The values it nulls were flagged before parsing.
func lockType(id, action string) func(*formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		return c.Transform(id, action, func(v interface{}) (interface{}, bool) {
			_, ok := v.(time.Time)
			return nil, !ok
		})
	}
}

var weekdayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func weekdays(c *formula.Column) formula.Result {
	values := c.Values()
	derived := make([]interface{}, len(values))
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			derived[i] = weekdayNames[t.Weekday()]
		}
	}
	res := c.Result("DATE-12", formula.Auto)
	res.Changes = c.SetDerived("DATE-12", c.Name+"_weekday", derived)
	return res
}

// ambiguousDates compares the raw input, since by now every cell is parsed
func (r *run) ambiguousDates(c *formula.Column) formula.Result {
	var rows []int
	var samples []string
	for i := range c.Values() {
		s, ok := r.original(c, i).(string)
		if !ok {
			continue
		}
		m := numericDate.FindStringSubmatch(strings.TrimSpace(s))
		if m == nil {
			continue
		}
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		if first <= 12 && second <= 12 && first != second {
			rows = append(rows, i)
			if len(samples) < 5 {
				samples = append(samples, s)
			}
		}
	}
	return c.Flag("DATE-02", "ambiguous_date_format", "Ambiguous date format (day/month could be swapped)",
		"Confirm date format: DD/MM/YYYY or MM/DD/YYYY", rows,
		map[string]interface{}{"sample_values": samples})
}

func (r *run) futureDates(c *formula.Column) formula.Result {
	today := dateOf(r.ref)
	return c.FlagWhere("DATE-04", "future_date", "Future dates detected in historical column",
		"Verify or correct future dates", func(v interface{}) bool {
			t, ok := v.(time.Time)
			return ok && dateOf(t).After(today)
		})
}

func (r *run) birthDates(c *formula.Column) formula.Result {
	if !formula.ContainsAny(strings.ToLower(c.Name), dobTokens...) {
		return c.Result("DATE-05", formula.AskFirst)
	}
	today := dateOf(r.ref)
	return c.FlagWhere("DATE-05", "invalid_dob", "DOB produces invalid age (< 0 or > 120)",
		"Verify date of birth values", func(v interface{}) bool {
			t, ok := v.(time.Time)
			if !ok {
				return false
			}
			age := today.Sub(dateOf(t)).Hours() / 24 / 365.25
			return age < 0 || age > 120
		})
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
