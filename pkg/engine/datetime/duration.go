package datetime

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// nameUnits maps unit words that may appear in a duration column name to
// their canonical unit
var nameUnits = map[string]string{
	"seconds": "seconds", "secs": "seconds", "sec": "seconds",
	"minutes": "minutes", "mins": "minutes", "min": "minutes",
	"hours": "hours", "hrs": "hours", "hr": "hours",
	"days": "days",
	"weeks": "weeks", "wks": "weeks",
	"months": "months",
	"years": "years", "yrs": "years",
}

var nameSplitRe = regexp.MustCompile(`[^a-z]+`)

// UnitFromName returns the canonical unit a column name declares, such as
// "hours" for "call_duration_hrs", or "" when the name is silent
func UnitFromName(name string) string {
	for _, tok := range nameSplitRe.Split(strings.ToLower(name), -1) {
		if unit, ok := nameUnits[tok]; ok {
			return unit
		}
	}
	return ""
}

var digitsAndDots = regexp.MustCompile(`^[\d.]+$`)

func (r *run) durationWords(c *formula.Column) formula.Result {
	r.capture(c)
	return c.TransformStrings("DUR-01", "Word-to-unit duration parsing", func(s string) (interface{}, bool) {
		if digitsAndDots.MatchString(s) {
			return s, false
		}
		days, unitless, ok := ParseDuration(s)
		if !ok || unitless {
			return s, false
		}
		return days, true
	})
}

// durationUnits converts bare numbers in a column whose name carries a unit,
// such as "wait_hours", to days and records the source unit alongside
func (r *run) durationUnits(c *formula.Column) formula.Result {
	unit := UnitFromName(c.Name)
	if unit == "" || unit == "days" {
		return c.Result("DUR-02", formula.Auto)
	}
	factor := secondsPerUnit[unit] / 86400
	units := make([]interface{}, c.Data.NumRows())
	res := c.TransformRows("DUR-02", "Duration unit standardization (to days)", func(row int, v interface{}) (interface{}, bool) {
		raw := r.original(c, row)
		if !model.Equal(raw, v) {
			return v, false
		}
		if _, isBool := v.(bool); isBool {
			return v, false
		}
		f, ok := formula.ToFloat(v)
		if !ok {
			return v, false
		}
		units[row] = unit
		return f * factor, true
	})
	if res.Changes > 0 {
		c.SetDerived("DUR-02", c.Name+"_original_unit", units)
	}
	return res
}

func durationFormat(c *formula.Column) formula.Result {
	return c.Transform("DUR-03", "Duration format normalization", func(v interface{}) (interface{}, bool) {
		f, ok := v.(float64)
		if !ok {
			return v, false
		}
		rounded := formula.Round(f, 4)
		return rounded, rounded != f
	})
}

func negativeDurations(c *formula.Column) formula.Result {
	return c.FlagWhere("DUR-04", "negative_duration", "Negative duration values detected",
		"Correct or remove negative durations", func(v interface{}) bool {
			f, ok := formula.ToFloat(v)
			return ok && f < 0
		})
}

func durationOutliers(c *formula.Column) formula.Result {
	nums := formula.Numbers(c.Values())
	if len(nums) < 10 {
		return c.Result("DUR-06", formula.AskFirst)
	}
	q1, q3 := formula.Quantile(nums, 0.25), formula.Quantile(nums, 0.75)
	iqr := q3 - q1
	lower, upper := q1-3*iqr, q3+3*iqr
	rows := c.Rows(func(v interface{}) bool {
		f, ok := formula.ToFloat(v)
		return ok && (f < lower || f > upper)
	})
	return c.Flag("DUR-06", "duration_outlier",
		fmt.Sprintf("Duration outliers detected (outside %.1f - %.1f)", lower, upper),
		"Review extreme duration values", rows,
		map[string]interface{}{"lower_bound": lower, "upper_bound": upper})
}

// unitlessDurations flags values that arrived as bare numbers in a column
// whose name does not say what unit they are in
func (r *run) unitlessDurations(c *formula.Column) formula.Result {
	if UnitFromName(c.Name) != "" {
		return c.Result("DUR-07", formula.AskFirst)
	}
	var rows []int
	var samples []string
	for i := range c.Values() {
		raw := r.original(c, i)
		if model.IsNull(raw) {
			continue
		}
		if !formula.IsNumeric(model.Stringify(raw)) {
			continue
		}
		rows = append(rows, i)
		if len(samples) < 5 {
			samples = append(samples, model.Stringify(raw))
		}
	}
	return c.Flag("DUR-07", "ambiguous_duration_unit", "Numeric durations without units detected",
		"Specify the unit (days, months, years, etc.)", rows,
		map[string]interface{}{"sample_values": samples})
}
