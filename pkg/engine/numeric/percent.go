package numeric

import (
	"regexp"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
)

var percentWordRe = regexp.MustCompile(`(?i)^(.+?)\s*(?:percent|per cent|pct|%)$`)

var growthNameWords = []string{"growth", "change", "increase", "decrease", "yoy", "mom", "delta"}

// ParsePercent reads "85%", "85 %", "eighty five percent" or "12.5 pct"
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if m := percentWordRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if f, ok := ParseNumber(s); ok {
		return f, true
	}
	if n, _, ok := spelledNumber(s); ok {
		return float64(n), true
	}
	return 0, false
}

func percentSymbols(c *formula.Column) formula.Result {
	return c.TransformStrings("PCT-01", "Percent sign removed", func(s string) (interface{}, bool) {
		if !strings.Contains(s, "%") {
			return s, false
		}
		return ParsePercent(s)
	})
}

func percentWords(c *formula.Column) formula.Result {
	return c.TransformStrings("PCT-06", "Word percentage converted", func(s string) (interface{}, bool) {
		if !percentWordRe.MatchString(strings.TrimSpace(s)) {
			return s, false
		}
		return ParsePercent(s)
	})
}

// decimalPercentages rescales a column held entirely as fractions, such as
// 0.85, to whole percentages. A column of only 0 and 1 is left alone.
func decimalPercentages(c *formula.Column) formula.Result {
	_, xs := numbers(c.Values())
	if len(xs) == 0 {
		return c.Result("PCT-03", formula.Auto)
	}
	fractional := false
	for _, x := range xs {
		if x < 0 || x > 1 {
			return c.Result("PCT-03", formula.Auto)
		}
		if x != 0 && x != 1 {
			fractional = true
		}
	}
	if !fractional {
		return c.Result("PCT-03", formula.Auto)
	}
	return c.Transform("PCT-03", "Decimal converted to whole percentage", func(v interface{}) (interface{}, bool) {
		f, ok := cellNumber(v)
		if !ok {
			return v, false
		}
		return formula.Round(f*100, 6), true
	})
}

func percentRange(c *formula.Column) formula.Result {
	if formula.ContainsAny(strings.ToLower(c.Name), growthNameWords...) {
		return c.Result("PCT-02", formula.AskFirst)
	}
	return c.FlagWhere("PCT-02", "percentage_out_of_range", "Percentages outside 0-100",
		"Verify out-of-range percentages", func(v interface{}) bool {
			f, ok := cellNumber(v)
			return ok && (f < 0 || f > 100)
		})
}

func percentSpikes(c *formula.Column) formula.Result {
	rows := iqrOutliers(c.Values())
	return c.Flag("PCT-04", "percentage_spike", "Extreme percentage values",
		"Verify extreme percentages", rows, map[string]interface{}{"sample_values": c.Sample(rows, 5)})
}
