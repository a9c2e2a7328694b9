package datetime

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var rawClockRe = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?`)

func timezones(c *formula.Column) formula.Result {
	zones := make([]interface{}, c.Data.NumRows())
	res := c.TransformRows("TIME-04", "Timezone extraction", func(row int, v interface{}) (interface{}, bool) {
		s, ok := v.(string)
		if !ok {
			return v, false
		}
		clock, zone, ok := SplitTimezone(s)
		if ok {
			zones[row] = zone
		}
		return clock, ok
	})
	if res.Changes > 0 {
		c.SetDerived("TIME-04", c.Name+"_timezone", zones)
	}
	return res
}

// twentyFourHour rewrites values carrying an AM/PM marker
func twentyFourHour(c *formula.Column) formula.Result {
	return c.TransformStrings("TIME-01", "12h to 24h normalization", func(s string) (interface{}, bool) {
		if _, marker := Meridiem(s); marker == 0 {
			return s, false
		}
		clock, ok := ParseClock(s)
		if !ok {
			return s, false
		}
		formatted := clock.String()
		return formatted, formatted != s
	})
}

// clockFormat pads to HH:MM, keeping seconds when the input had them
func clockFormat(c *formula.Column) formula.Result {
	return c.Transform("TIME-02", "Time format standardization", func(v interface{}) (interface{}, bool) {
		clock, ok := ParseClock(v)
		if !ok {
			return v, false
		}
		raw := model.Stringify(v)
		formatted := clock.String()
		if strings.Count(strings.ReplaceAll(raw, " ", ""), ":") >= 2 {
			formatted = clock.Long()
		}
		return formatted, formatted != raw
	})
}

func timeBuckets(c *formula.Column) formula.Result {
	values := c.Values()
	buckets := make([]interface{}, len(values))
	for i, v := range values {
		if clock, ok := ParseClock(v); ok {
			buckets[i] = Bucket(clock)
		}
	}
	res := c.Result("TIME-05", formula.Auto)
	res.Changes = c.SetDerived("TIME-05", c.Name+"_bucket", buckets)
	return res
}

func invalidTimes(c *formula.Column) formula.Result {
	return c.FlagWhere("TIME-03", "invalid_time", "Invalid time values detected",
		"Correct invalid times", func(v interface{}) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			m := rawClockRe.FindStringSubmatch(strings.TrimSpace(s))
			if m == nil {
				return false
			}
			h, _ := strconv.Atoi(m[1])
			minute, _ := strconv.Atoi(m[2])
			sec := 0
			if m[3] != "" {
				sec, _ = strconv.Atoi(m[3])
			}
			return h > 23 || minute > 59 || sec > 59
		})
}
