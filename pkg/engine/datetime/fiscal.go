package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var fiscalYearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^FY\s*(\d{4})$`),
	regexp.MustCompile(`(?i)^FY\s*(\d{2})$`),
	regexp.MustCompile(`(?i)^(\d{4})\s*FY$`),
	regexp.MustCompile(`(?i)^Financial\s+Year\s+(\d{4})$`),
	regexp.MustCompile(`(?i)^Fiscal\s+Year\s+(\d{4})$`),
}

var fiscalQuarterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Q([1-4])\s*(?:FY)?\s*(\d{4})?$`),
	regexp.MustCompile(`(?i)^Q([1-4])\s*[-/]?\s*FY\s*(\d{2,4})$`),
	regexp.MustCompile(`(?i)^([1-4])(?:st|nd|rd|th)?\s+Quarter\s+(\d{4})?$`),
}

var academicYearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{4})\s*[/-]\s*(\d{2,4})$`),
	regexp.MustCompile(`(?i)^AY\s*(\d{4})\s*[-/]?\s*(\d{2,4})$`),
	regexp.MustCompile(`(?i)^Academic\s+Year\s+(\d{4})\s*[/-]?\s*(\d{2,4})$`),
}

// termPatterns are tried in order; %s in the label takes the first group
var termPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)^Sem(?:ester)?\s*1$`), "Semester 1"},
	{regexp.MustCompile(`(?i)^Sem(?:ester)?\s*2$`), "Semester 2"},
	{regexp.MustCompile(`(?i)^First\s+Semester$`), "Semester 1"},
	{regexp.MustCompile(`(?i)^Second\s+Semester$`), "Semester 2"},
	{regexp.MustCompile(`(?i)^Term\s*([1-4])$`), "Term %s"},
	{regexp.MustCompile(`(?i)^Spring\s+(\d{4})$`), "Spring %s"},
	{regexp.MustCompile(`(?i)^Fall\s+(\d{4})$`), "Fall %s"},
	{regexp.MustCompile(`(?i)^Summer\s+(\d{4})$`), "Summer %s"},
	{regexp.MustCompile(`(?i)^Winter\s+(\d{4})$`), "Winter %s"},
	{regexp.MustCompile(`(?i)^Autumn\s+(\d{4})$`), "Fall %s"},
}

var (
	fySortRe  = regexp.MustCompile(`(?i)^FY\s*(\d{4})$`)
	qfySortRe = regexp.MustCompile(`(?i)^Q([1-4])\s*FY\s*(\d{4})$`)
	aySortRe  = regexp.MustCompile(`(?i)^AY\s*(\d{4})-(\d{2})$`)
)

// expandYear widens two-digit years: 00-49 are 2000s, 50-99 are 1900s
func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

// FiscalYear parses "FY24", "2024 FY" or "Fiscal Year 2024"
func FiscalYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	for _, re := range fiscalYearPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			y, _ := strconv.Atoi(m[1])
			return expandYear(y), true
		}
	}
	return 0, false
}

// AcademicYear parses "2023/24", "AY 2023-2024" and similar spans
func AcademicYear(s string) (start, end int, ok bool) {
	s = strings.TrimSpace(s)
	for _, re := range academicYearPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		start, _ = strconv.Atoi(m[1])
		end, _ = strconv.Atoi(m[2])
		if end < 100 {
			end += start / 100 * 100
			if end < start {
				end += 100
			}
		}
		return start, end, true
	}
	return 0, 0, false
}

// standardize rewrites every non-null cell fn recognizes
func standardize(c *formula.Column, id, action string, fn func(s string) (string, bool)) formula.Result {
	return c.Transform(id, action, func(v interface{}) (interface{}, bool) {
		s := strings.TrimSpace(model.Stringify(v))
		standard, ok := fn(s)
		if !ok {
			return v, false
		}
		return standard, standard != model.Stringify(v)
	})
}

func fiscalYears(c *formula.Column) formula.Result {
	return standardize(c, "FISC-01", "Fiscal year standardization", func(s string) (string, bool) {
		y, ok := FiscalYear(s)
		return "FY" + strconv.Itoa(y), ok
	})
}

func fiscalQuarters(c *formula.Column) formula.Result {
	return standardize(c, "FISC-02", "Fiscal quarter standardization", func(s string) (string, bool) {
		for _, re := range fiscalQuarterPatterns {
			m := re.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			if m[2] == "" {
				return "Q" + m[1], true
			}
			y, _ := strconv.Atoi(m[2])
			return fmt.Sprintf("Q%s FY%d", m[1], expandYear(y)), true
		}
		return s, false
	})
}

func academicYears(c *formula.Column) formula.Result {
	return standardize(c, "FISC-03", "Academic year standardization", func(s string) (string, bool) {
		start, end, ok := AcademicYear(s)
		return fmt.Sprintf("AY %d-%02d", start, end%100), ok
	})
}

func terms(c *formula.Column) formula.Result {
	return standardize(c, "FISC-04", "Semester/term standardization", func(s string) (string, bool) {
		for _, p := range termPatterns {
			m := p.re.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			if strings.Contains(p.label, "%s") {
				return fmt.Sprintf(p.label, m[1]), true
			}
			return p.label, true
		}
		return s, false
	})
}

// SortKey orders standardized periods: FY2024 is 20240, Q3 FY2024 is 20243
// and AY 2023-24 is 20230
func SortKey(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if m := fySortRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.ParseInt(m[1], 10, 64)
		return y * 10, true
	}
	if m := qfySortRe.FindStringSubmatch(s); m != nil {
		q, _ := strconv.ParseInt(m[1], 10, 64)
		y, _ := strconv.ParseInt(m[2], 10, 64)
		return y*10 + q, true
	}
	if m := aySortRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.ParseInt(m[1], 10, 64)
		return y * 10, true
	}
	return 0, false
}

func fiscalSortKeys(c *formula.Column) formula.Result {
	values := c.Values()
	keys := make([]interface{}, len(values))
	for i, v := range values {
		if model.IsNull(v) {
			continue
		}
		if k, ok := SortKey(model.Stringify(v)); ok {
			keys[i] = k
		}
	}
	res := c.Result("FISC-05", formula.Auto)
	res.Changes = c.SetDerived("FISC-05", c.Name+"_sort_key", keys)
	return res
}

func missingPeriods(c *formula.Column) formula.Result {
	return c.Flag("FISC-07", "missing_fiscal_period", "Missing fiscal period values",
		"Provide fiscal period values or derive from dates", c.NullRows(), nil)
}
