package numeric

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
)

// Scale is the range a score column is measured on
type Scale struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// IsGPA reports whether the scale is a grade point average
func (s Scale) IsGPA() bool { return s.Name == "gpa_4" || s.Name == "gpa_5" }

var unknownScale = Scale{Name: "unknown", Min: 0, Max: 100}

// DetectScale picks the smallest standard scale covering every
// non-negative value. Negative values never widen the scale.
func DetectScale(xs []float64) Scale {
	top, seen := 0.0, false
	for _, x := range xs {
		if x < 0 {
			continue
		}
		if !seen || x > top {
			top, seen = x, true
		}
	}
	switch {
	case !seen:
		return unknownScale
	case top <= 4:
		return Scale{Name: "gpa_4", Max: 4}
	case top <= 5:
		return Scale{Name: "gpa_5", Max: 5}
	case top <= 10:
		return Scale{Name: "scale_10", Max: 10}
	case top <= 100:
		return Scale{Name: "scale_100", Max: 100}
	}
	return Scale{Name: "custom", Max: top}
}

var gpa4 = map[string]float64{
	"A+": 4.0, "A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D+": 1.3, "D": 1.0, "D-": 0.7,
	"F": 0.0, "E": 0.0,
}

// gpa5 is the weighted scale used by honors courses
var gpa5 = map[string]float64{
	"A+": 5.0, "A": 5.0, "A-": 4.7,
	"B+": 4.3, "B": 4.0, "B-": 3.7,
	"C+": 3.3, "C": 3.0, "C-": 2.7,
	"D+": 2.3, "D": 2.0, "D-": 1.7,
	"F": 0.0, "E": 0.0,
}

var letterPercentRanges = map[string][2]float64{
	"A+": {97, 100}, "A": {93, 96}, "A-": {90, 92},
	"B+": {87, 89}, "B": {83, 86}, "B-": {80, 82},
	"C+": {77, 79}, "C": {73, 76}, "C-": {70, 72},
	"D+": {67, 69}, "D": {63, 66}, "D-": {60, 62},
	"F": {0, 59},
}

var gradeDescriptorTypos = map[string]string{
	"excelent": "Excellent", "excellant": "Excellent",
	"satisfacory": "Satisfactory", "satifactory": "Satisfactory",
	"distintion": "Distinction", "distiction": "Distinction",
	"outstandng": "Outstanding", "oustanding": "Outstanding",
	"unsatisfacory": "Unsatisfactory", "unsatifactory": "Unsatisfactory",
	"avrage": "Average", "averge": "Average",
	"passs": "Pass", "faill": "Fail",
}

var ratioRe = regexp.MustCompile(`(?i)^([\d.]+)\s*(?:/|out of|of)\s*([\d.]+)$`)

// RatingPercent converts "4/5" or "8 out of 10" to a percentage
func RatingPercent(s string) (float64, bool) {
	m := ratioRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	num, err1 := strconv.ParseFloat(m[1], 64)
	den, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || den <= 0 {
		return 0, false
	}
	return formula.Round(num/den*100, 2), true
}

// LetterPercent returns the midpoint of a letter grade's percentage band
func LetterPercent(letter string) (float64, bool) {
	band, ok := letterPercentRanges[strings.ToUpper(strings.TrimSpace(letter))]
	if !ok {
		return 0, false
	}
	return (band[0] + band[1]) / 2, true
}

// scale returns the scale recorded for the column, detecting it from the
// current values when the column held no numbers at detection time
func (r *run) scale(c *formula.Column) Scale {
	s, ok := r.scales[c.Name]
	if !ok || s == unknownScale {
		_, xs := numbers(c.Values())
		s = DetectScale(xs)
	}
	return s
}

// gpaMode reports whether letter grades in the column map to grade points
// rather than percentages
func (r *run) gpaMode(c *formula.Column) bool {
	return r.scales[c.Name].IsGPA() || strings.Contains(strings.ToLower(c.Name), "gpa")
}

func (r *run) detectScale(c *formula.Column) formula.Result {
	_, xs := numbers(c.Values())
	s := DetectScale(xs)
	r.scales[c.Name] = s
	return c.Note("SCORE-01", "scale_detected",
		fmt.Sprintf("SCORE-01: detected %s scale [%g, %g]", s.Name, s.Min, s.Max), s.Name)
}

func gradeDescriptors(c *formula.Column) formula.Result {
	return c.TransformStrings("SCORE-13", "Grade descriptor typo corrected", func(s string) (interface{}, bool) {
		fixed, ok := gradeDescriptorTypos[strings.ToLower(strings.TrimSpace(s))]
		return fixed, ok
	})
}

func ratings(c *formula.Column) formula.Result {
	return c.TransformStrings("SCORE-12", "Rating normalized to percentage", func(s string) (interface{}, bool) {
		return RatingPercent(s)
	})
}

func (r *run) letterGPA(c *formula.Column) formula.Result {
	if !r.gpaMode(c) {
		return c.Result("SCORE-03", formula.Auto)
	}
	table := gpa4
	if r.scales[c.Name].Name == "gpa_5" {
		table = gpa5
	}
	return c.TransformStrings("SCORE-03", "Letter grade mapped to GPA", func(s string) (interface{}, bool) {
		gpa, ok := table[strings.ToUpper(strings.TrimSpace(s))]
		return gpa, ok
	})
}

func (r *run) letterPercent(c *formula.Column) formula.Result {
	if r.gpaMode(c) {
		return c.Result("SCORE-05", formula.Auto)
	}
	return c.TransformStrings("SCORE-05", "Letter grade mapped to percentage", func(s string) (interface{}, bool) {
		return LetterPercent(s)
	})
}

func scoreDecimals(c *formula.Column) formula.Result {
	return c.Transform("SCORE-10", "Rounded to 2 decimals", func(v interface{}) (interface{}, bool) {
		switch x := v.(type) {
		case float64:
			rounded := formula.Round(x, 2)
			return rounded, rounded != x
		case string:
			f, ok := ParseNumber(x)
			if !ok {
				return v, false
			}
			return formula.Round(f, 2), true
		}
		return v, false
	})
}

func (r *run) scoreRange(c *formula.Column) formula.Result {
	s := r.scale(c)
	rows := c.Rows(func(v interface{}) bool {
		f, ok := cellNumber(v)
		return ok && (f < s.Min || f > s.Max)
	})
	return c.Flag("SCORE-02", "score_out_of_range",
		fmt.Sprintf("Scores outside the detected %s scale [%g, %g]", s.Name, s.Min, s.Max),
		"Verify scores against the grading scale", rows,
		map[string]interface{}{"scale": s.Name, "min": s.Min, "max": s.Max, "sample_values": c.Sample(rows, 5)})
}
