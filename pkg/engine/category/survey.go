package category

import (
	"fmt"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// LikertScale is the response scale of a survey column. Labels is empty for
// numeric scales.
type LikertScale struct {
	Name   string           `json:"name"`
	Size   int              `json:"size"`
	Labels map[string]int64 `json:"labels,omitempty"`
}

var unknownScale = LikertScale{Name: "unknown"}

var agree5 = map[string]int64{
	"strongly disagree": 1, "disagree": 2, "neutral": 3,
	"neither agree nor disagree": 3, "agree": 4, "strongly agree": 5,
}

var agree7 = map[string]int64{
	"strongly disagree": 1, "disagree": 2, "somewhat disagree": 3,
	"neutral": 4, "neither agree nor disagree": 4,
	"somewhat agree": 5, "agree": 6, "strongly agree": 7,
}

var frequencyScale = map[string]int64{
	"never": 1, "rarely": 2, "seldom": 2, "sometimes": 3, "occasionally": 3,
	"often": 4, "frequently": 4, "always": 5, "constantly": 5,
}

var satisfactionScale = map[string]int64{
	"very dissatisfied": 1, "dissatisfied": 2, "neutral": 3,
	"satisfied": 4, "very satisfied": 5,
}

var likertTypoFixes = map[string]string{
	"stongly agree": "strongly agree", "stonrly agree": "strongly agree",
	"storngly agree": "strongly agree", "strongy agree": "strongly agree",
	"stronly agree": "strongly agree", "strongly agre": "strongly agree",
	"stongly disagree": "strongly disagree", "stonrly disagree": "strongly disagree",
	"disagre": "disagree", "agre": "agree",
	"nutral": "neutral", "netural": "neutral", "nuetral": "neutral",
	"neutra": "neutral", "nuetreal": "neutral", "neautral": "neutral",

	"soemtimes": "sometimes", "somtimes": "sometimes", "sometmes": "sometimes",
	"allways": "always", "alwyas": "always", "nevr": "never",
	"raerly": "rarely", "rarley": "rarely", "oftem": "often",
	"freqeuntly": "frequently", "frequenly": "frequently",

	"satisified": "satisfied", "satisfed": "satisfied", "satified": "satisfied",
	"dissatisified": "dissatisfied", "disatisfied": "dissatisfied",
}

// responseKey lower-cases a response and fixes known misspellings
func responseKey(s string) string {
	key := strings.ToLower(formula.CollapseSpaces(s))
	if fixed, ok := likertTypoFixes[key]; ok {
		return fixed
	}
	return key
}

// DetectLikertScale recognizes verbal agreement, frequency and satisfaction
// scales by the labels they share with the column, falling back to numeric
// 5, 7 and 10 point scales sized from the 90th percentile of the numbers
func DetectLikertScale(values []interface{}) LikertScale {
	verbal := make(map[string]struct{})
	for _, v := range values {
		if s, ok := v.(string); ok && !formula.IsNumeric(s) {
			verbal[responseKey(s)] = struct{}{}
		}
	}
	if len(verbal) > 0 {
		_, seven := verbal["somewhat agree"]
		if _, ok := verbal["somewhat disagree"]; ok {
			seven = true
		}
		agree := LikertScale{Name: "agree_5", Size: 5, Labels: agree5}
		if seven {
			agree = LikertScale{Name: "agree_7", Size: 7, Labels: agree7}
		}
		candidates := []LikertScale{
			agree,
			{Name: "frequency", Size: 5, Labels: frequencyScale},
			{Name: "satisfaction", Size: 5, Labels: satisfactionScale},
		}
		best, bestHits := unknownScale, 0
		for _, scale := range candidates {
			hits := 0
			for label := range verbal {
				if _, ok := scale.Labels[label]; ok {
					hits++
				}
			}
			if hits > bestHits {
				best, bestHits = scale, hits
			}
		}
		if bestHits > 0 {
			return best
		}
	}
	xs := formula.Numbers(values)
	if len(xs) == 0 {
		return unknownScale
	}
	top := formula.Quantile(xs, 0.9)
	for _, size := range []int{5, 7, 10} {
		if top <= float64(size) {
			return LikertScale{Name: fmt.Sprintf("numeric_%d", size), Size: size}
		}
	}
	return unknownScale
}

func (r *run) detectScale(c *formula.Column) formula.Result {
	scale := DetectLikertScale(c.Values())
	r.scales[c.Name] = scale
	if scale.Size == 0 {
		return c.Result("SURV-01", formula.Auto)
	}
	return c.Note("SURV-01", "scale_detected",
		fmt.Sprintf("SURV-01: detected %s scale (1-%d)", scale.Name, scale.Size), scale.Name)
}

func likertTypos(c *formula.Column) formula.Result {
	return c.TransformStrings("SURV-03", "Likert typo corrected", func(s string) (interface{}, bool) {
		fixed, ok := likertTypoFixes[strings.ToLower(formula.CollapseSpaces(s))]
		return formula.TitleCase(fixed), ok
	})
}

func (r *run) verbalToNumeric(c *formula.Column) formula.Result {
	scale := r.scales[c.Name]
	if len(scale.Labels) == 0 {
		return c.Result("SURV-02", formula.Auto)
	}
	return c.TransformStrings("SURV-02", "Verbal response converted to "+scale.Name+" score", func(s string) (interface{}, bool) {
		n, ok := scale.Labels[responseKey(s)]
		return n, ok
	})
}

func frequencyResponses(c *formula.Column) formula.Result {
	return c.TransformStrings("SURV-04", "Frequency response converted to score", func(s string) (interface{}, bool) {
		n, ok := frequencyScale[responseKey(s)]
		return n, ok
	})
}

// outOfScale flags numbers outside 1..size and text the scale cannot read
func (r *run) outOfScale(c *formula.Column) formula.Result {
	scale := r.scales[c.Name]
	if scale.Size == 0 {
		return c.Result("SURV-05", formula.AskFirst)
	}
	rows := c.Rows(func(v interface{}) bool {
		if f, ok := formula.ToFloat(v); ok {
			return f < 1 || f > float64(scale.Size)
		}
		return true
	})
	return c.Flag("SURV-05", "out_of_scale_response",
		fmt.Sprintf("Responses outside the %s scale (1-%d)", scale.Name, scale.Size),
		"Verify or clear responses the scale cannot hold", rows,
		map[string]interface{}{"scale": scale.Name, "scale_size": scale.Size, "sample_values": c.Sample(rows, 5)})
}

// answerKey compares responses across columns regardless of cell type
func answerKey(v interface{}) string {
	if f, ok := formula.ToFloat(v); ok {
		return model.Key(f)
	}
	return strings.ToLower(strings.TrimSpace(model.Stringify(v)))
}

// straightLining runs once, on the last survey column, after every survey
// column has been cleaned. It flags respondents who gave the same answer
// to at least three questions and nothing else.
func straightLining(c *formula.Column) formula.Result {
	cols := c.Htypes.ColumnsWithSet(c.Data.Columns(), "SURV")
	if len(cols) < 3 || cols[len(cols)-1] != c.Name {
		return c.Result("SURV-06", formula.AskFirst)
	}
	idx := make([]int, len(cols))
	for i, name := range cols {
		idx[i] = c.Data.ColumnIndex(name)
	}
	var rows []int
	for row := 0; row < c.Data.NumRows(); row++ {
		answers := 0
		first, same := "", true
		for _, col := range idx {
			v := c.Data.Cell(row, col)
			if model.IsNull(v) {
				continue
			}
			k := answerKey(v)
			if answers == 0 {
				first = k
			} else if k != first {
				same = false
			}
			answers++
		}
		if answers >= 3 && same {
			rows = append(rows, row)
		}
	}
	res := c.Result("SURV-06", formula.AskFirst)
	if len(rows) == 0 {
		return res
	}
	c.Rec.Flag(model.PendingFlag{
		FormulaID:       "SURV-06",
		FlagType:        "straight_lining",
		Description:     fmt.Sprintf("%d respondents gave the same answer to every survey question", len(rows)),
		AffectedColumns: cols,
		AffectedRows:    rows,
		AffectedCount:   len(rows),
		SuggestedAction: "Review these responses for low engagement",
		Details:         map[string]interface{}{"survey_columns": cols},
	})
	c.Rec.MarkApplied("SURV-06")
	res.Flagged = len(rows)
	return res
}

func missingResponses(c *formula.Column) formula.Result {
	rows := c.NullRows()
	return c.Flag("SURV-07", "missing_response",
		fmt.Sprintf("%d survey responses are missing", len(rows)),
		"Mark as No Response or exclude from analysis", rows,
		map[string]interface{}{
			"missing_count":  len(rows),
			"recommendation": "Survey opinions cannot be predicted",
		})
}
