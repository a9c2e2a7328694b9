package category

import (
	"fmt"
	"unicode/utf8"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

const (
	// typoDominance is how many times more frequent a label must be to
	// absorb a near spelling
	typoDominance   = 5
	maxTypoDistance = 2
	// rareShare is the share of rows below which a category is rare
	rareShare = 0.01
)

func labelWhitespace(c *formula.Column) formula.Result {
	return c.TransformStrings("CAT-07", "Whitespace normalized", func(s string) (interface{}, bool) {
		return formula.CollapseSpaces(s), true
	})
}

func encodingArtifacts(c *formula.Column) formula.Result {
	return c.TransformStrings("CAT-08", "Encoding artifact fixed", func(s string) (interface{}, bool) {
		return FixEncoding(s), true
	})
}

func labelCase(c *formula.Column) formula.Result {
	return c.TransformStrings("CAT-01", "Title case applied", func(s string) (interface{}, bool) {
		return LabelCase(s), true
	})
}

// consolidateVariants rewrites every spelling that differs only in case or
// punctuation to the group's most frequent spelling
func consolidateVariants(c *formula.Column) formula.Result {
	counts, order := stringCounts(c.Values())
	groups := make(map[string][]string)
	for _, s := range order {
		k := variantKey(s)
		groups[k] = append(groups[k], s)
	}
	canonical := make(map[string]string)
	for _, spellings := range groups {
		if len(spellings) < 2 {
			continue
		}
		best := spellings[0]
		for _, s := range spellings[1:] {
			if counts[s] > counts[best] {
				best = s
			}
		}
		for _, s := range spellings {
			canonical[s] = best
		}
	}
	if len(canonical) == 0 {
		return c.Result("CAT-02", formula.Auto)
	}
	return c.TransformStrings("CAT-02", "Variant consolidated", func(s string) (interface{}, bool) {
		to, ok := canonical[s]
		return to, ok
	})
}

// typoTarget returns the dominant label s is a misspelling of
func typoTarget(s string, counts map[string]int, ranked []string) (string, bool) {
	n := utf8.RuneCountInString(s)
	best, bestDist := "", maxTypoDistance+1
	for _, candidate := range ranked {
		if counts[candidate] < typoDominance*counts[s] {
			break
		}
		d := formula.Distance(variantKey(s), variantKey(candidate))
		if d == 0 || d >= bestDist || 2*d >= n {
			continue
		}
		best, bestDist = candidate, d
	}
	return best, best != ""
}

func mergeTypos(c *formula.Column) formula.Result {
	counts, _ := stringCounts(c.Values())
	ranked := byFrequency(counts)
	fixes := make(map[string]string)
	for _, s := range ranked {
		if to, ok := typoTarget(s, counts, ranked); ok {
			fixes[s] = to
		}
	}
	if len(fixes) == 0 {
		return c.Result("CAT-03", formula.Auto)
	}
	return c.TransformStrings("CAT-03", "Typo merged into frequent category", func(s string) (interface{}, bool) {
		to, ok := fixes[s]
		return to, ok
	})
}

func rareCategories(c *formula.Column) formula.Result {
	values := c.Values()
	counts := make(map[string]int)
	total := 0
	for _, v := range values {
		if !model.IsNull(v) {
			counts[model.Key(v)]++
			total++
		}
	}
	var rows []int
	var rare []string
	reported := make(map[string]struct{})
	for i, v := range values {
		if model.IsNull(v) {
			continue
		}
		k := model.Key(v)
		if float64(counts[k]) >= float64(total)*rareShare {
			continue
		}
		rows = append(rows, i)
		if _, ok := reported[k]; !ok {
			reported[k] = struct{}{}
			rare = append(rare, model.Stringify(v))
		}
	}
	return c.Flag("CAT-04", "rare_category",
		fmt.Sprintf("%d categories appear in less than 1%% of rows", len(rare)),
		"Merge rare categories into a related one or into Other", rows,
		map[string]interface{}{"rare_categories": rare})
}

func (r *run) categoryFrequencies(c *formula.Column) formula.Result {
	counts := make(map[string]int)
	for _, v := range model.NonNull(c.Values()) {
		counts[model.Stringify(v)]++
	}
	if len(counts) == 0 {
		return c.Result("CAT-05", formula.AskFirst)
	}
	r.frequencies[c.Name] = counts
	return report(c, "CAT-05", "frequency_report",
		fmt.Sprintf("CAT-05: %d distinct categories", len(counts)), frequencyText(counts))
}

func nullCategories(c *formula.Column) formula.Result {
	return nullFlag(c, "CAT-06", "null_category", "rows have no category",
		"Choose how missing categories should be filled",
		[]string{"Keep as null", "Mark as Uncategorized", "Mark as Unknown", "Impute the most frequent category"})
}
