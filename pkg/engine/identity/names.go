package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var salutationWords = map[string]struct{}{
	"mr": {}, "mister": {}, "mrs": {}, "missus": {}, "ms": {}, "miss": {},
	"dr": {}, "doctor": {}, "prof": {}, "professor": {}, "eng": {}, "engineer": {},
	"rev": {}, "reverend": {}, "sir": {}, "col": {}, "colonel": {},
	"capt": {}, "captain": {}, "mx": {},
}

var suffixWords = map[string]struct{}{
	"jr": {}, "junior": {}, "sr": {}, "senior": {},
	"ii": {}, "iii": {}, "iv": {}, "v": {},
	"esq": {}, "esquire": {}, "phd": {}, "ph.d": {}, "md": {}, "m.d": {},
}

var (
	invalidNameChars = regexp.MustCompile(`[^A-Za-z '\-]`)
	initialsRe       = regexp.MustCompile(`^([A-Z]\.)+$`)
)

// StripSalutation removes a leading title such as "Dr." from a name
func StripSalutation(name string) (string, string, bool) {
	words := strings.Fields(name)
	if len(words) < 2 {
		return name, "", false
	}
	if _, ok := salutationWords[strings.TrimRight(strings.ToLower(words[0]), ".")]; !ok {
		return name, "", false
	}
	return strings.Join(words[1:], " "), words[0], true
}

// SplitSuffix separates a trailing generational or professional suffix
func SplitSuffix(name string) (string, string, bool) {
	words := strings.Fields(name)
	if len(words) < 2 {
		return name, "", false
	}
	last := words[len(words)-1]
	if _, ok := suffixWords[strings.TrimRight(strings.ToLower(last), ".,")]; !ok {
		return name, "", false
	}
	return strings.Join(words[:len(words)-1], " "), last, true
}

// SwapLastFirst turns "Last, First" into "First Last"
func SwapLastFirst(name string) (string, bool) {
	last, first, ok := strings.Cut(name, ",")
	if !ok {
		return name, false
	}
	last, first = strings.TrimSpace(last), strings.TrimSpace(first)
	if last == "" || first == "" {
		return name, false
	}
	return first + " " + last, true
}

// IsInitialsOnly reports names made only of initials, like "J.D." or "A. B."
func IsInitialsOnly(name string) bool {
	return initialsRe.MatchString(strings.ReplaceAll(name, " ", ""))
}

func whitespace(id string) func(*formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		return c.TransformStrings(id, "Extra whitespace removal", func(s string) (interface{}, bool) {
			return formula.CollapseSpaces(s), true
		})
	}
}

func placeholders(id string) func(*formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		return c.TransformStrings(id, "Placeholder to null conversion", func(s string) (interface{}, bool) {
			return nil, formula.IsPlaceholder(s)
		})
	}
}

func salutations(id string) func(*formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		return c.TransformStrings(id, "Salutation stripping", func(s string) (interface{}, bool) {
			cleaned, _, ok := StripSalutation(s)
			return cleaned, ok && cleaned != ""
		})
	}
}

func nameSwap(c *formula.Column) formula.Result {
	return c.TransformStrings("FNAME-10", "Name swap correction (Last, First -> First Last)", func(s string) (interface{}, bool) {
		return SwapLastFirst(s)
	})
}

func specialChars(c *formula.Column) formula.Result {
	return c.TransformStrings("FNAME-04", "Special character removal", func(s string) (interface{}, bool) {
		cleaned := formula.CollapseSpaces(invalidNameChars.ReplaceAllString(s, ""))
		return cleaned, cleaned != s
	})
}

func titleCase(id string) func(*formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		return c.TransformStrings(id, "Title case normalization", func(s string) (interface{}, bool) {
			return formula.NameCase(s), true
		})
	}
}

// suffixes moves trailing suffixes into a <col>_suffix column
func suffixes(id string) func(*formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		extracted := make([]interface{}, c.Data.NumRows())
		suffixCol := c.Name + "_suffix"
		res := c.TransformRows(id, "Suffix extraction to "+suffixCol, func(row int, v interface{}) (interface{}, bool) {
			s, ok := v.(string)
			if !ok {
				return v, false
			}
			cleaned, suffix, ok := SplitSuffix(s)
			if ok {
				extracted[row] = suffix
			}
			return cleaned, ok
		})
		if res.Changes > 0 {
			c.SetDerived(id, suffixCol, extracted)
		}
		return res
	}
}

func numericNames(c *formula.Column) formula.Result {
	return c.FlagWhere("FNAME-05", "numeric_name", "Names contain >30% numeric characters",
		"Review and correct or mark as invalid", func(v interface{}) bool {
			s, ok := v.(string)
			return ok && formula.DigitRatio(s) > 0.3
		})
}

func singleWord(c *formula.Column) formula.Result {
	return c.FlagWhere("FNAME-08", "single_word_name", "Single-word names detected (may be valid for some cultures)",
		"Confirm if these are complete names or missing surname", func(v interface{}) bool {
			s, ok := v.(string)
			return ok && !strings.Contains(strings.TrimSpace(s), " ")
		})
}

func initialsOnly(c *formula.Column) formula.Result {
	return c.FlagWhere("FNAME-09", "initials_only", "Names contain only initials",
		"Provide full names if available", func(v interface{}) bool {
			s, ok := v.(string)
			return ok && IsInitialsOnly(s)
		})
}

func duplicateNames(c *formula.Column) formula.Result {
	rows, repeated := c.Duplicates(nil)
	desc := fmt.Sprintf("Found %d duplicate name values", len(repeated))
	if len(repeated) > 10 {
		repeated = repeated[:10]
	}
	return c.Flag("FNAME-07", "duplicate_names", desc,
		"Review duplicates - may be valid (same person multiple records) or data issue",
		rows, map[string]interface{}{"duplicate_names": repeated})
}

// maxFuzzyUniques bounds the pairwise comparison in fuzzyDuplicates
const maxFuzzyUniques = 500

func fuzzyDuplicates(c *formula.Column) formula.Result {
	var uniques []string
	seen := make(map[string]struct{})
	for _, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		s := model.Stringify(v)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		uniques = append(uniques, s)
	}
	if len(uniques) > maxFuzzyUniques {
		return c.Result("FNAME-11", formula.AskFirst)
	}

	var pairs [][2]string
	affected := make(map[string]struct{})
	for i, a := range uniques {
		na := strings.ToLower(strings.TrimSpace(a))
		for _, b := range uniques[i+1:] {
			nb := strings.ToLower(strings.TrimSpace(b))
			if na != nb && formula.Distance(na, nb) <= 2 {
				pairs = append(pairs, [2]string{a, b})
				affected[a] = struct{}{}
				affected[b] = struct{}{}
			}
		}
	}
	if len(pairs) == 0 {
		return c.Result("FNAME-11", formula.AskFirst)
	}
	rows := c.Rows(func(v interface{}) bool {
		_, ok := affected[model.Stringify(v)]
		return ok
	})
	desc := fmt.Sprintf("Found %d potential duplicate name pairs (similar spelling)", len(pairs))
	if len(pairs) > 10 {
		pairs = pairs[:10]
	}
	return c.Flag("FNAME-11", "fuzzy_duplicate_names", desc,
		"Review if these are the same person with spelling variations",
		rows, map[string]interface{}{"similar_pairs": pairs})
}
