package identity

import (
	"math"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func ageWords(c *formula.Column) formula.Result {
	return c.Transform("AGE-01", "Word-to-number conversion", func(v interface{}) (interface{}, bool) {
		s := strings.TrimSpace(model.Stringify(v))
		if formula.IsNumeric(s) {
			return v, false
		}
		n, ok := formula.WordsToNumber(s)
		return n, ok
	})
}

func ageStrings(c *formula.Column) formula.Result {
	return c.TransformStrings("AGE-10", "String to integer conversion", func(s string) (interface{}, bool) {
		f, ok := formula.ToFloat(s)
		if !ok {
			return s, false
		}
		return int64(math.RoundToEven(f)), true
	})
}

func ageRounding(c *formula.Column) formula.Result {
	return c.Transform("AGE-05", "Decimal age rounding", func(v interface{}) (interface{}, bool) {
		age, ok := v.(float64)
		if !ok || age == math.Trunc(age) {
			return v, false
		}
		// Infant ages keep one decimal
		if age <= 2 {
			return formula.Round(age, 1), true
		}
		return int64(math.RoundToEven(age)), true
	})
}

func negativeAges(c *formula.Column) formula.Result {
	rows := c.Rows(func(v interface{}) bool {
		f, ok := formula.ToFloat(v)
		return ok && f < 0
	})
	return c.Flag("AGE-09", "negative_age", "CRITICAL: Negative age values detected",
		"Correct negative ages - these are invalid", rows,
		map[string]interface{}{"values": c.Sample(rows, len(rows))})
}

func ageRange(c *formula.Column) formula.Result {
	return c.FlagWhere("AGE-04", "age_out_of_range", "Ages outside valid range (0-120)",
		"Review and correct invalid ages", func(v interface{}) bool {
			f, ok := formula.ToFloat(v)
			return ok && (f < 0 || f > 120)
		})
}

func nonNumericAges(c *formula.Column) formula.Result {
	return c.FlagWhere("AGE-03", "non_numeric_age", "Non-numeric values remain in age column",
		"Correct or remove invalid age values", func(v interface{}) bool {
			return !formula.IsNumeric(v)
		})
}

var (
	genderMale      = formula.NewSet("male", "m", "man", "boy", "gents", "gentleman", "mr")
	genderFemale    = formula.NewSet("female", "f", "woman", "girl", "ladies", "lady", "mrs", "ms", "miss")
	genderNonBinary = formula.NewSet("non-binary", "nonbinary", "nb", "genderqueer", "genderfluid", "enby")
	genderTrans     = formula.NewSet("transgender", "trans")
	genderOther     = formula.NewSet("other", "others")
	genderRefusal   = formula.NewSet("prefer not to say", "prefer not to disclose", "do not want to tell",
		"not willing to share", "decline to state", "rather not say",
		"private", "confidential", "no comment", "undisclosed", "withheld")

	genderCodeLabels = map[int64]string{
		1: "Male", 2: "Female", 3: "Non-Binary", 4: "Prefer Not to Say", 0: "Other", 9: "Other",
	}

	validGenders = formula.NewSet("Male", "Female", "Non-Binary", "Transgender", "Other", "Prefer Not to Say")
)

const preferNotToSay = "Prefer Not to Say"

func genderCodes(c *formula.Column) formula.Result {
	return c.Transform("GEN-04", "Numeric gender code mapping", func(v interface{}) (interface{}, bool) {
		f, ok := formula.ToFloat(v)
		if !ok {
			return v, false
		}
		label, ok := genderCodeLabels[int64(f)]
		return label, ok
	})
}

// mapGender rewrites values found in a vocabulary to a canonical label
func mapGender(id, action string, vocab map[string]string) func(*formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		return c.Transform(id, action, func(v interface{}) (interface{}, bool) {
			key := strings.ToLower(strings.TrimSpace(model.Stringify(v)))
			label, ok := vocab[key]
			return label, ok && label != model.Stringify(v)
		})
	}
}

func vocabulary(groups map[string]formula.Set) map[string]string {
	out := make(map[string]string)
	for label, set := range groups {
		for k := range set {
			out[k] = label
		}
	}
	return out
}

var (
	binaryGender = mapGender("GEN-01", "Binary gender standardization",
		vocabulary(map[string]formula.Set{"Male": genderMale, "Female": genderFemale}))
	nonBinaryGender = mapGender("GEN-02", "Non-binary/other gender standardization",
		vocabulary(map[string]formula.Set{"Non-Binary": genderNonBinary, "Transgender": genderTrans, "Other": genderOther}))
	genderRefusals = mapGender("GEN-03", "Refusal phrase standardization (valid data)",
		vocabulary(map[string]formula.Set{preferNotToSay: genderRefusal}))
)

func unknownGender(c *formula.Column) formula.Result {
	rows := c.Rows(func(v interface{}) bool { return !validGenders.Has(model.Stringify(v)) })
	if len(rows) == 0 {
		return c.Result("GEN-05", formula.AskFirst)
	}
	var invalid []string
	seen := make(map[string]struct{})
	for _, s := range c.Sample(rows, len(rows)) {
		if _, ok := seen[s]; ok || len(invalid) == 10 {
			continue
		}
		seen[s] = struct{}{}
		invalid = append(invalid, s)
	}
	return c.Flag("GEN-05", "unrecognized_gender", "Unrecognized gender values",
		"Review and standardize or confirm custom categories", rows,
		map[string]interface{}{"invalid_values": invalid})
}
