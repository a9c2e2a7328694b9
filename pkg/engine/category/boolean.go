package category

import (
	"fmt"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var trueValues = formula.NewSet(
	"yes", "y", "1", "true", "t", "on", "active", "enabled",
	"checked", "positive", "affirmative", "yep", "yeah",
	"si", "oui", "ja", "da", "sim", "tak",
)

var falseValues = formula.NewSet(
	"no", "n", "0", "false", "f", "off", "inactive", "disabled",
	"unchecked", "negative", "nope", "nah",
	"non", "nein", "nie", "nao",
)

// nonBinaryWords suggest the column holds a status rather than a flag
var nonBinaryWords = formula.NewSet(
	"maybe", "perhaps", "pending", "unknown", "partial", "n/a",
	"not applicable", "tbd", "to be determined", "in progress",
)

// ParseBool reads the common spellings of a yes/no answer, including 1/0
// and a few non-English forms
func ParseBool(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case int64, float64:
		f, _ := formula.ToFloat(x)
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if trueValues.Has(s) {
			return true, true
		}
		if falseValues.Has(s) {
			return false, true
		}
	}
	return false, false
}

func isNonBinary(v interface{}) bool {
	s, ok := v.(string)
	return ok && nonBinaryWords.Has(strings.ToLower(strings.TrimSpace(s)))
}

func standardizeBooleans(c *formula.Column) formula.Result {
	return c.Transform("BOOL-01", "Boolean standardized", func(v interface{}) (interface{}, bool) {
		if _, ok := v.(bool); ok {
			return v, false
		}
		return ParseBool(v)
	})
}

// nonBinaryValues flags whatever BOOL-01 could not read as true or false
func nonBinaryValues(c *formula.Column) formula.Result {
	var rows []int
	var found []string
	seen := make(map[string]struct{})
	status := false
	for i, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		if _, ok := v.(bool); ok {
			continue
		}
		rows = append(rows, i)
		status = status || isNonBinary(v)
		s := model.Stringify(v)
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			found = append(found, s)
		}
	}
	suggested := "Map the remaining values to true or false"
	if status {
		suggested = "Consider reclassifying the column as a Status field"
	}
	return c.Flag("BOOL-02", "non_binary_value",
		fmt.Sprintf("Values that are neither true nor false: %s", formula.Describe(found, 5)),
		suggested, rows, map[string]interface{}{"non_binary_values": found})
}

func nullBooleans(c *formula.Column) formula.Result {
	rows := c.NullRows()
	falses := len(c.Rows(func(v interface{}) bool { return v == false }))
	return c.Flag("BOOL-03", "null_boolean",
		fmt.Sprintf("%d null values in a yes/no column", len(rows)),
		"Keep as null, mark as Unknown, or impute from context", rows,
		map[string]interface{}{
			"null_count":     len(rows),
			"false_count":    falses,
			"recommendation": "Null means unknown, not false",
		})
}

func integerBooleans(c *formula.Column) formula.Result {
	return c.Transform("BOOL-04", "Boolean encoded as integer", func(v interface{}) (interface{}, bool) {
		b, ok := v.(bool)
		if !ok {
			return v, false
		}
		if b {
			return int64(1), true
		}
		return int64(0), true
	})
}
