package identity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var (
	idSymbolsRe = regexp.MustCompile(`[\s\-_]+`)
	idPartsRe   = regexp.MustCompile(`^([A-Za-z]*)(\d+)$`)
	idPrefixRe  = regexp.MustCompile(`^([A-Za-z]+)`)
)

// idText renders an identifier cell as text without a float suffix
func idText(v interface{}) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10)
		}
	}
	return model.Stringify(v)
}

func lockIDType(c *formula.Column) formula.Result {
	idx := c.Index()
	original := model.InferDtype(c.Values())
	converted := 0
	for row := 0; row < c.Data.NumRows(); row++ {
		v := c.Data.Cell(row, idx)
		if model.IsNull(v) {
			continue
		}
		if _, ok := v.(string); ok {
			continue
		}
		c.Data.SetCell(row, idx, idText(v))
		converted++
	}
	if converted == 0 {
		return c.Result("UID-04", formula.Auto)
	}
	res := c.Note("UID-04", "Leading zero preservation",
		fmt.Sprintf("UID-04: identifier column converted from %s to text", original), original)
	res.Changes = converted
	return res
}

func stripIDSymbols(c *formula.Column) formula.Result {
	return c.Transform("UID-08", "Special character removal from IDs", func(v interface{}) (interface{}, bool) {
		s := idText(v)
		cleaned := idSymbolsRe.ReplaceAllString(s, "")
		return cleaned, cleaned != s
	})
}

func splitID(s string) (prefix, number string) {
	if m := idPartsRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2]
	}
	return "", s
}

func zeroPadIDs(c *formula.Column) formula.Result {
	var prefix string
	prefixes := make(map[string]struct{})
	maxLen := 0
	for _, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		p, n := splitID(idText(v))
		prefixes[p] = struct{}{}
		prefix = p
		if len(n) > maxLen {
			maxLen = len(n)
		}
	}
	// Mixed prefixes are left for UID-03 to report
	if len(prefixes) != 1 {
		return c.Result("UID-02", formula.Auto)
	}
	return c.Transform("UID-02", "Zero-pad format standardization", func(v interface{}) (interface{}, bool) {
		s := idText(v)
		p, n := splitID(s)
		if p != prefix || len(n) >= maxLen {
			return v, false
		}
		return prefix + strings.Repeat("0", maxLen-len(n)) + n, true
	})
}

func duplicateIDs(c *formula.Column) formula.Result {
	rows, repeated := c.Duplicates(nil)
	desc := fmt.Sprintf("CRITICAL: %d duplicate ID values found", len(repeated))
	if len(repeated) > 20 {
		repeated = repeated[:20]
	}
	counts := make(map[string]int, len(repeated))
	for _, s := range c.Sample(rows, len(rows)) {
		counts[s]++
	}
	for k := range counts {
		if !containsString(repeated, k) {
			delete(counts, k)
		}
	}
	return c.Flag("UID-01", "duplicate_ids", desc,
		"Resolve duplicate IDs - each record must have unique identifier",
		rows, map[string]interface{}{"duplicate_ids": repeated, "counts": counts})
}

func nullIDs(c *formula.Column) formula.Result {
	rows := c.NullRows()
	return c.Flag("UID-05", "null_ids", fmt.Sprintf("CRITICAL: %d records have null ID", len(rows)),
		"Assign unique IDs to these records - ID is required", rows, nil)
}

func mixedPrefixes(c *formula.Column) formula.Result {
	counts := make(map[string]int)
	for _, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		p := ""
		if m := idPrefixRe.FindStringSubmatch(idText(v)); m != nil {
			p = strings.ToUpper(m[1])
		}
		counts[p]++
	}
	if len(counts) <= 1 {
		return c.Result("UID-03", formula.AskFirst)
	}
	rows := make([]int, c.Data.NumRows())
	for i := range rows {
		rows[i] = i
	}
	return c.Flag("UID-03", "mixed_id_prefixes", "Mixed ID prefix patterns detected",
		"Standardize ID prefixes or confirm mixed patterns are intentional",
		rows, map[string]interface{}{"prefix_counts": counts})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
