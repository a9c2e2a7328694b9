package numeric

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var ordinalRe = regexp.MustCompile(`(?i)^(?:#|no\.?\s*)?(\d+)(?:st|nd|rd|th)?$`)

var ordinalWords = map[string]int64{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
	"fifteenth": 15, "sixteenth": 16, "seventeenth": 17,
	"eighteenth": 18, "nineteenth": 19, "twentieth": 20,
	"frist": 1, "secnd": 2, "thrid": 3,
}

// ParseOrdinal reads "1st", "#3", "third" or a plain integer
func ParseOrdinal(s string) (int64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := ordinalWords[s]; ok {
		return n, true
	}
	if m := ordinalRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		return n, err == nil
	}
	if n, _, ok := spelledNumber(s); ok {
		return n, true
	}
	return 0, false
}

// ordinalsToIntegers converts ordinal text to integers and stores whole
// float ranks as integers
func ordinalsToIntegers(c *formula.Column) formula.Result {
	res := c.TransformStrings("RANK-01", "Ordinal converted to integer", func(s string) (interface{}, bool) {
		n, ok := ParseOrdinal(s)
		return n, ok
	})
	idx := c.Index()
	for row, v := range c.Values() {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			c.Data.SetCell(row, idx, int64(f))
		}
	}
	return res
}

func nonPositiveRanks(c *formula.Column) formula.Result {
	return c.FlagWhere("RANK-04", "non_positive_rank", "Ranks must be positive",
		"Verify zero or negative ranks", func(v interface{}) bool {
			f, ok := cellNumber(v)
			return ok && f <= 0
		})
}

func duplicateRanks(c *formula.Column) formula.Result {
	rows, repeated := c.Duplicates(func(v interface{}) string {
		if f, ok := cellNumber(v); ok {
			return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
		}
		return model.Key(v)
	})
	return c.Flag("RANK-02", "duplicate_rank", fmt.Sprintf("%d rank values are shared by more than one row", len(repeated)),
		"Verify ties or re-rank", rows, map[string]interface{}{"duplicate_values": repeated})
}

// rankGaps flags the row holding the first rank after each gap in the
// 1..max sequence
func rankGaps(c *formula.Column) formula.Result {
	rowsByRank := make(map[int64][]int)
	for i, v := range c.Values() {
		n, ok := formula.ToInt(v)
		if ok && n > 0 {
			rowsByRank[n] = append(rowsByRank[n], i)
		}
	}
	if len(rowsByRank) == 0 {
		return c.Result("RANK-03", formula.AskFirst)
	}
	ranks := make([]int64, 0, len(rowsByRank))
	for n := range rowsByRank {
		ranks = append(ranks, n)
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })

	var rows []int
	var missing []int64
	var missingCount int64
	prev := int64(0)
	for _, n := range ranks {
		if n > prev+1 {
			missingCount += n - prev - 1
			for m := prev + 1; m < n && len(missing) < formula.MaxFlaggedRows; m++ {
				missing = append(missing, m)
			}
			rows = append(rows, rowsByRank[n]...)
		}
		prev = n
	}
	sort.Ints(rows)
	return c.Flag("RANK-03", "rank_gaps", fmt.Sprintf("%d ranks are missing from the sequence", missingCount),
		"Verify whether ranks were skipped", rows,
		map[string]interface{}{"missing_ranks": missing, "missing_count": missingCount})
}
