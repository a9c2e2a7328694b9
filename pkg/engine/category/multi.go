package category

import (
	"fmt"
	"sort"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// itemDelimiters are tried in order; earlier entries win ties
var itemDelimiters = []string{",", ";", "|", "/", "&", " and ", "\n", `\n`}

const (
	// multiValueShare is the share of cells that must contain the
	// delimiter for a column to count as multi-value
	multiValueShare = 0.2
	itemSimilarity  = 0.85
	standardJoin    = ", "
)

// DetectDelimiter returns the most frequent item delimiter and whether
// enough cells carry it for the column to be multi-value
func DetectDelimiter(values []interface{}) (string, bool) {
	counts := make([]int, len(itemDelimiters))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		for i, d := range itemDelimiters {
			counts[i] += strings.Count(s, d)
		}
	}
	best := -1
	for i, n := range counts {
		if n > 0 && (best < 0 || n > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	delim := itemDelimiters[best]
	cells, with := 0, 0
	for _, v := range model.NonNull(values) {
		cells++
		if s, ok := v.(string); ok && strings.Contains(s, delim) {
			with++
		}
	}
	return delim, float64(with) >= float64(cells)*multiValueShare
}

// SplitItems splits a cell on delim, trimming items and dropping empty ones.
// An empty delim yields the whole cell as one item.
func SplitItems(s, delim string) []string {
	parts := []string{s}
	if delim != "" {
		parts = strings.Split(s, delim)
	}
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// splitAny splits on every known delimiter
func splitAny(s string) []string {
	for _, d := range itemDelimiters[1:] {
		s = strings.ReplaceAll(s, d, itemDelimiters[0])
	}
	return SplitItems(s, itemDelimiters[0])
}

func (r *run) delimiter(c *formula.Column) string {
	return r.delimiters[c.Name]
}

// items returns the item lists of the string cells of a column
func (r *run) items(c *formula.Column) map[int][]string {
	out := make(map[int][]string)
	for i, v := range c.Values() {
		if s, ok := v.(string); ok {
			out[i] = SplitItems(s, r.delimiter(c))
		}
	}
	return out
}

func (r *run) detectDelimiter(c *formula.Column) formula.Result {
	delim, ok := DetectDelimiter(c.Values())
	if !ok {
		return c.Result("MULTI-01", formula.Auto)
	}
	r.delimiters[c.Name] = delim
	return c.Note("MULTI-01", "delimiter_detected",
		fmt.Sprintf("MULTI-01: multi-value column split on %q", delim), delim)
}

func (r *run) standardizeDelimiters(c *formula.Column) formula.Result {
	if _, ok := r.delimiters[c.Name]; !ok {
		return c.Result("MULTI-02", formula.Auto)
	}
	res := c.TransformStrings("MULTI-02", "Delimiters standardized", func(s string) (interface{}, bool) {
		return strings.Join(splitAny(s), standardJoin), true
	})
	r.delimiters[c.Name] = ","
	return res
}

func (r *run) cleanItems(c *formula.Column) formula.Result {
	delim := r.delimiter(c)
	return c.TransformStrings("MULTI-03", "Items trimmed and title-cased", func(s string) (interface{}, bool) {
		items := SplitItems(s, delim)
		for i, item := range items {
			items[i] = LabelCase(formula.CollapseSpaces(item))
		}
		return strings.Join(items, standardJoin), true
	})
}

// itemCanonicals groups items whose spellings are at least 85% similar and
// maps every member to the group's most frequent spelling
func itemCanonicals(counts map[string]int) map[string]string {
	ranked := byFrequency(counts)
	canonical := make(map[string]string)
	for _, item := range ranked {
		if _, done := canonical[item]; done {
			continue
		}
		canonical[item] = item
		for _, other := range ranked {
			if _, done := canonical[other]; done {
				continue
			}
			if strings.EqualFold(item, other) || Similarity(item, other) >= itemSimilarity {
				canonical[other] = item
			}
		}
	}
	return canonical
}

// normalizeItems rewrites variant item spellings and drops items repeated
// within a cell
func (r *run) normalizeItems(c *formula.Column) formula.Result {
	delim := r.delimiter(c)
	counts := make(map[string]int)
	for _, items := range r.items(c) {
		for _, item := range items {
			counts[item]++
		}
	}
	canonical := itemCanonicals(counts)
	return c.TransformStrings("MULTI-04", "Item variants normalized", func(s string) (interface{}, bool) {
		items := SplitItems(s, delim)
		seen := make(map[string]struct{}, len(items))
		out := make([]string, 0, len(items))
		for _, item := range items {
			if to, ok := canonical[item]; ok {
				item = to
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
		return strings.Join(out, standardJoin), true
	})
}

func (r *run) itemCounts(c *formula.Column) map[string]int {
	counts := make(map[string]int)
	for _, items := range r.items(c) {
		for _, item := range items {
			counts[item]++
		}
	}
	return counts
}

func (r *run) itemFrequencies(c *formula.Column) formula.Result {
	counts := r.itemCounts(c)
	if len(counts) == 0 {
		return c.Result("MULTI-06", formula.AskFirst)
	}
	r.frequencies[c.Name] = counts
	return report(c, "MULTI-06", "value_frequency",
		fmt.Sprintf("MULTI-06: %d distinct values", len(counts)), frequencyText(counts))
}

func (r *run) itemRegistry(c *formula.Column) formula.Result {
	counts := r.itemCounts(c)
	if len(counts) == 0 {
		return c.Result("MULTI-07", formula.AskFirst)
	}
	unique := make([]string, 0, len(counts))
	for item := range counts {
		unique = append(unique, item)
	}
	sort.Strings(unique)
	r.registry[c.Name] = unique
	return report(c, "MULTI-07", "unique_value_registry",
		fmt.Sprintf("MULTI-07: %d unique values", len(unique)), strings.Join(unique, standardJoin))
}

// explodeOffer proposes one row per item for the cells holding several
func (r *run) explodeOffer(c *formula.Column) formula.Result {
	delim := r.delimiter(c)
	if delim == "" {
		return c.Result("MULTI-05", formula.AskFirst)
	}
	var rows []int
	exploded := c.Data.NumRows()
	for i, items := range r.items(c) {
		if len(items) > 1 {
			rows = append(rows, i)
			exploded += len(items) - 1
		}
	}
	sort.Ints(rows)
	return c.Flag("MULTI-05", "explode_option",
		fmt.Sprintf("%d cells hold more than one value", len(rows)),
		"Explode the column into one row per value", rows,
		map[string]interface{}{"current_rows": c.Data.NumRows(), "exploded_rows": exploded, "delimiter": delim})
}

// Explode returns a copy of ds with one row per item of column col. Rows
// whose cell is null or holds a single item are kept as they are.
func Explode(ds *model.Dataset, col, delim string) (*model.Dataset, error) {
	idx := ds.ColumnIndex(col)
	if idx < 0 {
		return nil, fmt.Errorf("explode: %w: %s", model.ErrColumnNotFound, col)
	}
	var rows [][]interface{}
	for i := 0; i < ds.NumRows(); i++ {
		row := ds.Row(i)
		s, ok := row[idx].(string)
		items := SplitItems(s, delim)
		if !ok || len(items) < 2 {
			rows = append(rows, row)
			continue
		}
		for _, item := range items {
			copied := append([]interface{}(nil), row...)
			copied[idx] = item
			rows = append(rows, copied)
		}
	}
	return model.NewDataset(ds.Columns(), rows), nil
}
