package datetime

import (
	"sort"
	"time"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

const isoLayout = "2006-01-02 15:04:05"

func (r *run) parseTimestamps(c *formula.Column) formula.Result {
	r.capture(c)
	dayFirst := DayFirst(c.Values())
	return c.Transform("DTM-01", "Permissive datetime parsing", func(v interface{}) (interface{}, bool) {
		if _, ok := v.(time.Time); ok {
			return v, false
		}
		t, ok := ParseDate(v, dayFirst, r.ref)
		return t, ok
	})
}

// splitTimestamps derives <col>_date and <col>_time next to the column
func splitTimestamps(c *formula.Column) formula.Result {
	values := c.Values()
	dates := make([]interface{}, len(values))
	clocks := make([]interface{}, len(values))
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			dates[i] = dateOf(t)
			clocks[i] = t.Format("15:04:05")
		}
	}
	res := c.Result("DTM-02", formula.Auto)
	// inserted in reverse so the date column ends up first
	res.Changes = c.SetDerived("DTM-02", c.Name+"_time", clocks)
	c.SetDerived("DTM-02", c.Name+"_date", dates)
	return res
}

// isoTimestamps records the normalization from each raw value to its
// ISO 8601 rendering. The cells already hold time values.
func (r *run) isoTimestamps(c *formula.Column) formula.Result {
	res := c.Result("DTM-03", formula.Auto)
	for i, v := range c.Values() {
		t, ok := v.(time.Time)
		if !ok {
			continue
		}
		raw := r.original(c, i)
		iso := t.Format(isoLayout)
		if model.IsNull(raw) || model.Stringify(raw) == iso {
			continue
		}
		if res.Changes < formula.MaxLoggedRows {
			c.Rec.Log("DTM-03", "ISO 8601 normalization", "DTM-03: ISO 8601 normalization",
				model.AtRow(i), model.InColumn(c.Name), model.WithValues(raw, iso))
		}
		res.Changes++
	}
	if res.Changes > 0 {
		c.Rec.MarkApplied("DTM-03")
	}
	return res
}

// duplicateTimestamps flags repeated timestamps, scoped to the same entity
// when the dataset has an identifier column
func duplicateTimestamps(c *formula.Column) formula.Result {
	values := c.Values()
	var ids []interface{}
	for _, name := range c.Data.Columns() {
		if m, ok := c.Htypes[name]; ok && m.FormulaSet == "UID" && name != c.Name {
			ids, _ = c.Data.ColumnByName(name)
			break
		}
	}
	groups := make(map[string][]int)
	for i, v := range values {
		if model.IsNull(v) {
			continue
		}
		k := model.Key(v)
		if ids != nil {
			if model.IsNull(ids[i]) {
				continue
			}
			k = model.Key(ids[i]) + "\x1f" + k
		}
		groups[k] = append(groups[k], i)
	}
	var rows []int
	for _, g := range groups {
		if len(g) > 1 {
			rows = append(rows, g...)
		}
	}
	sort.Ints(rows)
	return c.Flag("DTM-06", "duplicate_timestamps", "Duplicate timestamps detected (possible double submission)",
		"Review for duplicate records", rows, nil)
}
