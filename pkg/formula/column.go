package formula

import (
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Formula is one column-scoped rule of a type-specific battery
type Formula struct {
	ID     string
	Policy Policy
	Apply  func(c *Column) Result
}

// Battery maps a formula set name (FNAME, DATE, ...) to its ordered formulas
type Battery map[string][]Formula

// Column is the view a formula gets of the column it runs against
type Column struct {
	Rec    *Recorder
	Data   *model.Dataset
	Name   string
	Match  model.HtypeMatch
	Htypes model.HtypeMap
}

// Index returns the current position of the column
func (c *Column) Index() int { return c.Data.ColumnIndex(c.Name) }

// Values returns a copy of the column values
func (c *Column) Values() []interface{} {
	idx := c.Index()
	if idx < 0 {
		return nil
	}
	return c.Data.Column(idx)
}

// NonNullCount returns the number of non-null cells
func (c *Column) NonNullCount() int {
	return len(model.NonNull(c.Values()))
}

// Result returns an empty result for formula id
func (c *Column) Result(id string, policy Policy) Result {
	return Result{FormulaID: id, Column: c.Name, Policy: policy}
}

// Transform evaluates fn against every non-null cell and writes the cells it
// reports as changed. Each change is logged, up to MaxLoggedRows per call.
func (c *Column) Transform(id, action string, fn func(v interface{}) (interface{}, bool)) Result {
	return c.TransformRows(id, action, func(_ int, v interface{}) (interface{}, bool) { return fn(v) })
}

// TransformRows is Transform with the row position passed to fn
func (c *Column) TransformRows(id, action string, fn func(row int, v interface{}) (interface{}, bool)) Result {
	res := c.Result(id, Auto)
	idx := c.Index()
	if idx < 0 {
		return res
	}
	for row := 0; row < c.Data.NumRows(); row++ {
		orig := c.Data.Cell(row, idx)
		if model.IsNull(orig) {
			continue
		}
		updated, changed := fn(row, orig)
		if !changed || model.Equal(orig, updated) {
			continue
		}
		c.Data.SetCell(row, idx, updated)
		if res.Changes < MaxLoggedRows {
			c.Rec.Log(id, action, id+": "+action,
				model.AtRow(row), model.InColumn(c.Name), model.WithValues(orig, updated))
		}
		res.Changes++
	}
	if res.Changes > 0 {
		c.Rec.MarkApplied(id)
	}
	return res
}

// TransformStrings is Transform restricted to string cells
func (c *Column) TransformStrings(id, action string, fn func(s string) (interface{}, bool)) Result {
	return c.Transform(id, action, func(v interface{}) (interface{}, bool) {
		s, ok := v.(string)
		if !ok {
			return v, false
		}
		return fn(s)
	})
}

// Rows returns the positions of non-null cells satisfying pred
func (c *Column) Rows(pred func(v interface{}) bool) []int {
	var rows []int
	for i, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		if pred(v) {
			rows = append(rows, i)
		}
	}
	return rows
}

// NullRows returns the positions of null cells
func (c *Column) NullRows() []int {
	var rows []int
	for i, v := range c.Values() {
		if model.IsNull(v) {
			rows = append(rows, i)
		}
	}
	return rows
}

// Flag raises a pending-review flag for rows of this column. Nothing is
// recorded when rows is empty.
func (c *Column) Flag(id, flagType, description, suggested string, rows []int, details map[string]interface{}) Result {
	res := c.Result(id, AskFirst)
	if len(rows) == 0 {
		return res
	}
	c.Rec.Flag(model.PendingFlag{
		FormulaID:       id,
		FlagType:        flagType,
		Description:     description,
		AffectedColumns: []string{c.Name},
		AffectedRows:    rows,
		AffectedCount:   len(rows),
		SuggestedAction: suggested,
		Details:         details,
	})
	c.Rec.MarkApplied(id)
	res.Flagged = len(rows)
	return res
}

// FlagWhere flags the non-null rows satisfying pred and attaches up to
// five sample values
func (c *Column) FlagWhere(id, flagType, description, suggested string, pred func(v interface{}) bool) Result {
	rows := c.Rows(pred)
	if len(rows) == 0 {
		return c.Result(id, AskFirst)
	}
	return c.Flag(id, flagType, description, suggested, rows,
		map[string]interface{}{"sample_values": c.Sample(rows, 5)})
}

// Sample returns the stringified values at up to n of rows
func (c *Column) Sample(rows []int, n int) []string {
	idx := c.Index()
	out := make([]string, 0, n)
	for _, r := range rows {
		if len(out) == n || idx < 0 {
			break
		}
		out = append(out, model.Stringify(c.Data.Cell(r, idx)))
	}
	return out
}

// Note writes an informational, auto-applied entry that does not mutate data
func (c *Column) Note(id, action, reason string, value interface{}) Result {
	res := c.Result(id, Auto)
	c.Rec.Log(id, action, reason, model.InColumn(c.Name), model.WithNewValue(value))
	c.Rec.MarkApplied(id)
	return res
}

// SetDerived writes a helper column right after this one, replacing an
// existing column of the same name. Returns the number of non-null values.
func (c *Column) SetDerived(id, name string, values []interface{}) int {
	n := len(model.NonNull(values))
	if n == 0 {
		return 0
	}
	if idx := c.Data.ColumnIndex(name); idx >= 0 {
		c.Data.SetColumn(idx, values)
	} else {
		c.Data.InsertColumn(c.Index()+1, name, values)
	}
	c.Rec.Log(id, "derived_column_created",
		id+": created column '"+name+"' from '"+c.Name+"'",
		model.InColumn(name), model.WithNewValue(n))
	c.Rec.MarkApplied(id)
	return n
}

// TypeSummary is the run summary shared by the type-specific engines
type TypeSummary struct {
	RulesApplied     []string `json:"rules_applied" yaml:"rules_applied"`
	TotalChanges     int      `json:"total_changes" yaml:"total_changes"`
	TotalFlags       int      `json:"total_flags" yaml:"total_flags"`
	ColumnsProcessed []string `json:"columns_processed" yaml:"columns_processed"`
	Results          []Result `json:"results,omitempty" yaml:"results,omitempty"`
}

// RunBattery runs every formula of battery against the columns whose
// formula set it covers, in column order. Columns that a formula removes or
// renames mid-run are skipped for the remaining formulas.
func RunBattery(rec *Recorder, ds *model.Dataset, htypes model.HtypeMap, battery Battery) TypeSummary {
	summary := TypeSummary{RulesApplied: []string{}, ColumnsProcessed: []string{}}
	before := len(rec.flags)
	for _, name := range ds.Columns() {
		match, ok := htypes[name]
		if !ok {
			continue
		}
		formulas := battery[match.FormulaSet]
		if len(formulas) == 0 {
			continue
		}
		col := &Column{Rec: rec, Data: ds, Name: name, Match: match, Htypes: htypes}
		for _, f := range formulas {
			if col.Index() < 0 {
				break
			}
			res := runSafely(f, col)
			summary.TotalChanges += res.Changes
			if res.Fired() {
				summary.Results = append(summary.Results, res)
			}
		}
		summary.ColumnsProcessed = append(summary.ColumnsProcessed, name)
	}
	summary.TotalFlags = len(rec.flags) - before
	summary.RulesApplied = rec.Applied()
	return summary
}

// runSafely keeps a panicking trigger from aborting the whole battery;
// a formula that panics is treated as not having fired.
func runSafely(f Formula, col *Column) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = col.Result(f.ID, f.Policy)
		}
	}()
	res = f.Apply(col)
	if res.FormulaID == "" {
		res.FormulaID = f.ID
	}
	return res
}

// Duplicates returns the rows whose value occurs more than once and the
// repeated values, stringified, in first-seen order. key groups values and
// defaults to exact cell equality.
func (c *Column) Duplicates(key func(v interface{}) string) (rows []int, repeated []string) {
	if key == nil {
		key = model.Key
	}
	values := c.Values()
	counts := make(map[string]int)
	for _, v := range values {
		if !model.IsNull(v) {
			counts[key(v)]++
		}
	}
	reported := make(map[string]struct{})
	for i, v := range values {
		if model.IsNull(v) {
			continue
		}
		k := key(v)
		if counts[k] < 2 {
			continue
		}
		rows = append(rows, i)
		if _, ok := reported[k]; !ok {
			reported[k] = struct{}{}
			repeated = append(repeated, model.Stringify(v))
		}
	}
	return rows, repeated
}
