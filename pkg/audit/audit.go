package audit

import (
	"sort"
	"sync"

	"github.com/David-Botos/data-refinery/pkg/model"
)

// Sink accepts append-only cleaning log entries
type Sink interface {
	Append(entry model.CleaningLogEntry)
}

// Collector is an in-memory Sink. Each worker owns its own Collector for the
// lifetime of one job; the mutex only guards against a caller reading the
// entries while an engine is still appending.
type Collector struct {
	mu      sync.Mutex
	entries []model.CleaningLogEntry
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Append records one entry
func (c *Collector) Append(entry model.CleaningLogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

// Entries returns a copy of every recorded entry in append order
func (c *Collector) Entries() []model.CleaningLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.CleaningLogEntry(nil), c.entries...)
}

// Len returns the number of recorded entries
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ByFormula returns the entries recorded for one formula id
func (c *Collector) ByFormula(formulaID string) []model.CleaningLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.CleaningLogEntry
	for _, e := range c.entries {
		if e.FormulaID == formulaID {
			out = append(out, e)
		}
	}
	return out
}

// CountByFormula returns entry counts keyed by formula id
func (c *Collector) CountByFormula() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int)
	for _, e := range c.entries {
		out[e.FormulaID]++
	}
	return out
}

// FormulaIDs returns the sorted set of formula ids that produced entries
func (c *Collector) FormulaIDs() []string {
	counts := c.CountByFormula()
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Discard is a Sink that drops every entry
type Discard struct{}

// Append implements Sink
func (Discard) Append(model.CleaningLogEntry) {}
