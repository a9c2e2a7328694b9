package category

import (
	"fmt"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var statusMappings = map[string]string{
	"completed": "Completed", "complete": "Completed", "done": "Completed",
	"finished": "Completed", "closed": "Completed", "resolved": "Completed",
	"fulfilled": "Completed", "delivered": "Completed", "shipped": "Completed",

	"pending": "Pending", "waiting": "Pending", "on hold": "Pending",
	"hold": "Pending", "paused": "Pending", "queued": "Pending",
	"scheduled": "Pending", "awaiting": "Pending",

	"active": "Active", "ongoing": "Active", "in progress": "Active",
	"in-progress": "Active", "processing": "Active", "running": "Active",
	"started": "Active", "working": "Active", "open": "Active",

	"inactive": "Inactive", "suspended": "Inactive", "dormant": "Inactive",
	"disabled": "Inactive",

	"cancelled": "Cancelled", "canceled": "Cancelled", "void": "Cancelled",
	"voided": "Cancelled", "terminated": "Cancelled", "aborted": "Cancelled",
	"abandoned": "Cancelled",

	"new": "New", "created": "New", "initialized": "New",
	"draft": "Draft",

	"failed": "Failed", "error": "Failed", "rejected": "Failed",
	"declined": "Failed",

	"approved": "Approved", "accepted": "Approved", "confirmed": "Approved",
	"verified": "Approved",
}

// Workflow is an ordered sequence of canonical statuses
type Workflow struct {
	Name   string   `json:"name"`
	States []string `json:"states"`
}

var workflows = []Workflow{
	{Name: "standard", States: []string{"New", "Pending", "Active", "Completed"}},
	{Name: "approval", States: []string{"Draft", "Pending", "Approved", "Completed"}},
	{Name: "order", States: []string{"New", "Active", "Completed", "Cancelled"}},
}

// NormalizeStatus maps a status spelling to its canonical form
func NormalizeStatus(s string) (string, bool) {
	canonical, ok := statusMappings[strings.ToLower(formula.CollapseSpaces(s))]
	return canonical, ok
}

// DetectWorkflow returns the workflow sharing the most states with values.
// Ties keep the earlier workflow.
func DetectWorkflow(values []interface{}) (Workflow, bool) {
	present := make(map[string]struct{})
	for _, v := range values {
		if s, ok := v.(string); ok {
			if canonical, ok := NormalizeStatus(s); ok {
				present[canonical] = struct{}{}
			}
		}
	}
	var best Workflow
	bestOverlap := 0
	for _, w := range workflows {
		overlap := 0
		for _, state := range w.States {
			if _, ok := present[state]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			best, bestOverlap = w, overlap
		}
	}
	return best, bestOverlap > 0
}

func statusCase(c *formula.Column) formula.Result {
	return c.TransformStrings("STAT-03", "Title case applied", func(s string) (interface{}, bool) {
		return formula.TitleCase(s), true
	})
}

func canonicalStatuses(c *formula.Column) formula.Result {
	return c.TransformStrings("STAT-01", "Status mapped to canonical form", func(s string) (interface{}, bool) {
		canonical, ok := NormalizeStatus(s)
		return canonical, ok
	})
}

// workflowStates flags statuses that are not part of the detected workflow,
// including values that are not recognizable statuses at all
func workflowStates(c *formula.Column) formula.Result {
	w, ok := DetectWorkflow(c.Values())
	if !ok {
		return c.Result("STAT-02", formula.AskFirst)
	}
	states := formula.NewSet(w.States...)
	rows := c.Rows(func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		canonical, known := NormalizeStatus(s)
		return !known || !states.Has(canonical)
	})
	return c.Flag("STAT-02", "unknown_workflow_state",
		fmt.Sprintf("Statuses outside the %s workflow %v", w.Name, w.States),
		"Confirm these statuses or map them onto the workflow", rows,
		map[string]interface{}{"workflow": w.Name, "expected_sequence": w.States, "sample_values": c.Sample(rows, 5)})
}

func nullStatuses(c *formula.Column) formula.Result {
	return nullFlag(c, "STAT-04", "missing_status", "rows have no status",
		"Choose how missing statuses should be filled",
		[]string{"Keep as null", "Mark as Unknown", "Mark as New"})
}

// retiredStatuses flags statuses held by fewer than 1% of rows, which are
// often labels that have since been retired
func retiredStatuses(c *formula.Column) formula.Result {
	values := c.Values()
	counts := make(map[string]int)
	total := 0
	for _, v := range values {
		if !model.IsNull(v) {
			counts[model.Stringify(v)]++
			total++
		}
	}
	var retired []string
	for _, s := range byFrequency(counts) {
		if float64(counts[s]) < float64(total)*rareShare {
			retired = append(retired, s)
		}
	}
	if len(retired) == 0 {
		return c.Result("STAT-05", formula.AskFirst)
	}
	set := formula.NewSet(retired...)
	rows := c.Rows(func(v interface{}) bool { return set.Has(model.Stringify(v)) })
	return c.Flag("STAT-05", "retired_status",
		fmt.Sprintf("Rarely used statuses may be retired labels: %s", formula.Describe(retired, 5)),
		"Map retired statuses onto current ones", rows,
		map[string]interface{}{"potentially_retired": retired})
}
