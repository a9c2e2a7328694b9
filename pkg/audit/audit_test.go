package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/David-Botos/data-refinery/pkg/model"
)

func TestCollectorConcurrentAppend(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Append(model.NewLogEntry("job", "GLOBAL-05", "all_null_row_removed", "test", model.AtRow(j)))
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 400 {
		t.Fatalf("Len = %d, want 400", c.Len())
	}
	if got := len(c.ByFormula("GLOBAL-05")); got != 400 {
		t.Fatalf("ByFormula = %d, want 400", got)
	}
}

func TestNDJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	entries := []model.CleaningLogEntry{
		model.NewLogEntry("job-1", "GLOBAL-03", "column_name_normalized", "renamed",
			model.InColumn("first_name"), model.WithValues("First Name", "first_name")),
		model.NewLogEntry("job-1", "GLOBAL-04", "pending_review_duplicate_header", "dup", model.Pending()),
	}
	if err := NewNDJSONExporter(&buf).Export(entries); err != nil {
		t.Fatalf("Export: %v", err)
	}
	sc := bufio.NewScanner(&buf)
	lines := 0
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %d not JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
}
