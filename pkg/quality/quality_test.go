package quality

import (
	"testing"
	"time"

	"github.com/David-Botos/data-refinery/pkg/model"
)

func dataset(t *testing.T, cols []string, values ...[]interface{}) *model.Dataset {
	t.Helper()
	ds, err := model.FromColumns(cols, values)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return ds
}

func TestEmptyDatasetScoresZero(t *testing.T) {
	tests := map[string]*model.Dataset{
		"nil":        nil,
		"no columns": model.NewDataset(nil, nil),
		"no rows":    model.NewDataset([]string{"a", "b"}, nil),
	}
	for name, ds := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Score(ds, 10); got != 0 {
				t.Errorf("Score = %v, want 0", got)
			}
		})
	}
}

func TestCleanDatasetScoresHundred(t *testing.T) {
	ds := dataset(t, []string{"name", "amount", "active"},
		[]interface{}{"a", "b", "c"},
		[]interface{}{1, 2.5, "3"},
		[]interface{}{true, false, true})
	b := Evaluate(ds, 3)
	want := Breakdown{Completeness: 100, Uniqueness: 100, Consistency: 100, Integrity: 100, Score: 100}
	if b != want {
		t.Errorf("Evaluate = %+v, want %+v", b, want)
	}
}

func TestWeightedScore(t *testing.T) {
	// 2 of 8 cells null, 4 of 5 rows kept, one mixed int/bool column
	ds := dataset(t, []string{"name", "mixed"},
		[]interface{}{"a", nil, "c", "d"},
		[]interface{}{int64(1), true, nil, "x"})
	b := Evaluate(ds, 5)
	if b.Completeness != 75 || b.Uniqueness != 80 || b.Consistency != 100 || b.Integrity != 75 {
		t.Fatalf("breakdown = %+v", b)
	}
	// 75*0.4 + 80*0.3 + 100*0.2 + 75*0.1
	if b.Score != 81.5 {
		t.Errorf("Score = %v, want 81.5", b.Score)
	}
}

func TestTextColumnWithStrayNumberScoresHundred(t *testing.T) {
	ds := dataset(t, []string{"code"}, []interface{}{"A", "B", int64(3), "D"})
	b := Evaluate(ds, 4)
	want := Breakdown{Completeness: 100, Uniqueness: 100, Consistency: 100, Integrity: 100, Score: 100}
	if b != want {
		t.Errorf("Evaluate = %+v, want %+v", b, want)
	}
}

func TestUniquenessIsCapped(t *testing.T) {
	ds := dataset(t, []string{"a"}, []interface{}{"x", "y", "z"})
	if b := Evaluate(ds, 2); b.Uniqueness != 100 {
		t.Errorf("Uniqueness = %v, want 100", b.Uniqueness)
	}
	if b := Evaluate(ds, 0); b.Uniqueness != 100 {
		t.Errorf("Uniqueness without an original count = %v, want 100", b.Uniqueness)
	}
}

func TestConsistent(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		values []interface{}
		want   bool
	}{
		{"empty", []interface{}{nil, nil}, true},
		{"strings", []interface{}{"a", "b"}, true},
		{"numeric text", []interface{}{"1", int64(2), 3.5}, true},
		{"times", []interface{}{now, now}, true},
		{"bools", []interface{}{true, nil, false}, true},
		{"mixed", []interface{}{int64(1), true, "x"}, true},
		{"text with a number", []interface{}{"A", "B", int64(3), "D"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Consistent(tt.values); got != tt.want {
				t.Errorf("Consistent(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		values []interface{}
		want   string
	}{
		{[]interface{}{nil}, KindEmpty},
		{[]interface{}{"1", int64(2), 3.5, nil}, KindNumeric},
		{[]interface{}{"A", "B", int64(3), "D"}, KindText},
		{[]interface{}{true, false}, KindText},
	}
	for _, tt := range tests {
		if got := Kind(tt.values); got != tt.want {
			t.Errorf("Kind(%v) = %s, want %s", tt.values, got, tt.want)
		}
	}
}
