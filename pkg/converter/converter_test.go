package converter

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/model"
)

func TestSnapshotMetadataPostgres(t *testing.T) {
	ds, err := model.FromColumns(
		[]string{"id", "visit_date", "amount", "active", "note", "count"},
		[][]interface{}{
			{"0b7e3f4a-8c1d-4e2b-9f6a-1d2c3b4a5e6f", "5a1c2d3e-4f50-4617-8293-a4b5c6d7e8f9"},
			{"2024-01-15", nil},
			{1.5, 2.25},
			{true, false},
			{"short", strings.Repeat("x", 300)},
			{int64(1), int64(2)},
		})
	if err != nil {
		t.Fatal(err)
	}
	htypes := model.HtypeMap{
		"id":         {HtypeCode: "HTYPE-003", FormulaSet: "UID"},
		"visit_date": {HtypeCode: "HTYPE-004", FormulaSet: "DATE"},
	}
	c := NewTypeConverter(zaptest.NewLogger(t))
	meta := c.SnapshotMetadata("refinery", "snap", ds, htypes, Postgres)

	want := map[string]string{
		"id":         "UUID",
		"visit_date": "DATE",
		"amount":     "DOUBLE PRECISION",
		"active":     "BOOLEAN",
		"note":       "VARCHAR(1000)",
		"count":      "BIGINT",
	}
	for _, col := range meta.Columns {
		if col.PgType != want[col.Name] {
			t.Errorf("%s type = %s, want %s", col.Name, col.PgType, want[col.Name])
		}
	}

	stmt, err := c.CreateTableStatement(meta, `"_row" INTEGER NOT NULL`)
	if err != nil {
		t.Fatalf("CreateTableStatement: %v", err)
	}
	if !strings.HasPrefix(stmt, `CREATE TABLE IF NOT EXISTS "refinery"."snap" (`) {
		t.Errorf("statement = %s", stmt)
	}
	if !strings.Contains(stmt, `"_row" INTEGER NOT NULL,`) || !strings.Contains(stmt, `"visit_date" DATE NULL`) {
		t.Errorf("statement = %s", stmt)
	}
}

func TestSnapshotMetadataSQLite(t *testing.T) {
	ds := model.NewDataset([]string{"flag", "when", "name"}, [][]interface{}{
		{true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "a"},
	})
	meta := NewTypeConverter(nil).SnapshotMetadata("", "snap", ds, nil, SQLite)
	want := []string{"INTEGER", "TEXT", "TEXT"}
	for i, col := range meta.Columns {
		if col.PgType != want[i] {
			t.Errorf("%s type = %s, want %s", col.Name, col.PgType, want[i])
		}
	}
}

func TestGenerateColumnDefinitionsRejectsDuplicates(t *testing.T) {
	meta := &model.TableMetadata{Table: "t", Columns: []model.Column{
		{Name: "Name", PgType: "TEXT", Nullable: true},
		{Name: "name", PgType: "TEXT", Nullable: true},
	}}
	if _, err := NewTypeConverter(nil).GenerateColumnDefinitions(meta); err == nil {
		t.Error("expected an error for duplicate column names")
	}
}

func TestQuotingEscapesIdentifiers(t *testing.T) {
	if got := QualifiedName("", `we"ird`); got != `"we""ird"` {
		t.Errorf("QualifiedName = %s", got)
	}
}

func TestCellKind(t *testing.T) {
	c := NewTypeConverter(nil)
	tests := []struct {
		typeName   string
		scale      int64
		scaleKnown bool
		want       string
	}{
		{"INT8", 0, false, KindInt},
		{"FIXED", 0, true, KindInt},
		{"FIXED", 2, true, KindFloat},
		{"NUMERIC", 0, false, KindFloat},
		{"FLOAT8", 0, false, KindFloat},
		{"BOOL", 0, false, KindBool},
		{"TIMESTAMP_NTZ", 0, false, KindDatetime},
		{"TIMESTAMPTZ", 0, false, KindDatetime},
		{"VARCHAR(255)", 0, false, KindObject},
		{"JSONB", 0, false, KindObject},
	}
	for _, tt := range tests {
		if got := c.CellKind(tt.typeName, tt.scale, tt.scaleKnown); got != tt.want {
			t.Errorf("CellKind(%s, %d, %v) = %s, want %s", tt.typeName, tt.scale, tt.scaleKnown, got, tt.want)
		}
	}
}

func TestToCell(t *testing.T) {
	c := NewTypeConverter(nil)
	tests := []struct {
		in   interface{}
		kind string
		want interface{}
	}{
		{[]byte("42"), KindInt, int64(42)},
		{"1E3", KindInt, int64(1000)},
		{"3.5", KindFloat, 3.5},
		{"t", KindBool, true},
		{"", KindObject, nil},
		{[]byte("hi"), KindObject, "hi"},
		{"2024-03-01", KindDatetime, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{nil, KindInt, nil},
	}
	for _, tt := range tests {
		got, err := c.ToCell(tt.in, tt.kind)
		if err != nil {
			t.Errorf("ToCell(%v, %s): %v", tt.in, tt.kind, err)
			continue
		}
		if !model.Equal(got, tt.want) {
			t.Errorf("ToCell(%v, %s) = %#v, want %#v", tt.in, tt.kind, got, tt.want)
		}
	}
	if _, err := c.ToCell("1.5", KindInt); err == nil {
		t.Error("a fractional value must not become an integer")
	}
}

func TestConvertValue(t *testing.T) {
	c := NewTypeConverter(nil)
	when := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		in      interface{}
		sqlType string
		d       Dialect
		want    interface{}
	}{
		{true, "INTEGER", SQLite, int64(1)},
		{when, "TEXT", SQLite, "2024-03-01T10:30:00Z"},
		{"2024-03-01", "DATE", Postgres, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{int64(7), "VARCHAR(50)", Postgres, "7"},
		{2.5, "DOUBLE PRECISION", Postgres, 2.5},
		{nil, "TEXT", Postgres, nil},
	}
	for _, tt := range tests {
		got, err := c.ConvertValue(tt.in, tt.sqlType, tt.d)
		if err != nil {
			t.Errorf("ConvertValue(%v, %s): %v", tt.in, tt.sqlType, err)
			continue
		}
		if !model.Equal(got, tt.want) {
			t.Errorf("ConvertValue(%v, %s) = %#v, want %#v", tt.in, tt.sqlType, got, tt.want)
		}
	}
}
