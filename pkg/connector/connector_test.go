package connector

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/converter"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func TestScanDataset(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE people (id INTEGER, name TEXT, score REAL)`,
		`INSERT INTO people VALUES (1, 'Ann', 9.5), (2, '', NULL), (3, 'Cid', 7)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	rows, err := db.QueryContext(ctx, selectTableQuery(converter.QualifiedName("", "people"), 0, "?"))
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	ds, err := scanDataset(converter.NewTypeConverter(zaptest.NewLogger(t)), rows)
	if err != nil {
		t.Fatalf("scanDataset: %v", err)
	}
	if got := strings.Join(ds.Columns(), ","); got != "id,name,score" {
		t.Errorf("columns = %s", got)
	}
	want := [][]interface{}{
		{int64(1), "Ann", 9.5},
		{int64(2), nil, nil},
		{int64(3), "Cid", 7.0},
	}
	for i, row := range want {
		for j, v := range row {
			if got := ds.Cell(i, j); !model.Equal(got, v) {
				t.Errorf("cell (%d,%d) = %#v, want %#v", i, j, got, v)
			}
		}
	}
}

func TestSelectTableQuery(t *testing.T) {
	q := selectTableQuery(converter.QualifiedName("public", "Orders"), 50, "$1")
	if q != `SELECT * FROM "public"."Orders" LIMIT $1` {
		t.Errorf("query = %s", q)
	}
	if q := selectTableQuery(`"t"`, 0, "$1"); strings.Contains(q, "LIMIT") {
		t.Errorf("unlimited query = %s", q)
	}
}

func TestFactoryRequiresConfiguration(t *testing.T) {
	f := NewConnectorFactory(&config.Config{}, zaptest.NewLogger(t))
	ctx := context.Background()
	for _, source := range []string{SourcePostgres, SourceSnowflake, "oracle"} {
		conn, err := f.Create(ctx, source)
		if err == nil {
			t.Errorf("Create(%s) expected an error", source)
		}
		if conn != nil {
			t.Errorf("Create(%s) returned a non-nil connector with an error", source)
		}
	}
}

func TestLoadTableRejectsSchema(t *testing.T) {
	c := &PostgresConnector{cfg: &config.PostgresConfig{Schemas: []string{"public"}}}
	_, err := c.LoadTable(context.Background(), "secret", "t", 10)
	if !errors.Is(err, ErrSchemaNotAllowed) {
		t.Errorf("err = %v, want ErrSchemaNotAllowed", err)
	}
}

func TestExecWithTimeoutAndEnsureSchema(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	c := &PostgresConnector{db: db, logger: zaptest.NewLogger(t)}
	ctx := context.Background()

	if _, err := c.ExecWithTimeout(ctx, `CREATE TABLE runs (id INTEGER)`, time.Second); err != nil {
		t.Fatalf("ExecWithTimeout: %v", err)
	}
	res, err := c.ExecWithTimeout(ctx, `INSERT INTO runs VALUES (?), (?)`, time.Second, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res.RowsAffected(); n != 2 {
		t.Errorf("rows affected = %d", n)
	}

	// SQLite has no schemas, so the statement fails and names the schema
	err = c.EnsureSchema(ctx, "results")
	if err == nil || !strings.Contains(err.Error(), "failed to create schema results") {
		t.Errorf("EnsureSchema error = %v", err)
	}
}
