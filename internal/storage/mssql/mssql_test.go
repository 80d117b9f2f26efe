package mssql

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"sportsref/internal/storage"
	"sportsref/internal/tabular"
)

type execCall struct {
	query string
	args  []any
}

type fakeDB struct {
	calls []execCall
}

func (f *fakeDB) ExecContext(_ context.Context, q string, args ...any) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: q, args: args})
	// One placeholder set per row; report every row as inserted.
	return driverResult(strings.Count(q, "(@p")), nil
}

func (f *fakeDB) Close() error { return nil }

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestBuildCreateSQL_KeyColumnsAreBounded(t *testing.T) {
	t.Parallel()

	q, err := buildCreateSQL(storage.TableSpec{
		Name: "dbo.nfl_games",
		Columns: []tabular.Column{
			{Name: "team", Type: tabular.Text},
			{Name: "week", Type: tabular.Int},
			{Name: "result", Type: tabular.Text},
		},
		Unique: []string{"team", "week"},
	})
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	for _, want := range []string{
		"IF OBJECT_ID(N'dbo.nfl_games', N'U') IS NULL",
		"CREATE TABLE [dbo].[nfl_games]",
		"[team] NVARCHAR(450)",
		"[week] BIGINT",
		"[result] NVARCHAR(MAX)",
		"UNIQUE ([team], [week])",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("DDL missing %q: %s", want, q)
		}
	}
}

func TestInsertRows_DedupesWithinBatch(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	repo := &Repo{db: db}
	columns := []string{"team", "week", "result"}
	rows := [][]any{
		{"nwe", int64(1), "L"},
		{"nwe", int64(1), "W"}, // duplicate key, dropped
		{"nwe", int64(2), "W"},
	}
	n, err := repo.InsertRows(context.Background(), "nfl_games", columns, rows, []string{"team", "week"})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2 || len(db.calls) != 1 {
		t.Fatalf("n=%d calls=%d", n, len(db.calls))
	}
	q := db.calls[0].query
	if !strings.Contains(q, "WHERE NOT EXISTS (SELECT 1 FROM [nfl_games] t WHERE t.[team] = v.[team] AND t.[week] = v.[week])") {
		t.Fatalf("query=%s", q)
	}
	if got := db.calls[0].args; len(got) != 6 || got[2] != "L" {
		t.Fatalf("args=%v, want the first duplicate kept", got)
	}

	if _, err := repo.InsertRows(context.Background(), "nfl_games", columns, rows, []string{"missing"}); err == nil {
		t.Fatalf("want error for missing dedupe column")
	}
}

func TestInsertRows_ChunksUnderParameterLimit(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	repo := &Repo{db: db}
	columns := make([]string, 100)
	for i := range columns {
		columns[i] = "c" + strings.Repeat("x", i%3)
	}
	rows := make([][]any, 45)
	for i := range rows {
		rows[i] = make([]any, len(columns))
	}
	n, err := repo.InsertRows(context.Background(), "wide", columns, rows, nil)
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	// 2000/100 = 20 rows per statement.
	if len(db.calls) != 3 || n != 45 {
		t.Fatalf("calls=%d n=%d", len(db.calls), n)
	}
	if q := db.calls[0].query; strings.Contains(q, "NOT EXISTS") || !strings.HasPrefix(q, "INSERT INTO [wide] ([c], [cx], [cxx]") {
		t.Fatalf("plain insert query=%.80s", q)
	}
	if strings.Count(db.calls[2].query, "(@p") != 5 {
		t.Fatalf("last chunk should hold the remaining 5 rows")
	}
}
