package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"sportsref/internal/storage"
	"sportsref/internal/tabular"
)

func TestBuildCreateSQL_QualifiedName(t *testing.T) {
	t.Parallel()

	stmts, err := buildCreateSQL(storage.TableSpec{
		Name: "stats.mlb_teams",
		Columns: []tabular.Column{
			{Name: "abbreviation", Type: tabular.Text},
			{Name: "wins", Type: tabular.Int},
			{Name: "batting_average", Type: tabular.Float},
		},
		Unique: []string{"abbreviation"},
	})
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	if len(stmts) != 2 || stmts[0] != `CREATE SCHEMA IF NOT EXISTS "stats";` {
		t.Fatalf("stmts=%q", stmts)
	}
	tableSQL := stmts[1]
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "stats"."mlb_teams"`,
		`"wins" bigint`,
		`"batting_average" double precision`,
		`UNIQUE ("abbreviation")`,
	} {
		if !strings.Contains(tableSQL, want) {
			t.Fatalf("tableSQL missing %q: %s", want, tableSQL)
		}
	}
}

func TestBuildCreateSQL_Unqualified(t *testing.T) {
	t.Parallel()

	stmts, err := buildCreateSQL(storage.TableSpec{
		Name:    "nba_boxscores",
		Columns: []tabular.Column{{Name: "uri", Type: tabular.Text}, {Name: "overtime", Type: tabular.Bool}},
	})
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	want := `CREATE TABLE IF NOT EXISTS "nba_boxscores" ("uri" text, "overtime" boolean);`
	if len(stmts) != 1 || stmts[0] != want {
		t.Fatalf("stmts=%q\nwant %q", stmts, want)
	}

	if _, err := buildCreateSQL(storage.TableSpec{Name: "empty"}); err == nil {
		t.Fatalf("want error for a table without columns")
	}
}

func TestBuildInsertSQL_PlaceholdersAndConflict(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("games", []string{"team", "game"}, [][]any{{"HOU", 1}, {"HOU", 2}}, []string{"team", "game"})
	want := `INSERT INTO "games" ("team", "game") VALUES ($1, $2), ($3, $4) ON CONFLICT ("team", "game") DO NOTHING;`
	if q != want {
		t.Fatalf("q=%s\nwant %s", q, want)
	}
	if len(args) != 4 || args[2] != "HOU" || args[3] != 2 {
		t.Fatalf("args=%v", args)
	}

	q, _ = buildInsertSQL("games", []string{"team"}, [][]any{{"HOU"}}, nil)
	if strings.Contains(q, "ON CONFLICT") {
		t.Fatalf("plain insert has ON CONFLICT: %s", q)
	}
}

func TestRepo_WriteThroughMockPool(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	defer mock.Close()

	tbl := tabular.Flatten("mlb_teams",
		[]tabular.Column{{Name: "abbreviation", Type: tabular.Text}, {Name: "wins", Type: tabular.Int}},
		[]map[string]any{{"abbreviation": "HOU", "wins": 101}, {"abbreviation": "BOS", "wins": 93}})

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "mlb_teams" ("abbreviation" text, "wins" bigint, UNIQUE ("abbreviation"));`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(`INSERT INTO "mlb_teams" ("abbreviation", "wins") VALUES ($1, $2), ($3, $4) ON CONFLICT ("abbreviation") DO NOTHING;`).
		WithArgs("HOU", 101, "BOS", 93).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	n, err := storage.Write(context.Background(), NewWithPool(mock), tbl, []string{"abbreviation"}, 0)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 2 {
		t.Fatalf("n=%d, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepo_EnsureTablesWrapsErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err = NewWithPool(mock).EnsureTables(context.Background(), []storage.TableSpec{{
		Name:    "nfl_boxscores",
		Columns: []tabular.Column{{Name: "uri", Type: tabular.Text}},
	}})
	if err == nil || !strings.Contains(err.Error(), "create table nfl_boxscores") {
		t.Fatalf("err=%v", err)
	}
}
