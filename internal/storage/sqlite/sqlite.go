// Package sqlite stores tables in a local SQLite file through the pure-Go
// modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"sportsref/internal/storage"
	"sportsref/internal/tabular"
)

var dialect = storage.Dialect{
	Quote: func(name string) string {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	},
	Type: func(t tabular.Type, _ bool) string {
		switch t {
		case tabular.Int, tabular.Bool:
			return "INTEGER"
		case tabular.Float:
			return "REAL"
		}
		return "TEXT"
	},
	Param:     func(int) string { return "?" },
	MaxParams: 32000,
}

// Repo implements storage.Repository. Keyed inserts are INSERT OR IGNORE
// against the table's UNIQUE constraint, which drops repeats within a batch
// and across runs alike.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (creating if needed) the database file at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %s: %w", cfg.DSN, err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		q, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	var total int64
	for _, chunk := range dialect.Chunks(rows, len(columns)) {
		q, args := buildInsertSQL(table, columns, chunk, len(dedupeColumns) > 0)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func buildCreateSQL(t storage.TableSpec) (string, error) {
	defs, err := dialect.ColumnDefs(t)
	if err != nil {
		return "", err
	}
	return "CREATE TABLE IF NOT EXISTS " + dialect.TableName(t.Name) + " (" + defs + ")", nil
}

func buildInsertSQL(table string, columns []string, rows [][]any, ignore bool) (string, []any) {
	verb := "INSERT INTO "
	if ignore {
		verb = "INSERT OR IGNORE INTO "
	}
	values, args := dialect.Values(columns, rows)
	return verb + dialect.TableName(table) + " (" + dialect.List("", columns) + ") VALUES " + values, args
}
