// Package mssql stores tables in Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"sportsref/internal/storage"
	"sportsref/internal/tabular"
)

func quote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

var dialect = storage.Dialect{
	Quote: quote,
	// "dbo.nfl_games" -> [dbo].[nfl_games]
	Table: func(name string) string {
		parts := strings.Split(name, ".")
		for i, p := range parts {
			parts[i] = quote(strings.TrimSpace(p))
		}
		return strings.Join(parts, ".")
	},
	Type: func(t tabular.Type, key bool) string {
		switch t {
		case tabular.Int:
			return "BIGINT"
		case tabular.Float:
			return "FLOAT"
		case tabular.Bool:
			return "BIT"
		}
		// NVARCHAR(MAX) cannot be indexed; 450 characters fits the 900 byte key limit.
		if key {
			return "NVARCHAR(450)"
		}
		return "NVARCHAR(MAX)"
	},
	Param: func(n int) string { return "@p" + strconv.Itoa(n) },
	// 2100 is the hard limit.
	MaxParams: 2000,
}

// execer is the part of *sql.DB the repository uses.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

var _ execer = (*sql.DB)(nil)

// Repo implements storage.Repository. Keyed inserts select from a VALUES
// table WHERE NOT EXISTS a stored match. That statement does not collapse
// repeats inside its own VALUES list, so rows go through
// storage.DedupeRows first.
type Repo struct {
	db execer
}

func init() {
	storage.Register("mssql", New)
}

// New opens cfg.DSN with the "sqlserver" driver and checks the connection.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(16)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() {
	if r != nil && r.db != nil {
		_ = r.db.Close()
	}
}

// EnsureTables creates each table unless OBJECT_ID already finds it.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		q, err := buildCreateSQL(t)
		if err != nil {
			return fmt.Errorf("mssql: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	rows, err := storage.DedupeRows(rows, columns, dedupeColumns)
	if err != nil {
		return 0, fmt.Errorf("mssql: %w", err)
	}
	var total int64
	for _, chunk := range dialect.Chunks(rows, len(columns)) {
		q, args := buildInsertSQL(table, columns, chunk, dedupeColumns)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("mssql: insert into %s: %w", table, err)
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
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(t.Name, "'", "''"), dialect.TableName(t.Name), defs), nil
}

// buildInsertSQL renders a plain multi-row INSERT, or with dedupeColumns an
// INSERT ... SELECT from the VALUES table v skipping keys already in t.
func buildInsertSQL(table string, columns []string, rows [][]any, dedupeColumns []string) (string, []any) {
	target := dialect.TableName(table)
	cols := dialect.List("", columns)
	values, args := dialect.Values(columns, rows)
	if len(dedupeColumns) == 0 {
		return "INSERT INTO " + target + " (" + cols + ") VALUES " + values, args
	}

	match := make([]string, len(dedupeColumns))
	for i, c := range dedupeColumns {
		match[i] = "t." + quote(c) + " = v." + quote(c)
	}
	return "INSERT INTO " + target + " (" + cols + ") SELECT " + dialect.List("v.", columns) +
		" FROM (VALUES " + values + ") AS v(" + cols + ")" +
		" WHERE NOT EXISTS (SELECT 1 FROM " + target + " t WHERE " + strings.Join(match, " AND ") + ")", args
}
