// Package postgres stores tables in Postgres through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sportsref/internal/storage"
	"sportsref/internal/tabular"
)

var dialect = storage.Dialect{
	Quote: func(name string) string { return pgx.Identifier{name}.Sanitize() },
	Table: func(name string) string {
		return pgx.Identifier(strings.Split(strings.TrimSpace(name), ".")).Sanitize()
	},
	Type: func(t tabular.Type, _ bool) string {
		switch t {
		case tabular.Int:
			return "bigint"
		case tabular.Float:
			return "double precision"
		case tabular.Bool:
			return "boolean"
		}
		return "text"
	},
	Param: func(n int) string { return "$" + strconv.Itoa(n) },
	// The protocol allows 65535 bind parameters.
	MaxParams: 65000,
}

// Pool is the part of *pgxpool.Pool the repository uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Repo implements storage.Repository. Keyed inserts end in
// ON CONFLICT (<key>) DO NOTHING, which also covers repeats inside one
// statement.
type Repo struct {
	pool Pool
}

func init() {
	storage.Register("postgres", New)
}

// New opens a pgx pool for cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return NewWithPool(pool), nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(p Pool) *Repo { return &Repo{pool: p} }

func (r *Repo) Close() { r.pool.Close() }

// EnsureTables creates the schema of a qualified name, then the table.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		stmts, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		for _, q := range stmts {
			if _, err := r.pool.Exec(ctx, q); err != nil {
				return fmt.Errorf("create table %s: %w", t.Name, err)
			}
		}
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	var total int64
	for _, chunk := range dialect.Chunks(rows, len(columns)) {
		q, args := buildInsertSQL(table, columns, chunk, dedupeColumns)
		tag, err := r.pool.Exec(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", table, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// buildCreateSQL returns CREATE SCHEMA for "schema.table" names followed by
// CREATE TABLE.
func buildCreateSQL(t storage.TableSpec) ([]string, error) {
	defs, err := dialect.ColumnDefs(t)
	if err != nil {
		return nil, err
	}
	var stmts []string
	if parts := strings.Split(strings.TrimSpace(t.Name), "."); len(parts) == 2 {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+dialect.Quote(strings.TrimSpace(parts[0]))+";")
	}
	return append(stmts, "CREATE TABLE IF NOT EXISTS "+dialect.TableName(t.Name)+" ("+defs+");"), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any, dedupeColumns []string) (string, []any) {
	values, args := dialect.Values(columns, rows)
	q := "INSERT INTO " + dialect.TableName(table) + " (" + dialect.List("", columns) + ") VALUES " + values
	if len(dedupeColumns) > 0 {
		q += " ON CONFLICT (" + dialect.List("", dedupeColumns) + ") DO NOTHING"
	}
	return q + ";", args
}
