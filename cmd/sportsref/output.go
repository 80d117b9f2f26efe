package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sportsref/internal/storage"
	"sportsref/internal/tabular"
)

// print writes rows as a table or as a JSON array. Nil columns means every
// key found in rows, sorted.
func (a *app) print(cmd *cobra.Command, columns []string, rows []map[string]any) error {
	out := cmd.OutOrStdout()
	if a.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []map[string]any{}
		}
		return enc.Encode(rows)
	}

	if columns == nil {
		for _, c := range tabular.InferColumns(rows) {
			columns = append(columns, c.Name)
		}
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, r := range rows {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = tabular.Format(r[c])
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

// printRecord writes one row as field/value pairs.
func (a *app) printRecord(cmd *cobra.Command, row map[string]any) error {
	if a.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(row)
	}
	pairs := make([]map[string]any, 0, len(row))
	for _, c := range tabular.InferColumns([]map[string]any{row}) {
		pairs = append(pairs, map[string]any{"field": c.Name, "value": row[c.Name]})
	}
	return a.print(cmd, []string{"field", "value"}, pairs)
}

// store flattens rows into a table named prefix+name, adds a row hash and
// writes it to the configured backend, deduping on unique.
func (a *app) store(ctx context.Context, name string, rows []map[string]any, unique []string) error {
	sc := a.cfg.Storage
	if sc.Kind == "" {
		return usagef("--store needs storage.kind in the config")
	}
	t := tabular.Flatten(tabular.SanitizeName(sc.TablePrefix+name), tabular.InferColumns(rows), rows)
	if err := (tabular.Hash{TrimSpace: true}).Apply(t); err != nil {
		return err
	}

	repo, err := a.deps.Storage(ctx, storage.Config{Kind: sc.Kind, DSN: sc.DSN})
	if err != nil {
		return fmt.Errorf("open %s storage: %w", sc.Kind, err)
	}
	defer repo.Close()

	n, err := storage.Write(ctx, repo, t, unique, sc.BatchSize)
	if err != nil {
		return err
	}
	a.log.Info("stored rows", "table", t.Name, "kind", sc.Kind, "inserted", n, "rows", len(t.Rows))
	return nil
}
