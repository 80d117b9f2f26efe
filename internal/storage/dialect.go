package storage

import (
	"fmt"
	"strings"

	"sportsref/internal/tabular"
)

// Dialect holds what differs between the SQL backends; the statement shapes
// they share are built from it.
type Dialect struct {
	// Quote quotes a single identifier.
	Quote func(name string) string

	// Table quotes a table name that may be schema qualified. Nil means
	// Quote.
	Table func(name string) string

	// Type maps a logical column type to DDL. key is set for columns in the
	// table's unique key.
	Type func(t tabular.Type, key bool) string

	// Param renders the n-th bind parameter, counting from 1.
	Param func(n int) string

	// MaxParams caps bind parameters per statement.
	MaxParams int
}

// TableName quotes name for use in a statement.
func (d Dialect) TableName(name string) string {
	if d.Table != nil {
		return d.Table(name)
	}
	return d.Quote(name)
}

// ColumnDefs renders the body of CREATE TABLE: one definition per column and
// a UNIQUE constraint over t.Unique.
func (d Dialect) ColumnDefs(t TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s: no columns", t.Name)
	}
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		defs = append(defs, d.Quote(c.Name)+" "+d.Type(c.Type, indexOf(t.Unique, c.Name) >= 0))
	}
	if len(t.Unique) > 0 {
		defs = append(defs, "UNIQUE ("+d.List("", t.Unique)+")")
	}
	return strings.Join(defs, ", "), nil
}

// List quotes columns, prefixes each with prefix and joins them with ", ".
func (d Dialect) List(prefix string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = prefix + d.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

// Values renders the row tuples of a VALUES list and the matching args.
func (d Dialect) Values(columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, row[j])
			b.WriteString(d.Param(len(args)))
		}
		b.WriteByte(')')
	}
	return b.String(), args
}

// Chunks splits rows so no statement binds more than MaxParams values.
func (d Dialect) Chunks(rows [][]any, width int) [][][]any {
	per := max(1, d.MaxParams/max(1, width))
	var out [][][]any
	for start := 0; start < len(rows); start += per {
		out = append(out, rows[start:min(start+per, len(rows))])
	}
	return out
}
