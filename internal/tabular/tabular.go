// Package tabular turns extracted records into fixed-shape rows for output
// and storage.
package tabular

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sportsref/internal/extracthtml"
)

// Type is the logical type of a column. Storage backends map it to their
// own column types.
type Type string

const (
	Text  Type = "text"
	Int   Type = "int"
	Float Type = "float"
	Bool  Type = "bool"
)

// Column is one named, typed output column.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Table is a named set of rows sharing Columns. Every row has exactly
// len(Columns) values; missing values are nil.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of column name.
func (t *Table) Index(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// TypeOf maps a field kind to a column type. Composites stay text.
func TypeOf(k extracthtml.Kind) Type {
	switch k {
	case extracthtml.KindInt:
		return Int
	case extracthtml.KindFloat:
		return Float
	default:
		return Text
	}
}

// ColumnsFor returns leading columns followed by one column per scheme field.
// A field whose column name is already present is skipped.
func ColumnsFor(fields []extracthtml.Field, leading ...Column) []Column {
	out := append([]Column(nil), leading...)
	seen := make(map[string]bool, len(out)+len(fields))
	for _, c := range out {
		seen[c.Name] = true
	}
	for _, f := range fields {
		name := f.ColumnName()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Column{Name: name, Type: TypeOf(f.Kind)})
	}
	return out
}

// InferColumns builds columns from the union of keys in rows, sorted by name.
// A column is Int or Float only if every non-nil value agrees.
func InferColumns(rows []map[string]any) []Column {
	types := map[string]Type{}
	for _, row := range rows {
		for k, v := range row {
			t := typeOfValue(v)
			prev, ok := types[k]
			switch {
			case !ok || prev == "":
				types[k] = t
			case t == "" || t == prev:
			case prev == Int && t == Float, prev == Float && t == Int:
				types[k] = Float
			default:
				types[k] = Text
			}
		}
	}
	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]Column, len(names))
	for i, n := range names {
		t := types[n]
		if t == "" {
			t = Text
		}
		out[i] = Column{Name: n, Type: t}
	}
	return out
}

func typeOfValue(v any) Type {
	switch v.(type) {
	case nil:
		return ""
	case int, int32, int64:
		return Int
	case float32, float64:
		return Float
	case bool:
		return Bool
	default:
		return Text
	}
}

// Flatten projects rows onto columns. Keys not in columns are dropped and
// absent keys become nil.
func Flatten(name string, columns []Column, rows []map[string]any) *Table {
	t := &Table{Name: name, Columns: columns, Rows: make([][]any, 0, len(rows))}
	for _, m := range rows {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = m[c.Name]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Format renders a cell for text output. Nil is the empty string.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// SanitizeName lowercases s and replaces anything outside [a-z0-9_] with
// '_', producing a name usable as a table or column identifier.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
