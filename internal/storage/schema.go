package storage

import (
	"fmt"
	"strings"

	"sportsref/internal/tabular"
)

// TableSpec describes a table to create. Column types are logical; each
// backend maps them to its own DDL.
type TableSpec struct {
	Name    string
	Columns []tabular.Column

	// Unique is the natural key. Backends create a UNIQUE constraint (or use
	// it as the item key) and dedupe inserts on it.
	Unique []string
}

// SpecFor derives a TableSpec from a flattened table.
func SpecFor(t *tabular.Table, unique ...string) (TableSpec, error) {
	if strings.TrimSpace(t.Name) == "" {
		return TableSpec{}, fmt.Errorf("table name is empty")
	}
	for _, u := range unique {
		if _, ok := t.Index(u); !ok {
			return TableSpec{}, fmt.Errorf("table %s: unique column %q not present", t.Name, u)
		}
	}
	return TableSpec{Name: t.Name, Columns: t.Columns, Unique: unique}, nil
}
