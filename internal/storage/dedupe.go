package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeKey renders one key value as text, so 7, int64(7) and " 7" from
// different drivers compare equal.
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// JoinKey joins the normalized values at positions idx of row with sep.
func JoinKey(row []any, idx []int, sep string) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = NormalizeKey(row[j])
	}
	return strings.Join(parts, sep)
}

// DedupeRows drops every row whose dedupeColumns values repeat an earlier
// row. Order is kept. Backends whose statements cannot collapse duplicates
// inside one batch call it before inserting.
func DedupeRows(rows [][]any, columns, dedupeColumns []string) ([][]any, error) {
	if len(dedupeColumns) == 0 {
		return rows, nil
	}
	idx, err := Indices(columns, dedupeColumns)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	kept := make([][]any, 0, len(rows))
	for _, row := range rows {
		k := JoinKey(row, idx, "\x1f")
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, row)
	}
	return kept, nil
}

// Indices maps each name in required to its position in columns.
func Indices(columns, required []string) ([]int, error) {
	out := make([]int, 0, len(required))
	for _, name := range required {
		i := indexOf(columns, name)
		if i < 0 {
			return nil, fmt.Errorf("column %q not found in columns", name)
		}
		out = append(out, i)
	}
	return out, nil
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
