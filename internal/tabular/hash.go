package tabular

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RowHashColumn is where Hash.Apply writes by default.
const RowHashColumn = "row_hash"

const (
	hashSep = "\x1f"
	hashNil = "\x00"
)

// Hash derives a stable SHA-256 key from a row, for tables such as a team
// schedule whose natural key columns may be empty. Values are written in
// Fields order separated by 0x1f; nil and missing values write a NUL byte so
// they differ from "", and times are written as UTC RFC 3339. The result is
// 64 lowercase hex characters.
type Hash struct {
	Fields []string

	// Target defaults to RowHashColumn.
	Target string

	// IncludeFieldNames writes each value as "field=value".
	IncludeFieldNames bool

	// TrimSpace trims text before hashing.
	TrimSpace bool
}

// Apply sets the target column of every row of t, adding the column if
// needed. Without Fields every other column is hashed.
func (h Hash) Apply(t *Table) error {
	target := h.Target
	if target == "" {
		target = RowHashColumn
	}
	fields := h.Fields
	if len(fields) == 0 {
		for _, c := range t.Columns {
			if c.Name != target {
				fields = append(fields, c.Name)
			}
		}
	}
	src := make([]int, len(fields))
	for i, f := range fields {
		j, ok := t.Index(f)
		if !ok {
			return fmt.Errorf("hash: column %q not in table %s", f, t.Name)
		}
		src[i] = j
	}
	dst, ok := t.Index(target)
	if !ok {
		t.Columns = append(t.Columns, Column{Name: target, Type: Text})
		dst = len(t.Columns) - 1
	}

	for r, row := range t.Rows {
		sum := h.digest(fields, func(i int) any { return row[src[i]] })
		for len(row) <= dst {
			row = append(row, nil)
		}
		row[dst] = sum
		t.Rows[r] = row
	}
	return nil
}

// Sum hashes values, reading Fields from the map.
func (h Hash) Sum(values map[string]any) string {
	return h.digest(h.Fields, func(i int) any { return values[h.Fields[i]] })
}

func (h Hash) digest(fields []string, value func(i int) any) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString(hashSep)
		}
		if h.IncludeFieldNames {
			b.WriteString(f + "=")
		}
		b.WriteString(h.canonical(value(i)))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (h Hash) canonical(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return hashNil
	case string:
		s = t
	case []byte:
		s = string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		if !t.IsZero() {
			t = t.UTC()
		}
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
	if h.TrimSpace {
		s = strings.TrimSpace(s)
	}
	return s
}
