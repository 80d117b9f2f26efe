package extracthtml

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Compose appends row to an existing fragment text. An empty existing text
// starts a new fragment.
func Compose(existing, row string) string {
	return existing + row
}

// Accumulator gathers the rows of each entity into one fragment, keyed by an
// identifier such as a team abbreviation. Keys keep their first-insertion
// order. Two different entities sharing a key are merged without warning.
type Accumulator struct {
	order   []string
	entries map[string]*accEntry
}

type accEntry struct {
	text strings.Builder
	rank int
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{entries: make(map[string]*accEntry)}
}

// Add appends row to key's fragment. The first Add for a key records rank;
// later ones keep it. It reports whether key was new.
func (a *Accumulator) Add(key, row string, rank int) bool {
	if e, ok := a.entries[key]; ok {
		e.text.WriteString(row)
		return false
	}
	e := &accEntry{rank: rank}
	e.text.WriteString(row)
	a.entries[key] = e
	a.order = append(a.order, key)
	return true
}

// Keys returns the keys in first-insertion order.
func (a *Accumulator) Keys() []string {
	return append([]string(nil), a.order...)
}

// Len returns the number of keys.
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Raw returns the composed text for key.
func (a *Accumulator) Raw(key string) (string, bool) {
	e, ok := a.entries[key]
	if !ok {
		return "", false
	}
	return e.text.String(), true
}

// Fragment returns key's composed text as a Fragment, or nil.
func (a *Accumulator) Fragment(key string) *Fragment {
	raw, ok := a.Raw(key)
	if !ok {
		return nil
	}
	return NewFragment(raw)
}

// Rank returns the rank recorded by key's first row, or 0.
func (a *Accumulator) Rank(key string) int {
	if e, ok := a.entries[key]; ok {
		return e.rank
	}
	return 0
}

// ComposeTables runs the bulk pass over one page: for each table container in
// sf.Tables, in declared order, it unwraps the table, drops skipped rows and
// adds every row under the value of sf.Key(). Rank is the 1-based row position
// within the table where a key first appears. Rows without a key are ignored,
// as are containers missing from the page.
func ComposeTables(page *goquery.Selection, sf *SchemeFile, s *Scheme, acc *Accumulator) error {
	for _, table := range sf.Tables {
		if _, err := ComposeTable(page, table, sf, s, acc); err != nil {
			return err
		}
	}
	return nil
}

// ComposeTable is ComposeTables for a single container, for schemes whose
// tables live on different pages. It reports whether the container was found.
func ComposeTable(page *goquery.Selection, table string, sf *SchemeFile, s *Scheme, acc *Accumulator) (bool, error) {
	rows, found, err := StatsTable(page, table, sf.Rows())
	if err != nil {
		return false, fmt.Errorf("table %s: %w", table, err)
	}
	addRows(rows, sf, s, acc)
	return found, nil
}

func addRows(rows []string, sf *SchemeFile, s *Scheme, acc *Accumulator) {
	rank := 1
	for _, row := range rows {
		if sf.Skip(row) {
			continue
		}
		key, ok := Extract(s, NewFragment(row), sf.Key(), 0, true)
		if !ok || key == "" {
			continue
		}
		acc.Add(key, row, rank)
		rank++
	}
}

// Records parses every accumulated fragment into a Record, in key order.
func (a *Accumulator) Records(s *Scheme, idx ElementIndex) []Record {
	out := make([]Record, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, ParseRecord(s, a.Fragment(k), idx))
	}
	return out
}
