package extracthtml

import (
	"fmt"
	"strings"
)

// AbbreviationField is the one field name that never goes through a selector:
// Extract delegates it to ParseAbbreviation.
const AbbreviationField = "abbreviation"

// Kind tells the record layer how a raw extracted string should be coerced.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	// KindComposite marks "A-B" style values (records, yard triples) that are
	// kept as strings and split at the point of use.
	KindComposite
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindInt:       "int",
	KindFloat:     "float",
	KindComposite: "composite",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty kind is a string.
func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	if s == "" {
		*k = KindString
		return nil
	}
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", s)
}

// Field is one entry of a field scheme: a logical name bound to a selector.
type Field struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`         // CSS plus :first, :last and :eq(n)
	Attr     string `json:"attr,omitempty"`   // read this attribute instead of the text
	Match    string `json:"match,omitempty"`  // optional regex; group 1 (or the whole match) is kept
	Kind     Kind   `json:"kind,omitempty"`   // coercion applied by Record accessors
	Strip    bool   `json:"strip,omitempty"`  // drop empty matches before indexing
	Column   string `json:"column,omitempty"` // export column name, defaults to Name
}

// ColumnName returns the export column for the field.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// ElementIndex picks which occurrence of a selector a field reads when the same
// selector matches semantically different stats in one fragment (for example
// "HR" hit by batters and "HR" allowed by pitchers).
type ElementIndex map[string]int

// For returns the override for name, or 0. Safe on a nil map.
func (e ElementIndex) For(name string) int {
	return e[name]
}

// SchemeFile describes a scheme JSON file.
type SchemeFile struct {
	Name string `json:"name,omitempty"`

	// Tables lists container selectors (usually `div#all_<id>`) whose comment
	// hidden tables hold the rows. Order matters: rows from later tables are
	// appended to the fragments built from earlier ones.
	Tables []string `json:"tables,omitempty"`

	// RowSelector selects the record rows. With Tables set it defaults to
	// "tbody tr"; without Tables, an empty RowSelector means the whole page is
	// one record.
	RowSelector string `json:"row_selector,omitempty"`

	// KeyField names the field used to group rows into one fragment per entity.
	// Defaults to "abbreviation".
	KeyField string `json:"key_field,omitempty"`

	// SkipRows drops rows whose HTML contains any of these substrings, such as
	// `class="league_average_table"` or the repeated `class="thead"` headers.
	SkipRows []string `json:"skip_rows,omitempty"`

	Fields       []Field      `json:"fields"`
	ElementIndex ElementIndex `json:"element_index,omitempty"`
}

// Key returns the grouping field, defaulting to AbbreviationField.
func (sf *SchemeFile) Key() string {
	if sf == nil || sf.KeyField == "" {
		return AbbreviationField
	}
	return sf.KeyField
}

// Rows returns the row selector used inside each unwrapped table.
func (sf *SchemeFile) Rows() string {
	if sf == nil || sf.RowSelector == "" {
		return "tbody tr"
	}
	return sf.RowSelector
}

// Skip reports whether row matches one of the skip markers.
func (sf *SchemeFile) Skip(row string) bool {
	if sf == nil {
		return false
	}
	for _, m := range sf.SkipRows {
		if m != "" && strings.Contains(row, m) {
			return true
		}
	}
	return false
}
