package extracthtml

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Scheme is an ordered, validated field scheme. Keys are unique and every
// selector compiles.
type Scheme struct {
	fields    []Field
	selectors []compiledSelector
	filters   []*regexp.Regexp
	byName    map[string]int
}

// NewScheme validates fields and builds a Scheme.
func NewScheme(fields []Field) (*Scheme, error) {
	s := &Scheme{
		fields:    make([]Field, 0, len(fields)),
		selectors: make([]compiledSelector, 0, len(fields)),
		filters:   make([]*regexp.Regexp, 0, len(fields)),
		byName:    make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d: missing name", i)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("field %q: duplicate name", f.Name)
		}
		if f.Name == AbbreviationField && f.Selector != "" {
			return nil, fmt.Errorf("field %q: read from the first link, it takes no selector", f.Name)
		}
		var cs compiledSelector
		if f.Name != AbbreviationField {
			var err error
			cs, err = compileSelector(f.Selector)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		re, err := compileOptionalRegex(f.Match, f.Name)
		if err != nil {
			return nil, err
		}
		s.byName[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
		s.selectors = append(s.selectors, cs)
		s.filters = append(s.filters, re)
	}
	return s, nil
}

// MustScheme is NewScheme for static catalogs; it panics on invalid input.
func MustScheme(fields []Field) *Scheme {
	s, err := NewScheme(fields)
	if err != nil {
		panic(fmt.Sprintf("extracthtml: %v", err))
	}
	return s
}

// Lookup returns the field registered under name.
func (s *Scheme) Lookup(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns a copy of the fields in declaration order.
func (s *Scheme) Fields() []Field {
	if s == nil {
		return nil
	}
	return append([]Field(nil), s.fields...)
}

// Names returns the field names in declaration order.
func (s *Scheme) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Len returns the number of fields.
func (s *Scheme) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

func (s *Scheme) selector(name string) (Field, compiledSelector, *regexp.Regexp, bool) {
	if s == nil {
		return Field{}, compiledSelector{}, nil, false
	}
	i, ok := s.byName[name]
	if !ok {
		return Field{}, compiledSelector{}, nil, false
	}
	return s.fields[i], s.selectors[i], s.filters[i], true
}

// compileOptionalRegex compiles pattern, returning nil for an empty pattern.
// Errors name the field so a bad catalog entry is easy to find.
func compileOptionalRegex(pattern, field string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("field %q: invalid match regex: %w", field, err)
	}
	return re, nil
}

// ParseSchemeFile decodes and validates a scheme file body.
func ParseSchemeFile(b []byte) (*SchemeFile, *Scheme, error) {
	var sf SchemeFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, nil, fmt.Errorf("parse scheme json: %w", err)
	}
	s, err := CompileSchemeFile(&sf)
	if err != nil {
		return nil, nil, err
	}
	return &sf, s, nil
}

// CompileSchemeFile validates an already decoded scheme file and builds its
// Scheme.
func CompileSchemeFile(sf *SchemeFile) (*Scheme, error) {
	if len(sf.Fields) == 0 {
		return nil, fmt.Errorf("scheme %q has no fields", sf.Name)
	}
	s, err := NewScheme(sf.Fields)
	if err != nil {
		return nil, fmt.Errorf("scheme %q: %w", sf.Name, err)
	}
	for name := range sf.ElementIndex {
		if _, ok := s.Lookup(name); !ok {
			return nil, fmt.Errorf("scheme %q: element_index names unknown field %q", sf.Name, name)
		}
	}
	for _, t := range sf.Tables {
		if err := ValidateSelector(t); err != nil {
			return nil, fmt.Errorf("scheme %q: table %q: %w", sf.Name, t, err)
		}
	}
	if sf.RowSelector != "" {
		if err := ValidateSelector(sf.RowSelector); err != nil {
			return nil, fmt.Errorf("scheme %q: row_selector: %w", sf.Name, err)
		}
	}
	if sf.KeyField != "" {
		if _, ok := s.Lookup(sf.KeyField); !ok && sf.KeyField != AbbreviationField {
			return nil, fmt.Errorf("scheme %q: key_field names unknown field %q", sf.Name, sf.KeyField)
		}
	}
	return s, nil
}

// LoadSchemeFile loads and validates a JSON scheme file.
func LoadSchemeFile(path string) (*SchemeFile, *Scheme, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read scheme file: %w", err)
	}
	return ParseSchemeFile(b)
}
