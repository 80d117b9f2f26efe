package extracthtml

import (
	"encoding/json"

	"sportsref/internal/coerce"
)

// Record holds the raw values read from one fragment, keyed by field name.
// Fields that produced no value are absent; accessors report them as missing
// (nil for the typed ones).
type Record struct {
	scheme *Scheme
	values map[string]string
}

// ParseRecord reads every field of s from f. Each field is read at the
// occurrence given by idx (0 when absent) with the field's own Strip flag.
// The loop is driven by the scheme's declared field order.
func ParseRecord(s *Scheme, f *Fragment, idx ElementIndex) Record {
	rec := Record{scheme: s, values: make(map[string]string, s.Len())}
	for _, field := range s.Fields() {
		if v, ok := Extract(s, f, field.Name, idx.For(field.Name), field.Strip); ok {
			rec.values[field.Name] = v
		}
	}
	return rec
}

// NewRecord builds a record from already extracted values. It is used by
// callers that merge values from several fragments.
func NewRecord(s *Scheme, values map[string]string) Record {
	rec := Record{scheme: s, values: make(map[string]string, len(values))}
	for k, v := range values {
		rec.values[k] = v
	}
	return rec
}

// Fields returns the scheme fields the record was read with.
func (r Record) Fields() []Field {
	return r.scheme.Fields()
}

// Len returns the number of fields that produced a value.
func (r Record) Len() int {
	return len(r.values)
}

// Get returns the raw value of name.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// String returns the raw value of name, or "".
func (r Record) String(name string) string {
	return r.values[name]
}

// Int coerces name to an int.
func (r Record) Int(name string) *int {
	return coerce.Int(r.Get(name))
}

// IntOr coerces name to an int with a default for missing values.
func (r Record) IntOr(name string, def int) int {
	return coerce.IntOr(r.values[name], r.has(name), def)
}

// Float coerces name to a float64.
func (r Record) Float(name string) *float64 {
	return coerce.Float(r.Get(name))
}

// Part returns element idx of the composite value of name.
func (r Record) Part(name string, idx int) (string, bool) {
	return coerce.Part(r.values[name], r.has(name), idx)
}

// PartInt returns element idx of the composite value of name as an int.
func (r Record) PartInt(name string, idx int) *int {
	return coerce.PartInt(r.values[name], r.has(name), idx)
}

func (r Record) has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Value returns name coerced according to the field's Kind. Missing values
// and coercion failures are nil.
func (r Record) Value(name string) any {
	raw, ok := r.Get(name)
	if !ok {
		return nil
	}
	field, _ := r.scheme.Lookup(name)
	switch field.Kind {
	case KindInt:
		if v := coerce.Int(raw, true); v != nil {
			return *v
		}
		return nil
	case KindFloat:
		if v := coerce.Float(raw, true); v != nil {
			return *v
		}
		return nil
	default:
		return raw
	}
}

// Map returns every scheme field keyed by its column name, with typed values.
// Missing fields map to nil so that rows keep a fixed shape.
func (r Record) Map() map[string]any {
	out := make(map[string]any, r.scheme.Len())
	for _, f := range r.scheme.Fields() {
		out[f.ColumnName()] = r.Value(f.Name)
	}
	return out
}

// MarshalJSON encodes the record as its Map.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
