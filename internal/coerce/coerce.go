// Package coerce turns extracted text into typed values.
//
// Every function takes the (raw, ok) pair produced by the extraction engine.
// A missing value, an empty string or a parse failure yields nil: "no data" is
// kept distinct from zero. Composite "A-B" values follow the same policy, so an
// out-of-range part is nil rather than a panic.
package coerce

import (
	"strconv"
	"strings"
)

var stripNumeric = strings.NewReplacer("%", "", "$", "", ",", "", "+", "")

// Clean removes the decorations the site puts on numbers (`%`, `$`, `,`, `+`)
// and surrounding space.
func Clean(raw string) string {
	return strings.TrimSpace(stripNumeric.Replace(raw))
}

// Coerce applies parse to the cleaned raw value and returns a pointer to the
// result, or nil when raw is missing, empty or unparseable.
func Coerce[T any](raw string, ok bool, parse func(string) (T, error)) *T {
	if !ok {
		return nil
	}
	s := Clean(raw)
	if s == "" {
		return nil
	}
	v, err := parse(s)
	if err != nil {
		return nil
	}
	return &v
}

// Int coerces raw to an int.
func Int(raw string, ok bool) *int {
	return Coerce(raw, ok, strconv.Atoi)
}

// Float coerces raw to a float64.
func Float(raw string, ok bool) *float64 {
	return Coerce(raw, ok, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// IntOr is Int with a default for the fields where "no data" means zero,
// such as inherited runners.
func IntOr(raw string, ok bool, def int) int {
	if v := Int(raw, ok); v != nil {
		return *v
	}
	return def
}

// FloatOr is Float with a default.
func FloatOr(raw string, ok bool, def float64) float64 {
	if v := Float(raw, ok); v != nil {
		return *v
	}
	return def
}

// Parts splits a composite value such as "10-6" or "2--7". A doubled dash,
// printed for negative parts, collapses to one separator; the sign is not kept.
func Parts(raw string, ok bool) []string {
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(raw, "--", "-"), "-")
}

// Part returns the idx-th element of a composite value.
func Part(raw string, ok bool, idx int) (string, bool) {
	parts := Parts(raw, ok)
	if idx < 0 || idx >= len(parts) {
		return "", false
	}
	return strings.TrimSpace(parts[idx]), true
}

// PartInt returns the idx-th element of a composite value as an int.
func PartInt(raw string, ok bool, idx int) *int {
	return Int(Part(raw, ok, idx))
}

// Record splits a "W-L" or "W-L-T" record into wins and losses.
func Record(raw string, ok bool) (wins, losses *int) {
	return PartInt(raw, ok, 0), PartInt(raw, ok, 1)
}

// Ptr is a convenience for building optional values in tests and catalogs.
func Ptr[T any](v T) *T {
	return &v
}
