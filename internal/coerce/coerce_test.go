package coerce

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		ok   bool
		want *int
	}{
		{name: "plain", raw: "101", ok: true, want: Ptr(101)},
		{name: "thousands", raw: "2,341,120", ok: true, want: Ptr(2341120)},
		{name: "plus_sign", raw: "+12", ok: true, want: Ptr(12)},
		{name: "negative", raw: "-3", ok: true, want: Ptr(-3)},
		{name: "zero_is_value", raw: "0", ok: true, want: Ptr(0)},
		{name: "padded", raw: "  7 ", ok: true, want: Ptr(7)},
		{name: "missing", raw: "", ok: false, want: nil},
		{name: "empty", raw: "", ok: true, want: nil},
		{name: "garbage", raw: "n/a", ok: true, want: nil},
		{name: "float_text", raw: "1.5", ok: true, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Int(tc.raw, tc.ok)); diff != "" {
				t.Fatalf("Int(%q,%v) mismatch (-want +got):\n%s", tc.raw, tc.ok, diff)
			}
		})
	}
}

func TestFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		ok   bool
		want *float64
	}{
		{"61.3%", true, Ptr(61.3)},
		{"$1,250.50", true, Ptr(1250.5)},
		{".512", true, Ptr(0.512)},
		{"", true, nil},
		{"", false, nil},
		{"--", true, nil},
	}

	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, Float(tc.raw, tc.ok)); diff != "" {
			t.Fatalf("Float(%q,%v) mismatch (-want +got):\n%s", tc.raw, tc.ok, diff)
		}
	}
}

func TestIntOr_DefaultsOnlyWhenMissing(t *testing.T) {
	t.Parallel()

	if got := IntOr("", false, 0); got != 0 {
		t.Fatalf("IntOr missing: got %d want 0", got)
	}
	if got := IntOr("x", true, 0); got != 0 {
		t.Fatalf("IntOr garbage: got %d want 0", got)
	}
	if got := IntOr("4", true, 0); got != 4 {
		t.Fatalf("IntOr value: got %d want 4", got)
	}
	if got := FloatOr("", true, 1.5); got != 1.5 {
		t.Fatalf("FloatOr default: got %v want 1.5", got)
	}
}

func TestParts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{"10-6", []string{"10", "6"}},
		{"31-123-1", []string{"31", "123", "1"}},
		{"2--7", []string{"2", "7"}},
		{"", nil},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, Parts(tc.raw, true)); diff != "" {
			t.Fatalf("Parts(%q) mismatch (-want +got):\n%s", tc.raw, diff)
		}
	}
	if Parts("10-6", false) != nil {
		t.Fatalf("Parts on missing value should be nil")
	}
}

func TestPart_OutOfRangeIsMissing(t *testing.T) {
	t.Parallel()

	if _, ok := Part("10-6", true, 2); ok {
		t.Fatalf("index 2 of a two-part record should be missing")
	}
	if _, ok := Part("10-6", true, -1); ok {
		t.Fatalf("negative index should be missing")
	}
	if got := PartInt("31-123-1", true, 1); got == nil || *got != 123 {
		t.Fatalf("PartInt: got %v want 123", got)
	}
	if got := PartInt("W-L", true, 0); got != nil {
		t.Fatalf("PartInt on non-numeric part: got %v want nil", *got)
	}
}

func TestRecord(t *testing.T) {
	t.Parallel()

	w, l := Record("93-69", true)
	if w == nil || l == nil || *w != 93 || *l != 69 {
		t.Fatalf("Record(93-69) = %v,%v", w, l)
	}

	w, l = Record("", false)
	if w != nil || l != nil {
		t.Fatalf("Record on missing value should be nil,nil")
	}

	w, l = Record("12", true)
	if w == nil || *w != 12 || l != nil {
		t.Fatalf("Record(12) should give wins only, got %v,%v", w, l)
	}
}
