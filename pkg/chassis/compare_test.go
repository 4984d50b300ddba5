package chassis

import (
	"sort"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		" alb 36 ": "ALB36",
		"20755":    "20755",
		"scb\tz 1": "SCBZ1",
		"":         "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"numeric by value", "9", "10", -1},
		{"numeric equal", "20755", "20755", 0},
		{"numeric larger", "25000", "20000", 1},
		{"alpha prefix numeric suffix", "ALB36", "ALB100", -1},
		{"alpha prefix above lower", "ALB36", "ALB1", 1},
		{"case and space insensitive", "alb 36", "ALB36", 0},
		{"different families", "ALB36", "BLB1", -1},
		{"numeric before alpha", "99999", "A1", -1},
		{"mixed trailing letters", "ALB36X", "ALB36", 1},
		{"mixed inner runs", "SCBZE1234X2", "SCBZE1234X10", -1},
		{"leading zeros tie broken", "ALB036", "ALB36", -1},
		{"huge numbers do not overflow", "123456789012345678901234567890", "123456789012345678901234567891", -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Compare(tc.a, tc.b); got != tc.want {
				t.Fatalf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
			if got := Compare(tc.b, tc.a); got != -tc.want {
				t.Fatalf("Compare(%q, %q) = %d, want %d", tc.b, tc.a, got, -tc.want)
			}
		})
	}
}

func TestCompareSortsNaturally(t *testing.T) {
	codes := []string{"ALB100", "20755", "ALB1", "ALB36", "3000", "LBH2", "ALB36A"}
	sort.Slice(codes, func(i, j int) bool { return Less(codes[i], codes[j]) })
	want := []string{"3000", "20755", "ALB1", "ALB36", "ALB36A", "ALB100", "LBH2"}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", codes, want)
		}
	}
}

func TestParts(t *testing.T) {
	prefix, number, rest, ok := Parts("scbze1234x")
	if !ok || prefix != "SCBZE" || number != "1234" || rest != "X" {
		t.Fatalf("Parts = %q %q %q %v", prefix, number, rest, ok)
	}
	if _, _, _, ok := Parts("ABC"); ok {
		t.Fatalf("expected no numeric part")
	}
}

func ptr(s string) *string { return &s }

func TestIntervalContains(t *testing.T) {
	tests := []struct {
		name string
		iv   Interval
		code string
		want bool
	}{
		{"numeric inside", NewInterval(ptr("20000"), ptr("25000")), "20755", true},
		{"numeric below", NewInterval(ptr("20000"), ptr("25000")), "19999", false},
		{"reflexive start", NewInterval(ptr("20000"), ptr("25000")), "20000", true},
		{"reflexive end", NewInterval(ptr("20000"), ptr("25000")), "25000", true},
		{"alpha natural", NewInterval(ptr("ALB1"), ptr("ALB100")), "ALB36", true},
		{"alpha not lexicographic", NewInterval(ptr("ALB1"), ptr("ALB100")), "ALB200", false},
		{"open end same family", NewInterval(ptr("ALB50"), nil), "ALB9000", true},
		{"open end other family", NewInterval(ptr("ALB50"), nil), "ZZZ1", false},
		{"open start numeric", NewInterval(nil, ptr("30000")), "12", true},
		{"open start rejects alpha", NewInterval(nil, ptr("30000")), "ALB1", false},
		{"universal", NewInterval(nil, nil), "ANYTHING1", true},
		{"empty strings are open", NewInterval(ptr(""), ptr(" ")), "X1", true},
		{"blank code", NewInterval(nil, nil), " ", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.iv.Contains(tc.code); got != tc.want {
				t.Fatalf("%s.Contains(%q) = %v, want %v", tc.iv, tc.code, got, tc.want)
			}
		})
	}
}

func TestIntervalValidate(t *testing.T) {
	if err := NewInterval(ptr("ALB100"), ptr("ALB36")).Validate(); err == nil {
		t.Fatalf("expected inverted interval to fail")
	}
	if err := NewInterval(ptr("ALB36"), ptr("ALB100")).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NewInterval(ptr("ALB36"), nil).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
