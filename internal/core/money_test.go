package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0", 0, false}, // zero allowed: malformed upstream amounts coerce to 0
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{".5", 50, false},
		{"", 0, true},
		{"-1", 0, true},
		{"+1", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"12a", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 150}
	b := Money{Cents: 70}
	if a.Add(b).Cents != 220 {
		t.Fatalf("add failed")
	}
	if a.Sub(b).Cents != 80 {
		t.Fatalf("sub failed")
	}
	if a.Units() != 1.5 {
		t.Fatalf("expected 1.5, got %v", a.Units())
	}
}
