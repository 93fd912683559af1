package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"2000", 200000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"10000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		m    Money
		want string
	}{
		{Money{Cents: 2000}, "20.00"},
		{Money{Cents: 5}, "0.05"},
		{Money{Cents: -198000}, "-1980.00"},
		{Money{}, "0.00"},
	}
	for _, tc := range cases {
		b, err := tc.m.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal %d: %v", tc.m.Cents, err)
		}
		if string(b) != tc.want {
			t.Errorf("MarshalJSON(%d) = %s, want %s", tc.m.Cents, b, tc.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 150}
	b := Money{Cents: 275}
	if got := a.Add(b); got.Cents != 425 {
		t.Errorf("Add = %d, want 425", got.Cents)
	}
	if got := a.Sub(b); got.Cents != -125 {
		t.Errorf("Sub = %d, want -125", got.Cents)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Errorf("expected error for zero")
	}
}
