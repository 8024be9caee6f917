package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 500 ", "500", true},
		{"0.01", "0.01", true},
		{"0", "", false},
		{"-5", "", false},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("%q: got %s, want %s", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q: expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestParseBalance(t *testing.T) {
	got, err := ParseBalance("-54619.24")
	if err != nil {
		t.Fatalf("negative balances are valid: %v", err)
	}
	if got.String() != "-54619.24" {
		t.Fatalf("got %s", got)
	}
	if got, err := ParseBalance(""); err != nil || !got.IsZero() {
		t.Fatalf("empty balance should read as zero, got (%s, %v)", got, err)
	}
	if _, err := ParseBalance("x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(dec("1410")); got != "1410.00" {
		t.Fatalf("got %s", got)
	}
	if got := FormatAmount(dec("-0.5")); got != "-0.50" {
		t.Fatalf("got %s", got)
	}
}
