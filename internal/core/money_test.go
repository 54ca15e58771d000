package core

import "testing"

func TestParseLocaleNumber(t *testing.T) {
	cases := []struct {
		in  string
		out float64
	}{
		{"1,84", 1.84},
		{"1.84", 1.84},
		{"184", 184},
		{"1.234,5", 1234.5},
		{"1,234.5", 1234.5},
		{" 2 % ", 2},
		{",5", 0.5},
		{"abc", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseLocaleNumber(tc.in); got != tc.out {
			t.Fatalf("%q expected %v, got %v", tc.in, tc.out, got)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out Money
	}{
		{"3500000", 3500000},
		{"1.200.000", 1200000},
		{"$ 1.200.000", 1200000},
		{"1,200", 1200},
		{"99,5", 100},
		{"10.25", 10},
		{"-10", -10},
		{"", 0},
		{"abc", 0},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got != tc.out {
			t.Fatalf("%q expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in  string
		out int
	}{
		{"60", 60},
		{" 12 ", 12},
		{"12,7", 12},
		{"-1", -1},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseCount(tc.in); got != tc.out {
			t.Fatalf("%q expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[Money]string{
		0:        "$0",
		999:      "$999",
		1200000:  "$1.200.000",
		-45000:   "-$45.000",
		24200000: "$24.200.000",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Fatalf("%d expected %q, got %q", in, want, got)
		}
	}
}
