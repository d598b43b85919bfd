package util

import (
	"reflect"
	"testing"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4,123.50", 4123.5, true},
		{` "12 500" `, 12500, true},
		{"-3.2", -3.2, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseNumber(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseWholeNumber(t *testing.T) {
	if v, ok := ParseWholeNumber("14.0"); !ok || v != 14 {
		t.Fatalf("unexpected %d %v", v, ok)
	}
	if _, ok := ParseWholeNumber("14.5"); ok {
		t.Fatalf("expected fractional value to be rejected")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" price, ,bids,")
	if !reflect.DeepEqual(got, []string{"price", "bids"}) {
		t.Fatalf("unexpected %v", got)
	}
	if len(SplitList("")) != 0 {
		t.Fatalf("expected empty list")
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  MCP   (Rs/MWh)\t"); got != "MCP (Rs/MWh)" {
		t.Fatalf("unexpected %q", got)
	}
}
