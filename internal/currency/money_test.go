package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRound_HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1.005", "1.01"},
		{"-1.005", "-1.01"},
		{"2.004", "2"},
		{"1300", "1300"},
	}
	for _, tc := range cases {
		got := Round(decimal.RequireFromString(tc.in))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("Round(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestWithinEpsilon(t *testing.T) {
	if !WithinEpsilon(decimal.RequireFromString("0.009")) {
		t.Error("0.009 should be within one cent")
	}
	if !WithinEpsilon(decimal.RequireFromString("-0.0099")) {
		t.Error("-0.0099 should be within one cent")
	}
	if WithinEpsilon(decimal.RequireFromString("0.01")) {
		t.Error("0.01 should not be within one cent")
	}
	if WithinEpsilon(decimal.RequireFromString("-50")) {
		t.Error("-50 should not be within one cent")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(decimal.NewFromInt(8000), decimal.NewFromInt(10000)); got != 80 {
		t.Errorf("expected 80, got %d", got)
	}
	if got := Percent(decimal.Zero, decimal.Zero); got != 0 {
		t.Errorf("expected 0 for zero denominator, got %d", got)
	}
	if got := Percent(decimal.NewFromInt(1), decimal.NewFromInt(8)); got != 13 {
		t.Errorf("expected 12.5 to round to 13, got %d", got)
	}
}
