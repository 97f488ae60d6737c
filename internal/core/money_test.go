package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"-50.00", "-50", true},
		{"12,34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestPercentageZeroGuard(t *testing.T) {
	if got := Percentage(decimal.NewFromInt(5), decimal.Zero); !got.IsZero() {
		t.Fatalf("percentage over zero = %s", got)
	}
	if got := PercentageFloat(decimal.NewFromInt(95), decimal.NewFromInt(100)); got != 95 {
		t.Fatalf("percentage = %v, want 95", got)
	}
}
