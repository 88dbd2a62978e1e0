package reconcile

import (
	"math/big"
	"testing"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"5000000", 6, "5.000000"},
		{"995000", 6, "0.995000"},
		{"0", 6, "0.000000"},
		{"-100", 2, "-1.00"},
		{"12345", 0, "12345"},
		{"1", 18, "0.000000000000000001"},
	}
	for _, tt := range tests {
		raw, ok := new(big.Int).SetString(tt.raw, 10)
		if !ok {
			t.Fatalf("bad fixture %q", tt.raw)
		}
		if got := formatAmount(raw, tt.decimals); got != tt.want {
			t.Errorf("formatAmount(%s, %d) = %q, want %q", tt.raw, tt.decimals, got, tt.want)
		}
	}
}

func TestRescaleRoundTrip(t *testing.T) {
	tests := []struct {
		raw      string
		decimals uint8
	}{
		{"5000000", 6},
		{"999999999999999999", 18},
		{"7", 77},
		{"123456789", 8},
	}
	for _, tt := range tests {
		raw, ok := new(big.Int).SetString(tt.raw, 10)
		if !ok {
			t.Fatalf("bad fixture %q", tt.raw)
		}
		human := humanRat(raw, tt.decimals)
		back := new(big.Rat).Mul(human, new(big.Rat).SetInt(pow10(tt.decimals)))
		if !back.IsInt() || back.Num().Cmp(raw) != 0 {
			t.Errorf("rescale %s at %d decimals did not round trip: got %s", tt.raw, tt.decimals, back.RatString())
		}
	}
}

func TestParseRawAmountRejectsJunk(t *testing.T) {
	for _, bad := range []string{"", "1.5", "0x10", "abc", "1e6"} {
		if _, err := parseRawAmount(bad); err == nil {
			t.Errorf("parseRawAmount(%q) accepted invalid input", bad)
		}
	}
}

func TestMulPercent(t *testing.T) {
	fee := big.NewRat(5, 1000)
	input := big.NewRat(1, 1)
	if got := percentString(mulPercent(fee, input)); got != "0.500000" {
		t.Errorf("percent = %q, want 0.500000", got)
	}
}
