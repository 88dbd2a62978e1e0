package reconcile

import (
	"fmt"
	"math/big"
)

const (
	// percentScale fixes the rendered precision of fee and slippage percents.
	percentScale = 6
	usdScale     = 2
	weiDecimals  = 18
)

func parseRawAmount(value string) (*big.Int, error) {
	val, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid raw amount %q", value)
	}
	return val, nil
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// humanRat returns value / 10^decimals as an exact rational.
func humanRat(value *big.Int, decimals uint8) *big.Rat {
	return new(big.Rat).SetFrac(value, pow10(decimals))
}

// formatAmount renders a raw integer amount as a human decimal string with
// exactly `decimals` fractional digits, sign preserved. Rendering keeps full
// precision so rescaled amounts multiply back to the raw value exactly.
func formatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	rat := new(big.Rat).SetFrac(abs, pow10(decimals))
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

func formatRat(value *big.Rat, scale int) string {
	return value.FloatString(scale)
}

func percentString(value *big.Rat) string {
	return formatRat(value, percentScale)
}

func usdString(value *big.Rat) string {
	return formatRat(value, usdScale)
}

// mulPercent returns numerator / denominator * 100.
func mulPercent(numerator, denominator *big.Rat) *big.Rat {
	out := new(big.Rat).Quo(numerator, denominator)
	return out.Mul(out, big.NewRat(100, 1))
}
